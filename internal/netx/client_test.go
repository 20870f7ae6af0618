package netx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClientDirect(t *testing.T) {
	c, err := NewClient("", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, c.Timeout)
	require.Nil(t, c.Transport)
}

func TestNewClientSocks(t *testing.T) {
	c, err := NewClient("127.0.0.1:1080", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, c.Timeout)
	require.IsType(t, &http.Transport{}, c.Transport)
}
