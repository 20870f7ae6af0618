package keyword

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	m := New("Hello", "  ", "open camera")

	tests := []struct {
		text   string
		phrase string
		ok     bool
	}{
		{text: " Hello there.", phrase: "hello", ok: true},
		{text: "please OPEN CAMERA now", phrase: "open camera", ok: true},
		{text: "othello", phrase: "hello", ok: true},
		{text: "goodbye", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		phrase, ok := m.Match(tt.text)
		require.Equal(t, tt.ok, ok, "text %q", tt.text)
		require.Equal(t, tt.phrase, phrase, "text %q", tt.text)
	}
}

func TestEmptyMatcher(t *testing.T) {
	var m Matcher
	require.False(t, m.Contains("anything"))
	require.Empty(t, New("", " ! ").Phrases())
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "hello", Normalize(" Hello! "))
	require.Equal(t, "turn off", Normalize("Turn off."))
	require.Equal(t, "", Normalize("..."))
}
