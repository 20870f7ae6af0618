package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")

	var got []string
	srv, err := Listen(path, func(m ControlMessage) Reply {
		got = append(got, m.Cmd)
		if m.Cmd == CmdStatus {
			return Reply{OK: true, Message: "sleeping"}
		}
		return Reply{Message: "unknown command"}
	})
	require.NoError(t, err)
	defer srv.Close()

	r, err := SendCommand(path, " STATUS ")
	require.NoError(t, err)
	require.True(t, r.OK)
	require.Equal(t, "sleeping", r.Message)

	r, err = SendCommand(path, "dance")
	require.NoError(t, err)
	require.False(t, r.OK)

	require.Equal(t, []string{"status", "dance"}, got)
}

func TestSendCommandNoDaemon(t *testing.T) {
	_, err := SendCommand(filepath.Join(t.TempDir(), "none.sock"), CmdTrigger)
	require.Error(t, err)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	first, err := Listen(path, func(ControlMessage) Reply { return Reply{OK: true} })
	require.NoError(t, err)
	require.NoError(t, first.ln.Close())

	second, err := Listen(path, func(ControlMessage) Reply { return Reply{OK: true, Message: "second"} })
	require.NoError(t, err)
	defer second.Close()

	r, err := SendCommand(path, CmdStatus)
	require.NoError(t, err)
	require.Equal(t, "second", r.Message)
}
