package gps

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePort answers each written command from a table. Unknown commands
// get no reply. A command may have several queued answers.
type fakePort struct {
	replies map[string][]string
	written []string
	pending []byte
	resets  int
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	cmd := strings.TrimSuffix(string(b), "\r\n")
	p.written = append(p.written, cmd)
	if q := p.replies[cmd]; len(q) > 0 {
		p.pending = append(p.pending, q[0]...)
		if len(q) > 1 {
			p.replies[cmd] = q[1:]
		}
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) ResetInputBuffer() error { p.resets++; return nil }
func (p *fakePort) Close() error            { p.closed = true; return nil }

type fakePower struct{ on, down int }

func (f *fakePower) PowerOn(context.Context) error   { f.on++; return nil }
func (f *fakePower) PowerDown(context.Context) error { f.down++; return nil }

func noSleep(context.Context, time.Duration) error { return nil }

func newModem(port *fakePort, power PowerSwitch) *Modem {
	m := NewModem(port, power)
	m.sleep = noSleep
	return m
}

func TestParseCGPSInfo(t *testing.T) {
	fix, err := ParseCGPSInfo("AT+CGPSINFO\r\n+CGPSINFO: 3113.343286,N,12121.234064,E,250311,072809.3,44.1,0.0,0\r\n\r\nOK\r\n")
	require.NoError(t, err)
	require.InDelta(t, 31.222388, fix.Lat, 1e-6)
	require.InDelta(t, 121.353901, fix.Lon, 1e-6)
	require.InDelta(t, 44.1, fix.Alt, 1e-9)
	require.Equal(t, time.Date(2011, 3, 25, 7, 28, 9, 0, time.UTC), fix.Time)
}

func TestParseCGPSInfoHemispheres(t *testing.T) {
	fix, err := ParseCGPSInfo("+CGPSINFO: 3746.494,S,12225.164,W,,,,,")
	require.NoError(t, err)
	require.InDelta(t, -37.774900, fix.Lat, 1e-6)
	require.InDelta(t, -122.419400, fix.Lon, 1e-6)
	require.True(t, fix.Time.IsZero())
}

func TestParseCGPSInfoNoFix(t *testing.T) {
	_, err := ParseCGPSInfo("+CGPSINFO: ,,,,,,,,\r\nOK")
	require.ErrorIs(t, err, ErrNoFix)

	_, err = ParseCGPSInfo("OK")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoFix)

	_, err = ParseCGPSInfo("+CGPSINFO: abc,N,12121.2,E,,,,,")
	require.Error(t, err)
}

func TestSendAT(t *testing.T) {
	port := &fakePort{replies: map[string][]string{
		"AT":   {"AT\r\nOK\r\n"},
		"AT+X":  {"ERROR\r\n"},
	}}
	m := newModem(port, nil)
	ctx := context.Background()

	resp, err := m.SendAT(ctx, "AT", "OK", time.Second)
	require.NoError(t, err)
	require.Contains(t, resp, "OK")

	resp, err = m.SendAT(ctx, "AT+X", "OK", time.Second)
	require.Error(t, err)
	require.Equal(t, "ERROR\r\n", resp)

	_, err = m.SendAT(ctx, "AT+SILENT", "OK", time.Second)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestCheckStartPowersOnSilentModem(t *testing.T) {
	port := &fakePort{replies: map[string][]string{
		"AT": {"", "", "OK\r\n"},
	}}
	power := &fakePower{}
	m := newModem(port, power)

	require.NoError(t, m.CheckStart(context.Background()))
	require.Equal(t, 2, power.on)
	require.Equal(t, []string{"AT", "AT", "AT"}, port.written)
}

func TestCheckStartHonorsContext(t *testing.T) {
	port := &fakePort{replies: map[string][]string{"AT": {"BUSY\r\n"}}}
	m := newModem(port, &fakePower{})
	m.sleep = sleepCtx

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.CheckStart(ctx), context.DeadlineExceeded)
}

func TestPosition(t *testing.T) {
	port := &fakePort{replies: map[string][]string{
		"AT+CGPS=1,1": {"OK\r\n"},
		"AT+CGPSINFO": {"+CGPSINFO: ,,,,,,,,\r\nOK\r\n", "+CGPSINFO: 4042.768,N,07400.444,W,191026,101500.0,10.0,0.0,0\r\nOK\r\n"},
		"AT+CGPS=0":   {"OK\r\n"},
	}}
	power := &fakePower{}
	m := newModem(port, power)
	ctx := context.Background()

	_, err := m.Position(ctx)
	require.ErrorIs(t, err, ErrNoFix)

	fix, err := m.Position(ctx)
	require.NoError(t, err)
	require.InDelta(t, 40.7128, fix.Lat, 1e-4)
	require.InDelta(t, -74.0074, fix.Lon, 1e-4)

	require.NoError(t, m.Close(ctx))
	require.Equal(t, 1, power.down)
	require.True(t, port.closed)
	require.Equal(t, "AT+CGPS=0", port.written[len(port.written)-1])
}

type fakePin struct{ events []string }

func (p *fakePin) High() { p.events = append(p.events, "high") }
func (p *fakePin) Low()  { p.events = append(p.events, "low") }

func TestPowerKey(t *testing.T) {
	pin := &fakePin{}
	k := NewPowerKey(pin)
	var slept []time.Duration
	k.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		pin.events = append(pin.events, "sleep")
		return nil
	}
	ctx := context.Background()

	require.NoError(t, k.PowerOn(ctx))
	require.NoError(t, k.PowerDown(ctx))

	require.Equal(t, []string{"high", "sleep", "low", "sleep", "high", "sleep", "low", "sleep"}, pin.events)
	require.Equal(t, []time.Duration{2 * time.Second, 20 * time.Second, 3 * time.Second, 18 * time.Second}, slept)
}
