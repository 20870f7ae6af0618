package gps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
)

var (
	ErrNotReady = errors.New("gps: modem not ready")
	ErrNoFix    = errors.New("gps: no fix")
)

type PowerSwitch interface {
	PowerOn(ctx context.Context) error
	PowerDown(ctx context.Context) error
}

// Modem drives a SIM7600-style GNSS modem over AT commands.
type Modem struct {
	mu    sync.Mutex
	port  Port
	power PowerSwitch

	// Settle is the pause after CGPS=1 before asking for a fix.
	Settle time.Duration

	sleep func(context.Context, time.Duration) error
}

func NewModem(port Port, power PowerSwitch) *Modem {
	return &Modem{port: port, power: power, Settle: 2 * time.Second, sleep: sleepCtx}
}

// SendAT writes cmd, waits and returns whatever the modem buffered. It
// fails with ErrNotReady when nothing arrived and with an error carrying
// the response when expect is not in it.
func (m *Modem) SendAT(ctx context.Context, cmd, expect string, wait time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendAT(ctx, cmd, expect, wait)
}

func (m *Modem) sendAT(ctx context.Context, cmd, expect string, wait time.Duration) (string, error) {
	if _, err := m.port.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("write %s: %w", cmd, err)
	}
	if err := m.sleep(ctx, wait); err != nil {
		return "", err
	}

	resp, err := m.drain()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", cmd, err)
	}
	if resp == "" {
		return "", ErrNotReady
	}
	if !strings.Contains(resp, expect) {
		return resp, fmt.Errorf("%s: unexpected response %q", cmd, strings.TrimSpace(resp))
	}
	log.Debug("AT", "cmd", cmd, "resp", strings.TrimSpace(resp))
	return resp, nil
}

func (m *Modem) drain() (string, error) {
	var out bytes.Buffer
	buf := make([]byte, 256)
	for {
		n, err := m.port.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			return out.String(), err
		}
		if n == 0 {
			return out.String(), nil
		}
	}
}

// CheckStart polls with AT until the modem answers OK, pulsing the power
// key whenever it stays silent.
func (m *Modem) CheckStart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		resp, err := m.sendAT(ctx, "AT", "OK", 100*time.Millisecond)
		switch {
		case err == nil:
			log.Info("Modem answered", "resp", strings.TrimSpace(resp))
			return nil
		case errors.Is(err, ErrNotReady):
			if m.power == nil {
				return err
			}
			if err := m.power.PowerOn(ctx); err != nil {
				return err
			}
			m.port.ResetInputBuffer()
			if err := m.sleep(ctx, time.Second); err != nil {
				return err
			}
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.Debug("Modem not started yet", "resp", strings.TrimSpace(resp))
		}
	}
}

// Position starts a GNSS session and reads one fix.
func (m *Modem) Position(ctx context.Context) (Fix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.sendAT(ctx, "AT+CGPS=1,1", "OK", time.Second); err != nil {
		// Already running answers ERROR; CGPSINFO tells the truth.
		log.Debug("CGPS start", "err", err)
	}
	if err := m.sleep(ctx, m.Settle); err != nil {
		return Fix{}, err
	}

	resp, err := m.sendAT(ctx, "AT+CGPSINFO", "+CGPSINFO:", time.Second)
	if err != nil {
		return Fix{}, err
	}
	return ParseCGPSInfo(resp)
}

func (m *Modem) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.sendAT(ctx, "AT+CGPS=0", "OK", time.Second)
	return err
}

// Close stops the GNSS session, powers the modem down when a power key is
// attached and closes the port.
func (m *Modem) Close(ctx context.Context) error {
	var err error
	if e := m.Stop(ctx); e != nil && !errors.Is(e, ErrNotReady) {
		err = multierr.Append(err, e)
	}
	if m.power != nil {
		err = multierr.Append(err, m.power.PowerDown(ctx))
	}
	return multierr.Append(err, m.port.Close())
}
