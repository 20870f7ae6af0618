package audio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
)

// Runner executes pactl. Tests swap it for a fake.
type Runner interface {
	Output(ctx context.Context, args ...string) ([]byte, error)
}

type pactl struct{}

func (pactl) Output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "pactl", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("pactl %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

var PactlRunner Runner = pactl{}

// Devices selects default PulseAudio devices.
type Devices struct {
	Run Runner
}

func NewDevices() *Devices {
	return &Devices{Run: PactlRunner}
}

// EnsureDefaultSink makes name the default sink when it is available.
// It reports whether the default changed.
func (d *Devices) EnsureDefaultSink(ctx context.Context, name string) (bool, error) {
	return d.ensure(ctx, "sink", "sinks", name)
}

func (d *Devices) EnsureDefaultSource(ctx context.Context, name string) (bool, error) {
	return d.ensure(ctx, "source", "sources", name)
}

func (d *Devices) ensure(ctx context.Context, kind, plural, name string) (bool, error) {
	if name == "" {
		return false, nil
	}

	cur, err := d.Run.Output(ctx, "get-default-"+kind)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(string(cur)) == name {
		return false, nil
	}

	list, err := d.Run.Output(ctx, "list", "short", plural)
	if err != nil {
		return false, err
	}
	if !hasDevice(list, name) {
		log.Warn("Audio device not available", "kind", kind, "name", name)
		return false, nil
	}

	if _, err := d.Run.Output(ctx, "set-default-"+kind, name); err != nil {
		return false, err
	}
	log.Info("Default audio device set", "kind", kind, "name", name)
	return true, nil
}

// hasDevice scans `pactl list short` output (index, name, driver, ...).
func hasDevice(list []byte, name string) bool {
	sc := bufio.NewScanner(bytes.NewReader(list))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
