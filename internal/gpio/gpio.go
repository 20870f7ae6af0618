package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// Pins are BCM numbered.

type OutputPin interface {
	High()
	Low()
}

var (
	mu    sync.Mutex
	users int
)

// Open maps GPIO memory. Calls are reference counted with Close.
func Open() error {
	mu.Lock()
	defer mu.Unlock()
	if users == 0 {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("gpio: %w", err)
		}
	}
	users++
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if users == 0 {
		return nil
	}
	users--
	if users == 0 {
		return rpio.Close()
	}
	return nil
}

// Output configures pin as an output driven low.
func Output(pin int) OutputPin {
	p := rpio.Pin(pin)
	p.Output()
	p.Low()
	return p
}

// EdgeSource reports falling edges latched by the hardware since the last call.
type EdgeSource interface {
	EdgeDetected() bool
}

// Button configures pin as a pulled-up input latching falling edges.
func Button(pin int) EdgeSource {
	p := rpio.Pin(pin)
	p.Input()
	p.PullUp()
	p.Detect(rpio.FallEdge)
	return p
}

// WatchPresses polls src and calls fn for each press, ignoring presses that
// follow the previous one within debounce. It returns when ctx is done.
func WatchPresses(ctx context.Context, src EdgeSource, poll, debounce time.Duration, fn func()) {
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	t := time.NewTicker(poll)
	defer t.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if !src.EdgeDetected() {
				continue
			}
			if !last.IsZero() && now.Sub(last) < debounce {
				continue
			}
			last = now
			fn()
		}
	}
}
