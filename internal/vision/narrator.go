package vision

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"

	"orin/pkg/telemetry"
)

// Sayer accepts text for asynchronous speech.
type Sayer interface {
	Say(text string) bool
}

// Narrator announces objects within Near meters, at most once per Interval.
type Narrator struct {
	Speech   Sayer
	Near     float64
	Interval time.Duration

	last time.Time
	now  func() time.Time
}

func NewNarrator(s Sayer, near float64, interval time.Duration) *Narrator {
	return &Narrator{Speech: s, Near: near, Interval: interval, now: time.Now}
}

// Due reports whether the next frame should be analysed for narration.
func (n *Narrator) Due() bool {
	return n.last.IsZero() || n.now().Sub(n.last) >= n.Interval
}

// Observe queues a sentence for every sighting in range and returns how
// many were queued.
func (n *Narrator) Observe(sightings []telemetry.ObjectSighting) int {
	n.last = n.now()

	queued := 0
	for _, s := range sightings {
		if s.Distance <= 0 || s.Distance > n.Near {
			continue
		}
		if n.Speech.Say(Sentence(s)) {
			queued++
		}
	}
	return queued
}

func Sentence(s telemetry.ObjectSighting) string {
	return fmt.Sprintf("%s detected at %.2f meters.", s.Label, s.Distance)
}

// Trigger is armed by an MQTT query and consumed by the next analysed frame.
type Trigger struct {
	armed atomic.Bool
}

// OnMessage arms the trigger when the payload is "object".
func (t *Trigger) OnMessage(_ string, payload []byte) {
	if string(bytes.TrimSpace(payload)) == telemetry.ObjectQueryPayload {
		t.armed.Store(true)
	}
}

func (t *Trigger) Arm() { t.armed.Store(true) }

func (t *Trigger) Pending() bool { return t.armed.Load() }

// Take reports whether the trigger was armed and disarms it.
func (t *Trigger) Take() bool { return t.armed.CompareAndSwap(true, false) }
