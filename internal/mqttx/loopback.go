package mqttx

import (
	"strings"
	"sync"
)

// Loopback is an in-process broker. Handlers run synchronously on Publish.
// Topic filters support the + and # wildcards.
type Loopback struct {
	mu   sync.RWMutex
	subs []loopSub
	sent []Message
}

type Message struct {
	Topic   string
	Payload string
}

type loopSub struct {
	filter string
	h      Handler
}

func NewLoopback() *Loopback { return &Loopback{} }

func (l *Loopback) Publish(topic, payload string) error {
	l.mu.Lock()
	l.sent = append(l.sent, Message{Topic: topic, Payload: payload})
	subs := append([]loopSub(nil), l.subs...)
	l.mu.Unlock()

	for _, s := range subs {
		if Match(s.filter, topic) {
			s.h(topic, []byte(payload))
		}
	}
	return nil
}

func (l *Loopback) Subscribe(topic string, h Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, loopSub{filter: topic, h: h})
	return nil
}

// Sent returns every message published so far.
func (l *Loopback) Sent() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.sent...)
}

// Match reports whether topic matches an MQTT subscription filter.
func Match(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, part := range f {
		if part == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if part != "+" && part != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
