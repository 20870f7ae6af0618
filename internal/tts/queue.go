package tts

import (
	"context"
	log "log/slog"
	"sync"
	"time"
)

// Queue serializes speech through a single worker. Texts are spoken in the
// order they were accepted; Say never blocks.
type Queue struct {
	speaker Speaker
	ch      chan string
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewQueue(s Speaker, size int) *Queue {
	if size <= 0 {
		size = 16
	}
	q := &Queue{
		speaker: s,
		ch:      make(chan string, size),
		done:    make(chan struct{}),
	}
	go q.work()
	return q
}

// Say enqueues text. It reports false when the queue is full or closed.
func (q *Queue) Say(text string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.ch <- text:
		return true
	default:
		log.Warn("Speech queue full, dropping", "text", text)
		return false
	}
}

// Speak makes Queue a Speaker: it enqueues and returns immediately.
func (q *Queue) Speak(_ context.Context, text string) error {
	q.Say(text)
	return nil
}

// Close stops intake, lets the worker finish what is queued and waits.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	<-q.done
}

func (q *Queue) work() {
	defer close(q.done)

	for text := range q.ch {
		start := time.Now()
		if err := q.speaker.Speak(context.Background(), text); err != nil {
			log.Error("Failed to speak", "text", text, "err", err)
			continue
		}
		log.Debug("Spoke", "text", text, "took", time.Since(start))
	}
}
