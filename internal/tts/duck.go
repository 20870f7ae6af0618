package tts

import (
	"context"
	log "log/slog"
	"time"
)

type Ducker interface {
	Duck(ctx context.Context, factor float64, duration time.Duration) error
	Restore(ctx context.Context, duration time.Duration) error
}

// WithDucking lowers other audio while s speaks.
func WithDucking(s Speaker, d Ducker) Speaker {
	return SpeakerFunc(func(ctx context.Context, text string) error {
		if err := d.Duck(ctx, 0.3, 300*time.Millisecond); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := d.Restore(context.WithoutCancel(ctx), 500*time.Millisecond); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
		return s.Speak(ctx, text)
	})
}
