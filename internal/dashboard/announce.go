package dashboard

import (
	"context"
	"fmt"
	log "log/slog"

	"orin/internal/tts"
)

// Announcer reads the current location aloud.
type Announcer struct {
	State   *State
	Speaker tts.Speaker
}

func (a *Announcer) Text() string {
	loc := a.State.Get()
	return fmt.Sprintf("The method is %s. The location is %s.", loc.Method, loc.Place)
}

func (a *Announcer) Announce(ctx context.Context) {
	text := a.Text()
	log.Info("Announcing location", "text", text)
	if err := a.Speaker.Speak(ctx, text); err != nil {
		log.Error("Failed to announce location", "err", err)
	}
}
