package tts

import (
	"context"
	"strings"
)

// Speaker turns text into audible speech. Speak returns once playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

var cleaner = strings.NewReplacer("*", "", "</s>", "", "<s>", "")

// Clean removes markdown emphasis and sentence tokens that models leak into
// their output, and collapses whitespace.
func Clean(text string) string {
	return strings.Join(strings.Fields(cleaner.Replace(text)), " ")
}
