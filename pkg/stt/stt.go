package stt

import (
	"context"
	"strings"
	"time"
)

type Options struct {
	Language        string        // e.g. "auto", "en"
	TranslateToEn   bool          // translate non-EN -> EN
	Threads         int           // <=0 => NumCPU()
	InitialPrompt   string        // optional prefix prompt
	TokenTimestamps bool          // include per-token timestamps
	MaxTokens       uint          // 0 = no limit
	BeamSize        int           // 0 = greedy
	Temperature     float32       // 0 = default
	Offset          time.Duration // start offset
	Duration        time.Duration // max duration
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Transcriber turns 16 kHz mono PCM into text.
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error)
}

// cleanText drops whisper's non-speech markers such as "[BLANK_AUDIO]"
// and "(wind blowing)".
func cleanText(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '[', '(':
			depth++
			continue
		case ']', ')':
			if depth > 0 {
				depth--
				continue
			}
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
