package notify

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Sink plays a decoded stream to completion.
type Sink interface {
	Play(ctx context.Context, s beep.Streamer, format beep.Format) error
}

type cue struct {
	buf *beep.Buffer
}

// Beeper plays the short cues around command recording. Cues are decoded
// once at construction; a cue that failed to load is skipped silently.
type Beeper struct {
	sink  Sink
	start *cue
	end   *cue
}

func NewBeeper(sink Sink, startPath, endPath string) *Beeper {
	return &Beeper{
		sink:  sink,
		start: loadCue(startPath),
		end:   loadCue(endPath),
	}
}

func (b *Beeper) Start(ctx context.Context) { b.play(ctx, b.start, "start") }
func (b *Beeper) End(ctx context.Context)   { b.play(ctx, b.end, "end") }

func (b *Beeper) play(ctx context.Context, c *cue, name string) {
	if c == nil || b.sink == nil {
		return
	}
	s := c.buf.Streamer(0, c.buf.Len())
	if err := b.sink.Play(ctx, s, c.buf.Format()); err != nil {
		log.Warn("Failed to play cue", "cue", name, "err", err)
	}
}

func loadCue(path string) *cue {
	if path == "" {
		return nil
	}
	buf, err := decodeFile(path)
	if err != nil {
		log.Warn("Failed to load cue", "path", path, "err", err)
		return nil
	}
	return &cue{buf: buf}
}

func decodeFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".mp3":
		s, format, err = mp3.Decode(f)
	default:
		err = fmt.Errorf("unsupported cue format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	defer s.Close()

	buf := beep.NewBuffer(format)
	buf.Append(s)
	return buf, nil
}
