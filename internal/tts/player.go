package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays decoded audio on the default output. The speaker is
// initialised lazily at a fixed rate and every stream is resampled to it.
// Calls are serialized.
type Player struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	inited bool
}

func NewPlayer(rate int) *Player {
	if rate <= 0 {
		rate = 44100
	}
	return &Player{rate: beep.SampleRate(rate)}
}

func (p *Player) init() error {
	if p.inited {
		return nil
	}
	if err := speaker.Init(p.rate, p.rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	p.inited = true
	return nil
}

// Play blocks until s is drained or ctx is done.
func (p *Player) Play(ctx context.Context, s beep.Streamer, format beep.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return err
	}

	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, s)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// PlayFile decodes a .wav or .mp3 file and plays it.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	s, format, err := Decode(f, filepath.Ext(path))
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer s.Close()

	return p.Play(ctx, s, format)
}

func (p *Player) PlayMP3(ctx context.Context, r io.ReadCloser) error {
	s, format, err := mp3.Decode(r)
	if err != nil {
		r.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer s.Close()

	return p.Play(ctx, s, format)
}

// Decode picks a beep decoder by file extension. The returned streamer owns rc.
func Decode(rc io.ReadCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(ext) {
	case ".wav":
		return wav.Decode(rc)
	case ".mp3":
		return mp3.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", ext)
	}
}
