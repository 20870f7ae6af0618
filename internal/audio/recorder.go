package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"orin/pkg/audioconv"
)

const (
	SampleRate = audioconv.SampleRate

	frameSize = 320 // 20ms at 16kHz
)

var ErrNoAudio = audioconv.ErrNoAudio

// Recorder captures mono 16kHz audio from the default input device.
type Recorder struct {
	// Gate settings for RecordAuto.
	SilenceRMS     float64
	SilenceTimeout time.Duration
	MaxLength      time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		SilenceRMS:     0.015,
		SilenceTimeout: 600 * time.Millisecond,
		MaxLength:      10 * time.Second,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

type inputStream struct {
	*portaudio.Stream
	buf []float32
}

func openInput() (*inputStream, error) {
	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input: %w", err)
	}
	return &inputStream{Stream: stream, buf: buf}, nil
}

func (s *inputStream) close() {
	s.Stop()
	s.Stream.Close()
}

// Record captures exactly d of audio, or less if ctx is cancelled.
func (r *Recorder) Record(ctx context.Context, d time.Duration) ([]float32, error) {
	if d <= 0 {
		return nil, fmt.Errorf("invalid duration %s", d)
	}

	in, err := openInput()
	if err != nil {
		return nil, err
	}
	defer in.close()

	total := int(d.Seconds() * SampleRate)
	out := make([]float32, 0, total)

	for len(out) < total {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := in.Read(); err != nil {
			return nil, err
		}
		out = append(out, in.buf...)
	}
	return out[:total], nil
}

// RecordAuto waits for speech and stops after a stretch of silence.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	in, err := openInput()
	if err != nil {
		return nil, err
	}
	defer in.close()

	g := newGate(r.SilenceRMS, r.SilenceTimeout, r.MaxLength)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := in.Read(); err != nil {
			return nil, err
		}
		if g.push(in.buf) {
			break
		}
	}

	if len(g.out) == 0 {
		return nil, ErrNoAudio
	}
	return g.out, nil
}

// gate keeps frames from the first loud one until silence lasts long enough.
type gate struct {
	thresh        float64
	silenceFrames int
	maxFrames     int

	frames  int
	quiet   int
	started bool
	out     []float32
}

func newGate(thresh float64, silence, max time.Duration) *gate {
	per := time.Duration(frameSize) * time.Second / SampleRate
	return &gate{
		thresh:        thresh,
		silenceFrames: int(silence / per),
		maxFrames:     int(max / per),
	}
}

// push returns true when recording should stop.
func (g *gate) push(frame []float32) bool {
	g.frames++

	if audioconv.RMS(frame) > g.thresh {
		g.started = true
		g.quiet = 0
		g.out = append(g.out, frame...)
	} else if g.started {
		g.quiet++
		if g.quiet >= g.silenceFrames {
			return true
		}
		g.out = append(g.out, frame...)
	}

	return g.frames >= g.maxFrames
}
