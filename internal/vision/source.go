package vision

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/multierr"
)

type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// StreamSource decodes frames from a byte stream. Each record is the BGR24
// color image followed by the little-endian z16 depth image, both W x H.
type StreamSource struct {
	r      *bufio.Reader
	width  int
	height int
	scale  float64
	raw    []byte
	closer io.Closer
}

func NewStreamSource(r io.Reader, width, height int, depthScale float64) *StreamSource {
	s := &StreamSource{
		r:      bufio.NewReaderSize(r, 1<<20),
		width:  width,
		height: height,
		scale:  depthScale,
		raw:    make([]byte, width*height*2),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *StreamSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := NewFrame(s.width, s.height)
	if s.scale > 0 {
		f.DepthScale = s.scale
	}
	if _, err := io.ReadFull(s.r, f.Color); err != nil {
		return nil, fmt.Errorf("read color: %w", err)
	}
	if _, err := io.ReadFull(s.r, s.raw); err != nil {
		return nil, fmt.Errorf("read depth: %w", err)
	}
	for i := range f.Depth {
		f.Depth[i] = binary.LittleEndian.Uint16(s.raw[i*2:])
	}
	return f, nil
}

func (s *StreamSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// PipeSource runs a camera bridge process and reads frames from its stdout.
type PipeSource struct {
	*StreamSource
	cmd *exec.Cmd
}

// StartBridge launches path with --width, --height and --fps arguments.
func StartBridge(ctx context.Context, path string, width, height, fps int, depthScale float64) (*PipeSource, error) {
	cmd := exec.CommandContext(ctx, path,
		"--width", strconv.Itoa(width),
		"--height", strconv.Itoa(height),
		"--fps", strconv.Itoa(fps))
	cmd.Stderr = os.Stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	log.Info("Camera bridge started", "path", path, "pid", cmd.Process.Pid, "width", width, "height", height, "fps", fps)

	return &PipeSource{StreamSource: NewStreamSource(out, width, height, depthScale), cmd: cmd}, nil
}

func (p *PipeSource) Close() error {
	err := p.StreamSource.Close()
	if p.cmd.Process != nil {
		err = multierr.Append(err, p.cmd.Process.Kill())
	}
	p.cmd.Wait()
	return err
}
