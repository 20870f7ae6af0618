package vision

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/exec"

	"go.uber.org/multierr"
)

// StreamArgs are the ffmpeg arguments for pushing raw BGR frames to an RTSP
// server with low-latency H.264.
func StreamArgs(url string, width, height, fps int) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprint(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-profile:v", "baseline",
		"-pix_fmt", "yuv420p",
		"-f", "rtsp",
		"-rtsp_transport", "tcp",
		url,
	}
}

// Streamer feeds frames to an ffmpeg process.
type Streamer struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func StartStreamer(ctx context.Context, ffmpeg, url string, width, height, fps int) (*Streamer, error) {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, ffmpeg, StreamArgs(url, width, height, fps)...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	log.Info("RTSP stream started", "url", url)
	return &Streamer{cmd: cmd, stdin: stdin}, nil
}

func (s *Streamer) Write(f *Frame) error {
	if _, err := s.stdin.Write(f.Color); err != nil {
		return fmt.Errorf("stream frame: %w", err)
	}
	return nil
}

func (s *Streamer) Close() error {
	return multierr.Append(s.stdin.Close(), s.cmd.Wait())
}
