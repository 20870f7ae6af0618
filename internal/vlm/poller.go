package vlm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"os"
	"time"

	"orin/internal/mqttx"
	"orin/pkg/telemetry"
)

type Model interface {
	Describe(ctx context.Context, img []byte, prompts []string) ([]string, error)
}

// Poller waits for a frame file to appear, describes it, publishes the
// answer on TopicVLMResponse and removes the file.
type Poller struct {
	Path     string
	Prompts  []string
	Interval time.Duration
	Model    Model
	Pub      mqttx.Publisher
}

func NewPoller(path string, prompts []string, interval time.Duration, model Model, pub mqttx.Publisher) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{Path: path, Prompts: prompts, Interval: interval, Model: model, Pub: pub}
}

func (p *Poller) Run(ctx context.Context) error {
	log.Info("Waiting for frames", "path", p.Path, "interval", p.Interval)

	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		if _, err := p.Poll(ctx); err != nil {
			log.Error("Frame processing failed", "path", p.Path, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Poll processes the frame if one is present and reports whether it did.
// The frame is removed even when the model fails so a bad image is not
// retried forever.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	img, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("No frame found", "path", p.Path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read frame: %w", err)
	}
	log.Info("Frame found", "path", p.Path, "bytes", len(img))

	begin := time.Now()
	replies, err := p.Model.Describe(ctx, img, p.Prompts)
	if rmErr := os.Remove(p.Path); rmErr != nil {
		log.Warn("Failed to delete frame", "path", p.Path, "err", rmErr)
	}
	if err != nil {
		return true, err
	}
	for i, r := range replies {
		log.Debug("Reply", "prompt", i, "text", r)
	}

	answer := NoResponse
	if len(replies) > 0 {
		answer = replies[len(replies)-1]
	}
	log.Info("Frame described", "took", time.Since(begin), "text", answer)

	if err := p.Pub.Publish(telemetry.TopicVLMResponse, answer); err != nil {
		return true, fmt.Errorf("publish: %w", err)
	}
	return true, nil
}
