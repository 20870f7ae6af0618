package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Piper synthesizes with the piper binary into a temporary WAV and plays it.
type Piper struct {
	ExecPath string
	Model    string
	Player   FilePlayer
}

type FilePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

func NewPiper(execPath, model string, player FilePlayer) *Piper {
	return &Piper{ExecPath: execPath, Model: model, Player: player}
}

func (p *Piper) Speak(ctx context.Context, text string) error {
	text = Clean(text)
	if text == "" {
		return nil
	}

	path, err := p.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	return p.Player.PlayFile(ctx, path)
}

// Synthesize writes speech for text into a new temporary WAV file.
func (p *Piper) Synthesize(ctx context.Context, text string) (string, error) {
	f, err := os.CreateTemp("", "orin-tts-*.wav")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, p.ExecPath, "--model", p.Model, "--output_file", path)
	cmd.Stdin = strings.NewReader(text + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return path, nil
}
