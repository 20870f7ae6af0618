package stt

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"strconv"

	"orin/pkg/audioconv"
)

// CLI shells out to a whisper.cpp executable over a temporary WAV file.
type CLI struct {
	ExecPath  string
	ModelPath string
}

func NewCLI(execPath, modelPath string) *CLI {
	return &CLI{ExecPath: execPath, ModelPath: modelPath}
}

func (c *CLI) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	if len(pcm16k) == 0 {
		return Result{}, ErrNoAudio
	}

	path, err := audioconv.WriteTempWAV(pcm16k, audioconv.SampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("write temp wav: %w", err)
	}
	defer os.Remove(path)

	return c.TranscribeFile(ctx, path, opt)
}

func (c *CLI) TranscribeFile(ctx context.Context, path string, opt Options) (Result, error) {
	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}

	args := []string{"-m", c.ModelPath, "-f", path, "-nt", "-np", "-l", lang}
	if opt.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(opt.Threads))
	}
	if opt.TranslateToEn {
		args = append(args, "-tr")
	}
	if opt.InitialPrompt != "" {
		args = append(args, "--prompt", opt.InitialPrompt)
	}

	cmd := exec.CommandContext(ctx, c.ExecPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running whisper", "exec", c.ExecPath, "file", path)

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("whisper: %w, stderr: %s", err, stderr.String())
	}

	return Result{Text: cleanText(stdout.String()), Language: lang}, nil
}
