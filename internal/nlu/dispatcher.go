package nlu

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
)

// Dispatcher runs the external script attached to an IntentRunScript result.
// Scripts are executed directly, so they need the executable bit and an
// interpreter line.
type Dispatcher struct{}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Run(ctx context.Context, res Result) error {
	if res.Intent != IntentRunScript {
		return fmt.Errorf("intent %q has no script", res.Intent)
	}
	if res.Script == "" {
		return fmt.Errorf("no script for phrase %q", res.Phrase)
	}

	cmd := exec.CommandContext(ctx, res.Script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Info("Running script", "phrase", res.Phrase, "script", res.Script)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("run %s: %w: %s", res.Script, err, msg)
		}
		return fmt.Errorf("run %s: %w", res.Script, err)
	}
	return nil
}
