package main

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/vlm"
)

func main() {
	frame := cli.StringP("frame", "f", "", "Frame file to watch (overrides config)")
	prompts := cli.StringArrayP("prompt", "p", nil, "Prompt to run on each frame, repeatable")
	cfg := app.Boot("vlm")
	vc := cfg.VLM

	ctx, cancel := app.SignalContext()
	defer cancel()

	if *frame != "" {
		vc.FramePath = *frame
	}
	if len(*prompts) > 0 {
		vc.Prompts = *prompts
	}

	mq := app.MQTT(cfg.MQTT, "vlm")
	defer mq.Close()

	model := vlm.NewDescriber(vc.URL, vc.APIKey, vc.Model, vc.MaxTokens, app.HTTPClient(cfg, 2*time.Minute))
	poller := vlm.NewPoller(vc.FramePath, vc.Prompts, vc.Interval.Duration, model, mq)

	log.Info("Boot up - successful", "model", vc.Model, "prompts", len(vc.Prompts))
	if err := poller.Run(ctx); !errors.Is(err, context.Canceled) {
		log.Error("Poller stopped", "err", err)
	}
}
