package main

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/config"
	"orin/internal/dashboard"
	"orin/internal/gpio"
	"orin/internal/tts"
	"orin/pkg/telemetry"
)

func main() {
	addr := cli.StringP("addr", "a", "", "Listen address (overrides config)")
	noButton := cli.Bool("no-button", false, "Do not watch the announce button")
	cfg := app.Boot("dashboard")

	ctx, cancel := app.SignalContext()
	defer cancel()

	if *addr == "" {
		*addr = cfg.Dashboard.Addr
	}

	srv := dashboard.NewServer()

	mq := app.MQTT(cfg.MQTT, "dashboard")
	defer mq.Close()
	if err := mq.Subscribe(telemetry.TopicLocation, srv.OnMessage); err != nil {
		app.Fatal("Failed to subscribe", "topic", telemetry.TopicLocation, "err", err)
	}

	if !*noButton {
		stop := watchButton(ctx, cfg.Dashboard.ButtonPin, srv.State, cfg)
		defer stop()
	}

	if err := srv.ListenAndServe(ctx, *addr); !errors.Is(err, context.Canceled) {
		app.Fatal("Dashboard stopped", "err", err)
	}
	log.Info("Shutting down")
}

// watchButton reads the current location aloud whenever the button on pin
// is pressed.
func watchButton(ctx context.Context, pin int, state *dashboard.State, cfg config.Config) func() {
	if err := gpio.Open(); err != nil {
		log.Warn("GPIO unavailable, announce button disabled", "err", err)
		return func() {}
	}

	app.SelectSink(ctx, cfg.Audio)
	player := tts.NewPlayer(0)
	speaker, err := app.NewSpeaker(cfg.TTS, app.HTTPClient(cfg, 0), player)
	if err != nil {
		log.Warn("Speech unavailable, announce button disabled", "err", err)
		gpio.Close()
		return func() {}
	}
	queue := tts.NewQueue(speaker, cfg.TTS.QueueSize)
	announcer := &dashboard.Announcer{State: state, Speaker: queue}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("Watching announce button", "pin", pin)
		gpio.WatchPresses(ctx, gpio.Button(pin), 0, 300*time.Millisecond, func() {
			announcer.Announce(ctx)
		})
	}()

	return func() {
		cancel()
		<-done
		queue.Close()
		gpio.Close()
	}
}
