package main

import (
	"context"
	"errors"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/tts"
	"orin/internal/vision"
	"orin/pkg/telemetry"
)

func main() {
	quiet := cli.BoolP("quiet", "q", false, "Do not narrate, only answer MQTT queries")
	noMQTT := cli.Bool("no-mqtt", false, "Do not subscribe to object queries")
	cfg := app.Boot("narrator")
	vc := cfg.Vision

	ctx, cancel := app.SignalContext()
	defer cancel()

	if err := vision.InitONNX(vc.OnnxLib); err != nil {
		app.Fatal("Failed to load onnxruntime", "lib", vc.OnnxLib, "err", err)
	}
	labels, err := vision.LoadLabels(vc.Labels)
	if err != nil {
		app.Fatal("Failed to load labels", "path", vc.Labels, "err", err)
	}
	detector, err := vision.NewONNXDetector(vc.Model, labels, vc.Threshold)
	if err != nil {
		app.Fatal("Failed to load detector", "model", vc.Model, "err", err)
	}
	defer detector.Close()

	p := &vision.Pipeline{Detector: detector}

	if !*quiet {
		app.SelectSink(ctx, cfg.Audio)
		speaker, err := app.NewSpeaker(cfg.TTS, app.HTTPClient(cfg, 0), tts.NewPlayer(0))
		if err != nil {
			app.Fatal("Failed to init speech", "engine", cfg.TTS.Engine, "err", err)
		}
		queue := tts.NewQueue(speaker, cfg.TTS.QueueSize)
		defer queue.Close()
		p.Narrator = vision.NewNarrator(queue, vc.NearDistance, vc.SpeakInterval.Duration)
	}

	if !*noMQTT {
		mq := app.MQTT(cfg.MQTT, "narrator")
		defer mq.Close()

		p.Trigger = &vision.Trigger{}
		p.Pub = mq
		if err := mq.Subscribe(telemetry.TopicObjectQuery, p.Trigger.OnMessage); err != nil {
			app.Fatal("Failed to subscribe", "topic", telemetry.TopicObjectQuery, "err", err)
		}
	}

	src, err := vision.StartBridge(ctx, vc.Bridge, vc.Width, vc.Height, vc.FPS, vision.DefaultDepthScale)
	if err != nil {
		app.Fatal("Failed to start camera", "bridge", vc.Bridge, "err", err)
	}
	defer src.Close()
	p.Source = src

	if vc.RTSPURL != "" {
		stream, err := vision.StartStreamer(ctx, "", vc.RTSPURL, vc.Width, vc.Height, vc.FPS)
		if err != nil {
			app.Fatal("Failed to start stream", "url", vc.RTSPURL, "err", err)
		}
		defer stream.Close()
		p.Sink = stream
	}

	log.Info("Boot up - successful", "near", vc.NearDistance, "narrate", p.Narrator != nil, "mqtt", p.Trigger != nil)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Pipeline stopped", "err", err)
	}
}
