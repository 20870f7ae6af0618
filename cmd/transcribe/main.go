package main

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/audio"
	"orin/pkg/audioconv"
	"orin/pkg/keyword"
	"orin/pkg/stt"
)

func main() {
	listen := cli.BoolP("listen", "L", false, "Listen on the microphone for the hotword")
	window := cli.DurationP("window", "w", 0, "Hotword recording window")
	lang := cli.String("lang", "", "Language override")
	cfg := app.Boot("transcribe")

	ctx, cancel := app.SignalContext()
	defer cancel()

	tr, closeSTT := app.NewTranscriber(cfg.STT)
	defer closeSTT()

	opt := stt.Options{Language: cfg.STT.Language, Threads: cfg.STT.Threads}
	if *lang != "" {
		opt.Language = *lang
	}

	if *listen {
		if *window <= 0 {
			*window = cfg.Assistant.HotwordWindow.Duration
		}
		if err := listenHotword(ctx, tr, opt, cfg.Assistant.Hotword, *window); err != nil && ctx.Err() == nil {
			app.Fatal("Hotword listener stopped", "err", err)
		}
		return
	}

	if cli.NArg() == 0 {
		app.Fatal("No input files")
	}
	for _, path := range cli.Args() {
		text, err := transcribeFile(ctx, tr, path, opt)
		if err != nil {
			log.Error("Failed to transcribe", "file", path, "err", err)
			continue
		}
		fmt.Printf("%s: %s\n", path, text)
	}
}

func transcribeFile(ctx context.Context, tr stt.Transcriber, path string, opt stt.Options) (string, error) {
	pcm, err := audioconv.DecodeFile(ctx, path, audioconv.Options{})
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	log.Debug("Decoded", "file", path, "samples", len(pcm), "seconds", float64(len(pcm))/audioconv.SampleRate)

	res, err := tr.TranscribePCM(ctx, pcm, opt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// listenHotword records fixed windows and reports every one whose
// transcript contains the hotword.
func listenHotword(ctx context.Context, tr stt.Transcriber, opt stt.Options, hotword string, window time.Duration) error {
	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer rec.Close()

	m := keyword.New(hotword)
	log.Info("Listening for hotword", "hotword", hotword, "window", window)
	for {
		pcm, err := rec.Record(ctx, window)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("record: %w", err)
		}

		res, err := tr.TranscribePCM(ctx, pcm, opt)
		if err != nil {
			log.Error("Failed to transcribe", "err", err)
			continue
		}
		log.Debug("Heard", "text", res.Text)

		if m.Contains(res.Text) {
			log.Info("Hotword detected", "text", res.Text)
			fmt.Println("Hotword detected!")
		}
	}
}
