// Package app holds the boot sequence shared by the cmd/ tools.
package app

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/audio"
	"orin/internal/config"
	"orin/internal/logx"
	"orin/internal/mqttx"
	"orin/internal/netx"
	"orin/internal/tts"
	"orin/pkg/stt"
)

// SelfName is the application.name our audio streams carry.
const SelfName = "orin"

// Boot registers the common flags, parses the command line, loads the
// configuration and installs the logger. Tool specific flags must be
// declared before calling it.
func Boot(name string) config.Config {
	cfgPath := cli.StringP("config", "c", "", "TOML config file")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (debug|info|warn|error)")
	cli.Parse()

	cfg, err := config.Load(*cfgPath, *envFile)
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logx.Setup(cfg.Log.Level)
	if err != nil {
		Fatal("Failed to load config", "path", *cfgPath, "err", err)
	}

	tagAudioStreams()
	log.Info("Booting up", "tool", name)
	return cfg
}

// tagAudioStreams names every PulseAudio stream of this process (and of the
// players it spawns) SelfName, unless PULSE_PROP is already set.
func tagAudioStreams() {
	if _, ok := os.LookupEnv("PULSE_PROP"); ok {
		return
	}
	if err := os.Setenv("PULSE_PROP", "application.name="+SelfName); err != nil {
		log.Warn("Failed to tag audio streams", "err", err)
	}
}

// selfNames lists the names our own sink-inputs may show up under.
func selfNames() []string {
	return []string{SelfName, filepath.Base(os.Args[0])}
}

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// HTTPClient builds a client honoring the configured proxy.
func HTTPClient(cfg config.Config, timeout time.Duration) *http.Client {
	c, err := netx.NewClient(cfg.Proxy, timeout)
	if err != nil {
		Fatal("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
	}
	return c
}

// SelectSink makes the configured output device the default one.
func SelectSink(ctx context.Context, cfg config.AudioConfig) {
	devs := audio.NewDevices()
	if cfg.Sink != "" {
		if _, err := devs.EnsureDefaultSink(ctx, cfg.Sink); err != nil {
			log.Warn("Failed to select output device", "sink", cfg.Sink, "err", err)
		}
	}
	if cfg.Source != "" {
		if _, err := devs.EnsureDefaultSource(ctx, cfg.Source); err != nil {
			log.Warn("Failed to select input device", "source", cfg.Source, "err", err)
		}
	}
}

// NewSpeaker builds the configured TTS engine, optionally ducking other
// audio while it speaks.
func NewSpeaker(cfg config.TTSConfig, client *http.Client, player *tts.Player) (tts.Speaker, error) {
	var s tts.Speaker
	switch cfg.Engine {
	case "piper", "":
		s = tts.NewPiper(cfg.PiperPath, cfg.PiperModel, player)
	case "gtts":
		s = tts.NewGTTS(cfg.Lang, client, player)
	case "espeak":
		e, err := tts.NewEspeak(cfg.Lang)
		if err != nil {
			return nil, err
		}
		s = e
	default:
		return nil, fmt.Errorf("unknown tts engine %q", cfg.Engine)
	}
	log.Debug("Loaded speech engine", "engine", cfg.Engine)

	if cfg.Duck {
		s = tts.WithDucking(s, audio.NewDucker(selfNames(), 10))
	}
	return s, nil
}

// NewTranscriber builds the configured whisper backend. The returned func
// releases it.
func NewTranscriber(cfg config.STTConfig) (stt.Transcriber, func()) {
	if cfg.Backend == "cli" {
		log.Debug("Using whisper CLI", "exec", cfg.ExecPath, "model", cfg.ModelPath)
		return stt.NewCLI(cfg.ExecPath, cfg.ModelPath), func() {}
	}

	w, err := stt.NewWhisper(cfg.ModelPath)
	if err != nil {
		Fatal("Failed to init whisper", "model", cfg.ModelPath, "err", err)
	}
	log.Debug("Loaded whisper", "model", cfg.ModelPath)
	return w, func() { w.Close() }
}

// MQTT connects to the configured broker. suffix tells the tools apart in
// the broker's client list.
func MQTT(cfg config.MQTTConfig, suffix string) *mqttx.Client {
	c, err := mqttx.Connect(mqttx.Config{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID + "-" + suffix,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		Fatal("Failed to connect to MQTT broker", "broker", cfg.Broker, "err", err)
	}
	return c
}
