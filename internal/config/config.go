package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Proxy     string          `toml:"proxy"`
	Audio     AudioConfig     `toml:"audio"`
	STT       STTConfig       `toml:"stt"`
	TTS       TTSConfig       `toml:"tts"`
	LLM       LLMConfig       `toml:"llm"`
	RAG       RAGConfig       `toml:"rag"`
	Assistant AssistantConfig `toml:"assistant"`
	MQTT      MQTTConfig      `toml:"mqtt"`
	GPS       GPSConfig       `toml:"gps"`
	GeoIP     GeoIPConfig     `toml:"geoip"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Vision    VisionConfig    `toml:"vision"`
	VLM       VLMConfig       `toml:"vlm"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type AudioConfig struct {
	Sink      string `toml:"sink"`
	Source    string `toml:"source"`
	StartBeep string `toml:"start_beep"`
	EndBeep   string `toml:"end_beep"`
}

type STTConfig struct {
	Backend   string `toml:"backend"` // "bindings" or "cli"
	ModelPath string `toml:"model_path"`
	ExecPath  string `toml:"exec_path"`
	Language  string `toml:"language"`
	Threads   int    `toml:"threads"`
}

type TTSConfig struct {
	Engine     string `toml:"engine"` // "piper", "gtts" or "espeak"
	PiperPath  string `toml:"piper_path"`
	PiperModel string `toml:"piper_model"`
	Lang       string `toml:"lang"`
	QueueSize  int    `toml:"queue_size"`
	Duck       bool   `toml:"duck"`
}

type LLMConfig struct {
	Backend     string   `toml:"backend"` // "llama" or "openai"
	URL         string   `toml:"url"`
	Model       string   `toml:"model"`
	APIKey      string   `toml:"api_key"`
	Temperature float64  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	Timeout     Duration `toml:"timeout"`
	System      string   `toml:"system"`
}

type RAGConfig struct {
	EmbedURL   string   `toml:"embed_url"`
	EmbedModel string   `toml:"embed_model"`
	Dimensions int      `toml:"dimensions"`
	TopK       int      `toml:"top_k"`
	DBPath     string   `toml:"db_path"`
	Documents  []string `toml:"documents"`
}

type AssistantConfig struct {
	Hotword        string            `toml:"hotword"`
	HotwordWindow  Duration          `toml:"hotword_window"`
	CommandWindow  Duration          `toml:"command_window"`
	ExitPhrases    []string          `toml:"exit_phrases"`
	Scripts        map[string]string `toml:"scripts"`
	Greeting       string            `toml:"greeting"`
	ControlSocket  string            `toml:"control_socket"`
	TranscribeWait Duration          `toml:"transcribe_timeout"`
}

type MQTTConfig struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type GPSConfig struct {
	Device        string   `toml:"device"`
	Baud          int      `toml:"baud"`
	PowerPin      int      `toml:"power_pin"`
	PowerOnHold   Duration `toml:"power_on_hold"`
	PowerOnSettle Duration `toml:"power_on_settle"`
	PowerOffHold  Duration `toml:"power_off_hold"`
	PowerOffWait  Duration `toml:"power_off_settle"`
	Interval      Duration `toml:"interval"`
}

type GeoIPConfig struct {
	IpstackKey string   `toml:"ipstack_key"`
	Timeout    Duration `toml:"timeout"`
}

type DashboardConfig struct {
	Addr      string `toml:"addr"`
	ButtonPin int    `toml:"button_pin"`
}

type VisionConfig struct {
	Model         string   `toml:"model"`
	Labels        string   `toml:"labels"`
	OnnxLib       string   `toml:"onnx_lib"`
	Threshold     float32  `toml:"threshold"`
	Width         int      `toml:"width"`
	Height        int      `toml:"height"`
	FPS           int      `toml:"fps"`
	Bridge        string   `toml:"bridge"`
	NearDistance  float64  `toml:"near_distance"`
	SpeakInterval Duration `toml:"speak_interval"`
	RTSPURL       string   `toml:"rtsp_url"`
}

type VLMConfig struct {
	URL       string   `toml:"url"`
	Model     string   `toml:"model"`
	APIKey    string   `toml:"api_key"`
	FramePath string   `toml:"frame_path"`
	Prompts   []string `toml:"prompts"`
	Interval  Duration `toml:"interval"`
	MaxTokens int      `toml:"max_tokens"`
}

// Duration decodes TOML strings like "1.5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func D(v time.Duration) Duration { return Duration{v} }

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Audio: AudioConfig{
			StartBeep: "assets/bip.wav",
			EndBeep:   "assets/bip2.wav",
		},
		STT: STTConfig{
			Backend:   "bindings",
			ModelPath: "models/ggml-base.en.bin",
			ExecPath:  "whisper-cli",
			Language:  "en",
		},
		TTS: TTSConfig{
			Engine:     "piper",
			PiperPath:  "piper",
			PiperModel: "/usr/local/share/piper/models/en_US-lessac-medium.onnx",
			Lang:       "en",
			QueueSize:  16,
		},
		LLM: LLMConfig{
			Backend:     "llama",
			URL:         "http://127.0.0.1:8080",
			Temperature: 0.7,
			MaxTokens:   80,
			Timeout:     D(60 * time.Second),
		},
		RAG: RAGConfig{
			EmbedURL:   "http://127.0.0.1:8081/v1",
			EmbedModel: "all-MiniLM-L6-v2",
			Dimensions: 384,
			TopK:       3,
		},
		Assistant: AssistantConfig{
			Hotword:        "hello",
			HotwordWindow:  D(3 * time.Second),
			CommandWindow:  D(5 * time.Second),
			ExitPhrases:    []string{"turn off", "exit"},
			Scripts:        map[string]string{"open camera": "/home/jetson/bme/vlm/llava.sh"},
			Greeting:       "I'm listening. How can I assist?",
			ControlSocket:  "/tmp/orin-assistant.sock",
			TranscribeWait: D(60 * time.Second),
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "orin",
		},
		GPS: GPSConfig{
			Device:        "/dev/ttyTHS1",
			Baud:          115200,
			PowerPin:      6,
			PowerOnHold:   D(2 * time.Second),
			PowerOnSettle: D(20 * time.Second),
			PowerOffHold:  D(3 * time.Second),
			PowerOffWait:  D(18 * time.Second),
			Interval:      D(10 * time.Second),
		},
		GeoIP: GeoIPConfig{
			Timeout: D(10 * time.Second),
		},
		Dashboard: DashboardConfig{
			Addr:      "0.0.0.0:5000",
			ButtonPin: 21,
		},
		Vision: VisionConfig{
			Model:         "models/yolov8n.onnx",
			Labels:        "models/coco.names",
			Threshold:     0.4,
			Width:         1280,
			Height:        720,
			FPS:           30,
			Bridge:        "rs-bridge",
			NearDistance:  2,
			SpeakInterval: D(500 * time.Millisecond),
		},
		VLM: VLMConfig{
			URL:       "http://127.0.0.1:8080/v1",
			Model:     "VILA1.5-3b",
			FramePath: "/vlm/frame.jpg",
			Prompts:   []string{"Describe the image concisely."},
			Interval:  D(time.Second),
			MaxTokens: 64,
		},
	}
}

// Load applies, in order: defaults, the TOML file at path (optional),
// the env file (optional) and process environment overrides.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load env %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("ORIN_LOG_LEVEL", &c.Log.Level)
	str("ORIN_PROXY", &c.Proxy)
	str("ORIN_AUDIO_SINK", &c.Audio.Sink)
	str("ORIN_AUDIO_SOURCE", &c.Audio.Source)
	str("ORIN_WHISPER_MODEL", &c.STT.ModelPath)
	str("ORIN_TTS_ENGINE", &c.TTS.Engine)
	str("ORIN_LLM_URL", &c.LLM.URL)
	str("ORIN_LLM_MODEL", &c.LLM.Model)
	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("ORIN_HOTWORD", &c.Assistant.Hotword)
	str("ORIN_MQTT_BROKER", &c.MQTT.Broker)
	str("ORIN_MQTT_USERNAME", &c.MQTT.Username)
	str("ORIN_MQTT_PASSWORD", &c.MQTT.Password)
	str("ORIN_MODEM_DEVICE", &c.GPS.Device)
	str("IPSTACK_KEY", &c.GeoIP.IpstackKey)
	str("ORIN_DASHBOARD_ADDR", &c.Dashboard.Addr)
	str("ORIN_ONNX_LIB", &c.Vision.OnnxLib)
	str("ORIN_VLM_URL", &c.VLM.URL)

	if err := integer("ORIN_MODEM_BAUD", &c.GPS.Baud); err != nil {
		return err
	}
	if err := integer("ORIN_POWER_PIN", &c.GPS.PowerPin); err != nil {
		return err
	}
	if err := integer("ORIN_BUTTON_PIN", &c.Dashboard.ButtonPin); err != nil {
		return err
	}

	if c.VLM.APIKey == "" {
		c.VLM.APIKey = c.LLM.APIKey
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	return nil
}
