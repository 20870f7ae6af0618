package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, "hello", cfg.Assistant.Hotword)
	require.Equal(t, 3*time.Second, cfg.Assistant.HotwordWindow.Duration)
	require.Equal(t, 5*time.Second, cfg.Assistant.CommandWindow.Duration)
	require.Equal(t, 80, cfg.LLM.MaxTokens)
	require.Equal(t, 0.7, cfg.LLM.Temperature)
	require.Equal(t, 3, cfg.RAG.TopK)
	require.Equal(t, "/dev/ttyTHS1", cfg.GPS.Device)
	require.Equal(t, 115200, cfg.GPS.Baud)
	require.Equal(t, float32(0.4), cfg.Vision.Threshold)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "orin.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[assistant]
hotword = "jarvis"
command_window = "7s"

[stt]
threads = 4

[gps]
interval = "30s"
baud = 9600

[mqtt]
broker = "tcp://broker:1883"
`), 0o644))

	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("IPSTACK_KEY=from-env-file\n"), 0o644))

	t.Setenv("ORIN_MQTT_BROKER", "tcp://override:1883")
	t.Setenv("ORIN_POWER_PIN", "12")
	t.Setenv("IPSTACK_KEY", "")
	os.Unsetenv("IPSTACK_KEY")

	cfg, err := Load(file, env)
	require.NoError(t, err)

	require.Equal(t, "jarvis", cfg.Assistant.Hotword)
	require.Equal(t, 7*time.Second, cfg.Assistant.CommandWindow.Duration)
	require.Equal(t, 3*time.Second, cfg.Assistant.HotwordWindow.Duration)
	require.Equal(t, 4, cfg.STT.Threads)
	require.Equal(t, 30*time.Second, cfg.GPS.Interval.Duration)
	require.Equal(t, 9600, cfg.GPS.Baud)
	require.Equal(t, 12, cfg.GPS.PowerPin)
	require.Equal(t, "tcp://override:1883", cfg.MQTT.Broker)
	require.Equal(t, "from-env-file", cfg.GeoIP.IpstackKey)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestLoadBadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(file, []byte("[gps]\ninterval = \"soon\"\n"), 0o644))

	_, err := Load(file, "")
	require.Error(t, err)
}

func TestLoadBadEnvInt(t *testing.T) {
	t.Setenv("ORIN_MODEM_BAUD", "fast")
	_, err := Load("", "")
	require.ErrorContains(t, err, "ORIN_MODEM_BAUD")
}
