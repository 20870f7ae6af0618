package audioconv

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	in := sine(SampleRate/2, SampleRate, 440)

	path, err := WriteTempWAV(in, SampleRate)
	require.NoError(t, err)
	defer os.Remove(path)

	out, err := DecodeFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		require.InDelta(t, in[i], out[i], 1e-3)
	}
}

func TestDecodeFileResamplesAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, sine(8000, 8000, 200), 8000))
	require.NoError(t, f.Close())

	out, err := DecodeFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, out, 16000)

	out, err = DecodeFile(context.Background(), path, Options{MaxSamples: 100})
	require.NoError(t, err)
	require.Len(t, out, 100)
}

func TestDecodeFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	_, err := DecodeFile(context.Background(), path, Options{})
	require.Error(t, err)
}

func TestDownmix(t *testing.T) {
	require.Equal(t, []float32{0.5, 0}, Downmix([]float32{1, 0, 0.5, -0.5}, 2))
	in := []float32{1, 2}
	require.Equal(t, in, Downmix(in, 1))
}

func TestResample(t *testing.T) {
	out := Resample([]float32{0, 1}, 1, 2)
	require.Equal(t, []float32{0, 0.5, 1, 1}, out)
	require.Empty(t, Resample(nil, 8000, 16000))
}

func TestFloat32ToInt16Clips(t *testing.T) {
	require.Equal(t, []int16{32767, -32767, 0}, Float32ToInt16([]float32{2, -2, 0}))
}

func TestRMS(t *testing.T) {
	require.Zero(t, RMS(nil))
	require.InDelta(t, 0.5, RMS([]float32{0.5, -0.5}), 1e-9)
}
