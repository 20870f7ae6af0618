package audioconv

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/multierr"
)

// WriteWAV encodes pcm as mono 16-bit PCM.
func WriteWAV(w io.WriteSeeker, pcm []float32, rate int) error {
	enc := wav.NewEncoder(w, rate, 16, 1, 1)

	samples := Float32ToInt16(pcm)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return multierr.Append(fmt.Errorf("write samples: %w", err), enc.Close())
	}
	return enc.Close()
}

// WriteTempWAV writes pcm to a new file in the temp dir. The caller
// removes it.
func WriteTempWAV(pcm []float32, rate int) (path string, err error) {
	f, err := os.CreateTemp("", "orin-*.wav")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			os.Remove(path)
			path = ""
		}
	}()

	if err := WriteWAV(f, pcm, rate); err != nil {
		return path, err
	}
	return path, nil
}
