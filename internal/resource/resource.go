// Package resource decodes a WAV file into the interleaved int32 PCM
// format the bytecode container's resource blocks carry. Grounded on
// tphakala-birdnet-go's wav.NewDecoder/decoder.PCMBuffer read loop, swapped
// from that file's fixed-sample-rate mono chunking to a generic
// whole-file, any-channel-count decode matching `sample(path:...)`'s
// needs.
package resource

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Load decodes the WAV file at path into interleaved PCM samples scaled to
// the full int32 range, matching the emitter's
// `func(path string) (sampleRate, channels int, samples []int32, err error)`
// ResourceLoader contract.
func Load(path string) (sampleRate, channels int, samples []int32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("resource: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return 0, 0, nil, fmt.Errorf("resource: %q is not a valid WAV file", path)
	}

	sampleRate = int(dec.SampleRate)
	channels = int(dec.NumChans)

	var divisor int64
	switch dec.BitDepth {
	case 8:
		divisor = 128
	case 16:
		divisor = 32768
	case 24:
		divisor = 8388608
	case 32:
		divisor = 2147483648
	default:
		return 0, 0, nil, fmt.Errorf("resource: %q has unsupported bit depth %d", path, dec.BitDepth)
	}
	scale := float64(2147483648) / float64(divisor)

	buf := &audio.IntBuffer{
		Data:   make([]int, 4096),
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: channels},
	}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("resource: decoding %q: %w", path, err)
		}
		if n == 0 {
			break
		}
		for _, v := range buf.Data[:n] {
			samples = append(samples, int32(float64(v)*scale))
		}
	}
	return sampleRate, channels, samples, nil
}
