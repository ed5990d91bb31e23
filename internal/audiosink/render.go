package audiosink

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/organic-audio/organic/internal/lang/vm"
	"github.com/organic-audio/organic/internal/rtctx"
)

// clampSample converts a [-1, 1]-ish float64 sample to a clipped 16-bit
// signed integer, matching internal/resource.Load's int32-range scaling in
// reverse.
func clampSample(x float64) int {
	v := int(x * 32767)
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return v
	}
}

// Render pulls durationSeconds worth of frames from a fresh Graph over ctx
// and m and writes them to path as a 16-bit PCM WAV file (the CLI's
// `--export` mode, §6). It is the mirror image of internal/resource.Load:
// that package decodes a WAV into the container's resource blocks, this
// one encodes the synthesized graph back out with the same library.
func Render(ctx *rtctx.Context, m *vm.Machine, durationSeconds float64, path string) error {
	if durationSeconds <= 0 {
		return fmt.Errorf("audiosink: render duration must be positive")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audiosink: %w", err)
	}
	defer f.Close()

	channels := ctx.Channels
	if channels < 1 {
		channels = 1
	}
	enc := wav.NewEncoder(f, int(ctx.SampleRate), 16, channels, 1)

	totalFrames := int(durationSeconds*ctx.SampleRate + 0.5)
	data := make([]int, totalFrames*channels)

	g := NewGraph(ctx, m)
	for i := 0; i < totalFrames; i++ {
		l, r := g.NextFrame()
		if channels == 1 {
			data[i] = clampSample(l)
			continue
		}
		data[2*i] = clampSample(l)
		data[2*i+1] = clampSample(r)
	}

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: int(ctx.SampleRate), NumChannels: channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiosink: writing %q: %w", path, err)
	}
	return enc.Close()
}
