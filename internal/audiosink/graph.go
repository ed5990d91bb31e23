// Package audiosink implements the audio sink adapter (SPEC_FULL §F
// component J): pulling a mixed, scaled buffer from the set of active
// voices a vm.Machine has registered via `play`/`perform`, advancing the
// shared rtctx.Context clock and flushing the event queue one frame at a
// time so no voice is ever asked to fill ahead of where an event might
// still start or stop it (spec.md §5: "no look-ahead").
//
// Grounded on the teacher's internal/audio.StreamReader/ebitaudio.Player
// pull model: that package already solves "a host audio API wants a
// bytes.Reader-shaped float32 PCM source pulled on its own goroutine",
// this package just becomes the SampleSource it pulls from instead of the
// teacher's Sequencer-driven engine mix.
package audiosink

import (
	"github.com/organic-audio/organic/internal/lang/vm"
	"github.com/organic-audio/organic/internal/rtctx"
)

// Graph produces one stereo (or mono-duplicated) sample at a time from a
// compiled Machine's active voices, advancing ctx's clock by one sample
// period per call. It is the single point where both the real-time sink
// and the offline renderer pull frames, so their mixing math can never
// drift apart.
type Graph struct {
	ctx   *rtctx.Context
	m     *vm.Machine
	dt    float64
	frame []float64
}

// NewGraph builds a Graph over m, driven by ctx's sample rate and channel
// count.
func NewGraph(ctx *rtctx.Context, m *vm.Machine) *Graph {
	return &Graph{
		ctx:   ctx,
		m:     m,
		dt:    1 / ctx.SampleRate,
		frame: make([]float64, ctx.Channels),
	}
}

// NextFrame flushes any events due at the current clock, mixes every
// active voice for one frame, advances the clock by one sample period, and
// returns the resulting left/right pair (right duplicates left in mono).
func (g *Graph) NextFrame() (l, r float64) {
	if g.m.Events != nil {
		g.m.Events.PerformEvents(g.ctx.Clock())
	}
	g.pruneVoices()
	for i := range g.frame {
		g.frame[i] = 0
	}
	for _, v := range g.m.Voices {
		v.Source.FillBuffer(g.ctx, g.frame, 1, len(g.frame))
	}
	g.ctx.SetClock(g.ctx.Clock() + g.dt)
	if len(g.frame) == 1 {
		return g.frame[0], g.frame[0]
	}
	return g.frame[0], g.frame[1]
}

// pruneVoices drops voices whose source has permanently stopped (§5's
// active-source set is mutated by the control loop; here that is simply
// the same goroutine that is about to mix the next frame). A voice with no
// parent to restart it, once disabled, never re-enables (§3's Sync
// contract), so this is a one-way filter, not a generational check.
func (g *Graph) pruneVoices() {
	kept := g.m.Voices[:0]
	for _, v := range g.m.Voices {
		if v.Source.SyncState().Enabled {
			kept = append(kept, v)
		}
	}
	g.m.Voices = kept
}
