// Package rtctx defines the process-wide runtime configuration threaded
// explicitly into every start/getValue/fillBuffer call, replacing the
// source's "Utils" singleton (sample rate, clock, RNG) per §9's "Shared
// mutable globals" design note. It is grounded on the teacher's per-engine
// sampleRate float64 fields (e.g. wavetable.Engine, fm.Engine) generalized
// into one explicit context value instead of one copy per engine.
package rtctx

import (
	"math"
	"math/rand"
	"sync/atomic"
)

// Context carries the handful of process-wide values every Sync node and
// audio source needs: the sample rate, channel count, output buffer length,
// the shared PRNG, and the monotonic clock. The clock is a single float64
// written only by the control loop and read by both loops; on the target
// platforms a plain load/store is atomic, but it is stored behind
// atomic.Uint64 bit-patterns here so the contract holds regardless.
type Context struct {
	SampleRate   float64
	Channels     int
	BufferFrames int

	rng   *rand.Rand
	clock atomic.Uint64
}

// New creates a Context for the given sample rate, channel count, and
// per-callback buffer length (in frames). The shared PRNG is seeded with
// seed; callers that want non-deterministic audio pass a time-derived seed,
// callers that want reproducible tests pass a fixed one.
func New(sampleRate float64, channels, bufferFrames int, seed int64) *Context {
	c := &Context{SampleRate: sampleRate, Channels: channels, BufferFrames: bufferFrames, rng: rand.New(rand.NewSource(seed))}
	c.clock.Store(0)
	return c
}

// Clock returns the current synthesis time in seconds.
func (c *Context) Clock() float64 {
	return math.Float64frombits(c.clock.Load())
}

// SetClock advances the synthesis clock. Only the control loop calls this.
func (c *Context) SetClock(t float64) {
	c.clock.Store(math.Float64bits(t))
}

// Rand returns the shared PRNG. Every Random node and the noise source draw
// from this single generator, matching the source's one-RNG-per-process
// design; callers on the audio callback must not share it concurrently with
// the control loop (the source's single-producer constraint, §5).
func (c *Context) Rand() *rand.Rand { return c.rng }
