package runtime

import (
	"math"

	"github.com/organic-audio/organic/internal/effects"
	"github.com/organic-audio/organic/internal/rtctx"
)

// sourceHeadroom is the per-source mix scale applied before summing voices.
// mixInto multiplies it with the equal-power pan gain as well, so a centred
// `sine(volume:1, frequency:440)` gives sin(2*pi*440/44100)*0.25*cos(pi/8)
// per channel before any play/MixStage fader.
const sourceHeadroom = 0.25

// AudioSource is any ValueObject additionally able to fill an interleaved
// output buffer (§4.5's "Common contract"). fillBuffer accumulates
// additively into dst, so the caller must clear dst first.
type AudioSource interface {
	ValueObject
	FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int)
}

// equalPowerPan computes the left/right gain for pan in [-1, 1] (§4.5).
func equalPowerPan(pan float64) (l, r float64) {
	theta := (math.Pi / 4) * (1 + pan) / 2
	return math.Cos(theta), math.Sin(theta)
}

// mixInto writes one sample, scaled by volume/pan/headroom, additively
// into dst at frame i.
func mixInto(dst []float64, i, channels int, sample, volume, pan float64) {
	l, r := equalPowerPan(pan)
	base := i * channels
	dst[base] += sample * volume * sourceHeadroom * l
	if channels > 1 && base+1 < len(dst) {
		dst[base+1] += sample * volume * sourceHeadroom * r
	}
}

// OscKind selects the oscillator waveform.
type OscKind int

const (
	OscSine OscKind = iota
	OscSquare
	OscTriangle
	OscSaw
)

// Oscillator is the common sine/square/triangle/saw audio source: a single
// phase accumulator advanced by 2*pi*frequency/sampleRate each tick, with
// no natural end (§4.5).
type Oscillator struct {
	Base
	Kind                  OscKind
	Frequency, Volume, Pan ValueObject
	phase                 float64
}

func NewOscillator(kind OscKind, frequency, volume, pan ValueObject) *Oscillator {
	return &Oscillator{Kind: kind, Frequency: frequency, Volume: volume, Pan: pan}
}

func (o *Oscillator) initOnce(ctx *rtctx.Context) {
	EnsureStarted(ctx, o.Frequency, o.Sy.StartTime)
	EnsureStarted(ctx, o.Volume, o.Sy.StartTime)
	EnsureStarted(ctx, o.Pan, o.Sy.StartTime)
}
func (o *Oscillator) reinit(ctx *rtctx.Context) {}
func (o *Oscillator) SyncLength() float64       { return math.Inf(1) }

func waveformAt(kind OscKind, phase float64) float64 {
	switch kind {
	case OscSquare:
		if math.Sin(phase) >= 0 {
			return 1
		}
		return -1
	case OscTriangle:
		return 2 / math.Pi * math.Asin(math.Sin(phase))
	case OscSaw:
		return 2 / math.Pi * math.Atan(math.Tan(phase/2))
	default:
		return math.Sin(phase)
	}
}

// GetValue advances phase and returns the bare waveform sample (before
// volume/pan), so the node also composes as an ordinary ValueObject
// (e.g. as an LFO's amplitude source).
func (o *Oscillator) GetValue(ctx *rtctx.Context) float64 {
	v := waveformAt(o.Kind, o.phase)
	freq := o.Frequency.GetValue(ctx)
	o.phase += 2 * math.Pi * freq / ctx.SampleRate
	for o.phase >= 2*math.Pi {
		o.phase -= 2 * math.Pi
	}
	o.Last = v
	return v
}

func (o *Oscillator) FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int) {
	for i := 0; i < nFrames; i++ {
		sample := o.GetValue(ctx)
		vol := o.Volume.GetValue(ctx)
		pan := o.Pan.GetValue(ctx)
		mixInto(dst, i, channels, sample, vol, pan)
	}
}

// Noise is a white-noise audio source drawn from the shared PRNG (§4.5).
type Noise struct {
	Base
	Volume, Pan ValueObject
}

func NewNoise(volume, pan ValueObject) *Noise { return &Noise{Volume: volume, Pan: pan} }

func (n *Noise) initOnce(ctx *rtctx.Context) {
	EnsureStarted(ctx, n.Volume, n.Sy.StartTime)
	EnsureStarted(ctx, n.Pan, n.Sy.StartTime)
}
func (n *Noise) reinit(ctx *rtctx.Context) {}
func (n *Noise) SyncLength() float64       { return math.Inf(1) }

func (n *Noise) GetValue(ctx *rtctx.Context) float64 {
	n.Last = ctx.Rand().Float64()*2 - 1
	return n.Last
}

func (n *Noise) FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int) {
	for i := 0; i < nFrames; i++ {
		sample := n.GetValue(ctx)
		vol := n.Volume.GetValue(ctx)
		pan := n.Pan.GetValue(ctx)
		mixInto(dst, i, channels, sample, vol, pan)
	}
}

// WaveTable is a single-cycle, user-supplied lookup table consulted by the
// Oscillator-family `oscillator(...)` intrinsic (SPEC_FULL §D.5), grounded
// on internal/wavetable.Engine's phase-accumulation + linear-interpolated
// table lookup, reduced from that file's polyphonic envelope voice engine
// down to the single stateless lookup Organic's model needs.
type WaveTable struct {
	Table []float64
}

// Lookup returns the linearly-interpolated table value at phase in
// [0, 2*pi).
func (w *WaveTable) Lookup(phase float64) float64 {
	n := len(w.Table)
	if n == 0 {
		return 0
	}
	pos := phase / (2 * math.Pi) * float64(n)
	i0 := int(math.Floor(pos)) % n
	if i0 < 0 {
		i0 += n
	}
	i1 := (i0 + 1) % n
	frac := pos - math.Floor(pos)
	return w.Table[i0]*(1-frac) + w.Table[i1]*frac
}

// UserOscillator is the `oscillator(table:[...], frequency:...)` audio
// source: same phase-accumulation contract as Oscillator but reading its
// waveform from a user-supplied WaveTable instead of a closed-form
// function (SPEC_FULL §D.5).
type UserOscillator struct {
	Base
	Table               *WaveTable
	Frequency, Volume, Pan ValueObject
	phase               float64
}

func NewUserOscillator(table *WaveTable, frequency, volume, pan ValueObject) *UserOscillator {
	return &UserOscillator{Table: table, Frequency: frequency, Volume: volume, Pan: pan}
}

func (o *UserOscillator) initOnce(ctx *rtctx.Context) {
	EnsureStarted(ctx, o.Frequency, o.Sy.StartTime)
	EnsureStarted(ctx, o.Volume, o.Sy.StartTime)
	EnsureStarted(ctx, o.Pan, o.Sy.StartTime)
}
func (o *UserOscillator) reinit(ctx *rtctx.Context) {}
func (o *UserOscillator) SyncLength() float64       { return math.Inf(1) }

func (o *UserOscillator) GetValue(ctx *rtctx.Context) float64 {
	v := o.Table.Lookup(o.phase)
	freq := o.Frequency.GetValue(ctx)
	o.phase += 2 * math.Pi * freq / ctx.SampleRate
	for o.phase >= 2*math.Pi {
		o.phase -= 2 * math.Pi
	}
	o.Last = v
	return v
}

func (o *UserOscillator) FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int) {
	for i := 0; i < nFrames; i++ {
		sample := o.GetValue(ctx)
		vol := o.Volume.GetValue(ctx)
		pan := o.Pan.GetValue(ctx)
		mixInto(dst, i, channels, sample, vol, pan)
	}
}

// Sample streams a decoded PCM Resource, looping if configured and
// snapping to the next grain boundary at or after the loop point when
// grains are present (§9 Open Questions, resolved in SPEC_FULL §E:
// grains is a []int of frame indices).
type Sample struct {
	Base
	Resource    *Resource
	Volume, Pan ValueObject
	Loop        bool
	Grains      []int
	pos         int
}

func NewSample(resource *Resource, volume, pan ValueObject, loop bool, grains []int) *Sample {
	return &Sample{Resource: resource, Volume: volume, Pan: pan, Loop: loop, Grains: grains}
}

func (s *Sample) initOnce(ctx *rtctx.Context) {
	EnsureStarted(ctx, s.Volume, s.Sy.StartTime)
	EnsureStarted(ctx, s.Pan, s.Sy.StartTime)
	s.pos = 0
}
func (s *Sample) reinit(ctx *rtctx.Context) { s.pos = 0 }

func (s *Sample) frameCount() int {
	if s.Resource == nil || s.Resource.Channels == 0 {
		return 0
	}
	return len(s.Resource.Samples) / s.Resource.Channels
}

func (s *Sample) SyncLength() float64 {
	if s.Loop || s.Resource == nil || s.Resource.SampleRate == 0 {
		return math.Inf(1)
	}
	return float64(s.frameCount()) / float64(s.Resource.SampleRate)
}

func (s *Sample) nextGrainBoundary(from int) int {
	if len(s.Grains) == 0 {
		return 0
	}
	for _, g := range s.Grains {
		if g >= from {
			return g
		}
	}
	return s.Grains[0]
}

func (s *Sample) frameAt(frame, channel int) float64 {
	r := s.Resource
	idx := frame*r.Channels + channel%r.Channels
	if idx < 0 || idx >= len(r.Samples) {
		return 0
	}
	return float64(r.Samples[idx]) / 2147483648.0
}

func (s *Sample) GetValue(ctx *rtctx.Context) float64 {
	if s.Resource == nil {
		return 0
	}
	n := s.frameCount()
	if n == 0 {
		return 0
	}
	if s.pos >= n {
		if !s.Loop {
			s.Sy.Enabled = false
			return s.Last
		}
		s.pos = s.nextGrainBoundary(0)
	}
	v := s.frameAt(s.pos, 0)
	s.pos++
	s.Last = v
	return v
}

func (s *Sample) FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int) {
	for i := 0; i < nFrames; i++ {
		if !s.Sy.Enabled {
			return
		}
		sample := s.GetValue(ctx)
		vol := s.Volume.GetValue(ctx)
		pan := s.Pan.GetValue(ctx)
		mixInto(dst, i, channels, sample, vol, pan)
	}
}

// EffectSource wraps a child AudioSource, running its mixed buffer through
// an effects.Chain before the caller further mixes it (§4.5's per-source
// effects stage; §9's Effect interface). Grounded on the teacher's
// effects.Chain/Effector composition.
type EffectSource struct {
	Base
	Inner AudioSource
	Chain *effects.Chain
	buf   []float64
}

func NewEffectSource(inner AudioSource, chain *effects.Chain) *EffectSource {
	return &EffectSource{Inner: inner, Chain: chain}
}

func (e *EffectSource) initOnce(ctx *rtctx.Context) { EnsureStarted(ctx, e.Inner, e.Sy.StartTime) }
func (e *EffectSource) reinit(ctx *rtctx.Context)   { Repeat(ctx, e.Inner, e.Sy.RepeatTime) }
func (e *EffectSource) SyncLength() float64         { return e.Inner.SyncLength() }

func (e *EffectSource) GetValue(ctx *rtctx.Context) float64 {
	v := e.Inner.GetValue(ctx)
	if !e.Inner.SyncState().Enabled {
		e.Sy.Enabled = false
	}
	e.Last = v
	return v
}

func (e *EffectSource) FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int) {
	if cap(e.buf) < nFrames*channels {
		e.buf = make([]float64, nFrames*channels)
	}
	buf := e.buf[:nFrames*channels]
	for i := range buf {
		buf[i] = 0
	}
	e.Inner.FillBuffer(ctx, buf, nFrames, channels)
	if !e.Inner.SyncState().Enabled {
		e.Sy.Enabled = false
	}
	if e.Chain == nil {
		for i := range buf {
			dst[i] += buf[i]
		}
		return
	}
	for i := 0; i < nFrames; i++ {
		l := float32(buf[i*channels])
		r := l
		if channels > 1 {
			r = float32(buf[i*channels+1])
		}
		l, r = e.Chain.Process(l, r)
		dst[i*channels] += float64(l)
		if channels > 1 {
			dst[i*channels+1] += float64(r)
		}
	}
}

// MixStage applies `play`'s own volume/pan on top of whatever gain/pan its
// inner source already applied: a second, final mixer-fader stage rather
// than a substitute for the source's own (§4.5 lists volume/pan as a
// per-source property; `play`'s identically-named arguments are the
// top-level channel fader for that voice).
type MixStage struct {
	Base
	Inner       AudioSource
	Volume, Pan ValueObject
	buf         []float64
}

func NewMixStage(inner AudioSource, volume, pan ValueObject) *MixStage {
	return &MixStage{Inner: inner, Volume: volume, Pan: pan}
}

func (s *MixStage) initOnce(ctx *rtctx.Context) {
	EnsureStarted(ctx, s.Inner, s.Sy.StartTime)
	EnsureStarted(ctx, s.Volume, s.Sy.StartTime)
	EnsureStarted(ctx, s.Pan, s.Sy.StartTime)
}
func (s *MixStage) reinit(ctx *rtctx.Context) { Repeat(ctx, s.Inner, s.Sy.RepeatTime) }
func (s *MixStage) SyncLength() float64       { return s.Inner.SyncLength() }

func (s *MixStage) GetValue(ctx *rtctx.Context) float64 {
	v := s.Inner.GetValue(ctx)
	if !s.Inner.SyncState().Enabled {
		s.Sy.Enabled = false
	}
	s.Last = v
	return v
}

func (s *MixStage) FillBuffer(ctx *rtctx.Context, dst []float64, nFrames, channels int) {
	if cap(s.buf) < nFrames*channels {
		s.buf = make([]float64, nFrames*channels)
	}
	buf := s.buf[:nFrames*channels]
	for i := range buf {
		buf[i] = 0
	}
	s.Inner.FillBuffer(ctx, buf, nFrames, channels)
	if !s.Inner.SyncState().Enabled {
		s.Sy.Enabled = false
	}
	for i := 0; i < nFrames; i++ {
		vol := s.Volume.GetValue(ctx)
		pan := s.Pan.GetValue(ctx)
		l, r := equalPowerPan(pan)
		base := i * channels
		dst[base] += buf[base] * vol * l
		if channels > 1 && base+1 < len(buf) {
			dst[base+1] += buf[base+1] * vol * r
		}
	}
}
