package vm

import (
	"github.com/organic-audio/organic/internal/diag"
	"github.com/organic-audio/organic/internal/effects"
	"github.com/organic-audio/organic/internal/events"
	"github.com/organic-audio/organic/internal/lang/bytecode"
	"github.com/organic-audio/organic/internal/runtime"
)

// callNative builds the runtime.Object a single CALL_NATIVE instruction
// produces, dispatching on id the same way the original machine.cpp's
// native-call table does (SPEC_FULL §F component G), but constructing a Go
// struct from internal/runtime instead of mutating an interpreter-owned
// object pool.
func (m *Machine) callNative(id bytecode.NativeID, args []runtime.Object) (runtime.Object, error) {
	switch id {
	case bytecode.NativeList:
		return &runtime.List{Items: args}, nil
	case bytecode.NativeTime:
		return runtime.NewTime(), nil

	case bytecode.NativeAdd, bytecode.NativeSubtract, bytecode.NativeMultiply,
		bytecode.NativeDivide, bytecode.NativePower, bytecode.NativeEqual,
		bytecode.NativeLess, bytecode.NativeGreater, bytecode.NativeLessEqual,
		bytecode.NativeGreaterEqual:
		return m.buildBinOp(id, args)

	case bytecode.NativeAll, bytecode.NativeAny, bytecode.NativeNone:
		return runtime.NewBoolCombinator(boolCombinatorKind(id), asValueObjects(args, 0)), nil
	case bytecode.NativeMin, bytecode.NativeMax:
		kind := runtime.ReduceMin
		if id == bytecode.NativeMax {
			kind = runtime.ReduceMax
		}
		return runtime.NewMinMax(kind, asValueObjects(args, 0)), nil
	case bytecode.NativeRound:
		return runtime.NewRound(argValue(args, 0, 0), roundMode(argInt(args, 1, 0))), nil

	case bytecode.NativeSine:
		return runtime.NewOscillator(runtime.OscSine, argValue(args, 0, 440), argValue(args, 1, 1), argValue(args, 2, 0)), nil
	case bytecode.NativeSquare:
		return runtime.NewOscillator(runtime.OscSquare, argValue(args, 0, 440), argValue(args, 1, 1), argValue(args, 2, 0)), nil
	case bytecode.NativeTriangle:
		return runtime.NewOscillator(runtime.OscTriangle, argValue(args, 0, 440), argValue(args, 1, 1), argValue(args, 2, 0)), nil
	case bytecode.NativeSaw:
		return runtime.NewOscillator(runtime.OscSaw, argValue(args, 0, 440), argValue(args, 1, 1), argValue(args, 2, 0)), nil
	case bytecode.NativeNoise:
		return runtime.NewNoise(argValue(args, 0, 1), argValue(args, 1, 0)), nil
	case bytecode.NativeSample:
		return m.buildSample(args)
	case bytecode.NativeOscillator:
		return m.buildUserOscillator(args)

	case bytecode.NativeHold:
		return runtime.NewHold(argValue(args, 0, 0), argValue(args, 1, 1)), nil
	case bytecode.NativeLFO:
		return runtime.NewLFO(argValue(args, 0, 0), argValue(args, 1, 1), argValue(args, 2, 1)), nil
	case bytecode.NativeSweep:
		return runtime.NewSweep(argValue(args, 0, 0), argValue(args, 1, 1), argValue(args, 2, 1)), nil
	case bytecode.NativeSequence:
		return runtime.NewSequence(asValueObjects(args, 0), sequenceOrder(argInt(args, 1, 0))), nil
	case bytecode.NativeRepeat:
		return runtime.NewRepeat(argValue(args, 0, 0), argInt(args, 1, 0)), nil
	case bytecode.NativeRandom:
		return runtime.NewRandom(argValue(args, 0, 0), argValue(args, 1, 1), argValue(args, 2, 1), randomType(argInt(args, 3, 0))), nil
	case bytecode.NativeLimit:
		return runtime.NewLimit(argValue(args, 0, 0), argValue(args, 1, negInf), argValue(args, 2, posInf)), nil
	case bytecode.NativeTrigger:
		return runtime.NewTrigger(argValue(args, 0, 0), argValue(args, 1, 0)), nil
	case bytecode.NativeIf:
		return runtime.NewIf(argValue(args, 0, 0), argValue(args, 1, 0), argValue(args, 2, 0)), nil

	case bytecode.NativeDelay:
		return m.buildDelay(args)

	case bytecode.NativePlay:
		return m.buildPlay(args)
	case bytecode.NativePerform:
		return m.buildPerform(args)
	}
	return nil, diag.Machinef("unknown native id 0x%02x", byte(id))
}

const (
	negInf = -1e308
	posInf = 1e308
)

func argOr(args []runtime.Object, i int) runtime.Object {
	if i < 0 || i >= len(args) {
		return runtime.Default{}
	}
	return args[i]
}

// argValue coerces argument i to a ValueObject, substituting a Number(def)
// for an omitted (STACK_PUSH_DEFAULT) argument.
func argValue(args []runtime.Object, i int, def float64) runtime.ValueObject {
	o := argOr(args, i)
	if _, isDefault := o.(runtime.Default); isDefault {
		return runtime.NewNumber(def)
	}
	if vo, ok := runtime.AsValueObject(o); ok {
		return vo
	}
	return runtime.NewNumber(def)
}

// argInt reads argument i as an integer (enum ordinals, repeat counts). Only
// a plain Number is read; any other Object (e.g. a controller built from an
// expression) yields def.
func argInt(args []runtime.Object, i int, def int) int {
	o := argOr(args, i)
	if n, ok := o.(*runtime.Number); ok {
		return int(n.Val)
	}
	return def
}

func asValueObjects(args []runtime.Object, from int) []runtime.ValueObject {
	var out []runtime.ValueObject
	if from < len(args) {
		if l, ok := args[from].(*runtime.List); ok {
			for _, it := range l.Items {
				if vo, ok := runtime.AsValueObject(it); ok {
					out = append(out, vo)
				}
			}
			return out
		}
	}
	for _, a := range args[max(from, 0):] {
		if vo, ok := runtime.AsValueObject(a); ok {
			out = append(out, vo)
		}
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func boolCombinatorKind(id bytecode.NativeID) runtime.BoolCombinatorKind {
	switch id {
	case bytecode.NativeAll:
		return runtime.CombinatorAll
	case bytecode.NativeAny:
		return runtime.CombinatorAny
	default:
		return runtime.CombinatorNone
	}
}

func roundMode(ordinal int) runtime.RoundMode {
	switch ordinal {
	case 1:
		return runtime.RoundUp
	case 2:
		return runtime.RoundDown
	default:
		return runtime.RoundNearest
	}
}

func sequenceOrder(ordinal int) runtime.SequenceOrder {
	switch ordinal {
	case 1:
		return runtime.OrderBackwards
	case 2:
		return runtime.OrderPingPong
	case 3:
		return runtime.OrderRandom
	default:
		return runtime.OrderForwards
	}
}

func randomType(ordinal int) runtime.RandomType {
	if ordinal == 1 {
		return runtime.RandomLinear
	}
	return runtime.RandomStep
}

func (m *Machine) buildBinOp(id bytecode.NativeID, args []runtime.Object) (runtime.Object, error) {
	kinds := map[bytecode.NativeID]runtime.BinOpKind{
		bytecode.NativeAdd: runtime.OpAdd, bytecode.NativeSubtract: runtime.OpSubtract,
		bytecode.NativeMultiply: runtime.OpMultiply, bytecode.NativeDivide: runtime.OpDivide,
		bytecode.NativePower: runtime.OpPower, bytecode.NativeEqual: runtime.OpEqual,
		bytecode.NativeLess: runtime.OpLess, bytecode.NativeGreater: runtime.OpGreater,
		bytecode.NativeLessEqual: runtime.OpLessEqual, bytecode.NativeGreaterEqual: runtime.OpGreaterEqual,
	}
	if len(args) != 2 {
		return nil, diag.Machinef("binary operator called with %d operands, want 2", len(args))
	}
	return runtime.NewBinOp(kinds[id], argValue(args, 0, 0), argValue(args, 1, 0)), nil
}

func (m *Machine) buildSample(args []runtime.Object) (runtime.Object, error) {
	res, ok := argOr(args, 0).(*runtime.Resource)
	if !ok {
		return nil, diag.Machinef("sample: expected a resource argument")
	}
	volume := argValue(args, 1, 1)
	pan := argValue(args, 2, 0)
	loop := argInt(args, 3, 0) != 0
	return runtime.NewSample(res, volume, pan, loop, nil), nil
}

func (m *Machine) buildUserOscillator(args []runtime.Object) (runtime.Object, error) {
	l, ok := argOr(args, 0).(*runtime.List)
	if !ok {
		return nil, diag.Machinef("oscillator: expected a table list argument")
	}
	table := &runtime.WaveTable{Table: make([]float64, len(l.Items))}
	for i, it := range l.Items {
		if n, ok := it.(*runtime.Number); ok {
			table.Table[i] = n.Val
		}
	}
	freq := argValue(args, 1, 440)
	volume := argValue(args, 2, 1)
	pan := argValue(args, 3, 0)
	return runtime.NewUserOscillator(table, freq, volume, pan), nil
}

// asAudioSource coerces o into an AudioSource, the only Object kind
// `delay`/`play` can meaningfully wrap.
func asAudioSource(o runtime.Object) (runtime.AudioSource, bool) {
	as, ok := o.(runtime.AudioSource)
	return as, ok
}

func (m *Machine) buildDelay(args []runtime.Object) (runtime.Object, error) {
	inner, ok := asAudioSource(argOr(args, 0))
	if !ok {
		return nil, diag.Machinef("delay: value argument must be an audio source")
	}
	timeSec := argValue(args, 1, 0.3).GetValue(m.ctx)
	feedback := float32(argValue(args, 2, 0.4).GetValue(m.ctx))
	mix := float32(argValue(args, 3, 0.5).GetValue(m.ctx))
	delayMs := timeSec * 1000
	d := effects.NewDelay(int(m.ctx.SampleRate), delayMs, feedback, 0, mix)
	chain := effects.NewChain(d)
	return runtime.NewEffectSource(inner, chain), nil
}

func (m *Machine) buildPlay(args []runtime.Object) (runtime.Object, error) {
	src, ok := asAudioSource(argOr(args, 0))
	if !ok {
		// A bare ValueObject played alone (e.g. `play(440)`) has no
		// meaningful waveform; treat it as a silent no-op voice rather
		// than failing the whole program.
		return &runtime.List{}, nil
	}
	voice := runtime.AudioSource(runtime.NewMixStage(src, argValue(args, 1, 1), argValue(args, 2, 0)))
	runtime.Start(m.ctx, voice, m.ctx.Clock())
	for _, v := range m.Voices {
		if v.Source == src {
			// src is already a registered voice (an audio source standing
			// alone in a function body); this play takes over that voice
			// rather than mixing the same signal in twice.
			v.Source = voice
			return voice, nil
		}
	}
	m.Voices = append(m.Voices, &Voice{Source: voice})
	return voice, nil
}

func (m *Machine) buildPerform(args []runtime.Object) (runtime.Object, error) {
	values := asValueObjects(args, 0)
	interval := argValue(args, 1, 1).GetValue(m.ctx)
	repeats := argInt(args, 2, 0)

	var pattern []float64
	if l, ok := argOr(args, 3).(*runtime.List); ok {
		for _, it := range l.Items {
			if n, ok := it.(*runtime.Number); ok {
				pattern = append(pattern, n.Val)
			}
		}
	}

	if len(values) == 0 {
		return &runtime.List{}, nil
	}
	if m.Events == nil {
		m.Events = events.New(func() float64 { return m.ctx.Rand().Float64() })
	}

	kind := events.Repeated
	if len(pattern) > 0 {
		kind = events.Rhythm
	}
	idx := 0
	e := &events.Event{
		Kind:         kind,
		NextFireTime: m.ctx.Clock(),
		Interval:     interval,
		Repeats:      repeats,
		Pattern:      pattern,
		Callback: func(now, scheduled float64) {
			v := values[idx%len(values)]
			idx++
			if as, ok := asAudioSource(v); ok {
				runtime.Start(m.ctx, as, now)
				m.Voices = append(m.Voices, &Voice{Source: as})
				return
			}
			runtime.Start(m.ctx, v, now)
		},
	}
	m.Events.Schedule(e)
	return &runtime.List{}, nil
}
