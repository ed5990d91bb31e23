package audiosink

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/organic-audio/organic/internal/lang/bytecode"
	"github.com/organic-audio/organic/internal/lang/parser"
	"github.com/organic-audio/organic/internal/lang/vm"
	"github.com/organic-audio/organic/internal/rtctx"
)

func compile(t *testing.T, src string) *bytecode.Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.organic")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	p := parser.New()
	prog, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e := bytecode.NewEmitter()
	c, err := e.Emit(prog)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return c
}

// TestGraphSineFrame checks spec.md §8 scenario 2: sine(volume: 1,
// frequency: 440) at 44100 Hz produces buffer[0] == 0 and buffer[2] (the
// second frame's left channel) approximately sin(2*pi*440/44100)*0.25,
// attenuated once more by play's own top-level volume/pan fader
// (internal/runtime.MixStage), which at its default pan:0 applies the same
// equal-power center gain the source's own pan:0 already applied.
func TestGraphSineFrame(t *testing.T) {
	c := compile(t, `sine(volume: 1, frequency: 440)`)
	ctx := rtctx.New(44100, 2, 1024, 1)
	m := vm.New(ctx, c)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(m.Voices) != 1 {
		t.Fatalf("expected 1 voice, got %d", len(m.Voices))
	}

	g := NewGraph(ctx, m)
	l0, _ := g.NextFrame()
	if l0 != 0 {
		t.Fatalf("frame 0 left = %v, want 0", l0)
	}
	l1, _ := g.NextFrame()
	centerGain := math.Cos(math.Pi / 8)
	want := math.Sin(2*math.Pi*440/44100) * 0.25 * centerGain * centerGain
	if math.Abs(l1-want) > 1e-6 {
		t.Fatalf("frame 1 left = %v, want %v", l1, want)
	}
}

func TestGraphMonoDuplicatesChannel(t *testing.T) {
	c := compile(t, `sine(volume: 1, frequency: 440)`)
	ctx := rtctx.New(44100, 1, 1024, 1)
	m := vm.New(ctx, c)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	g := NewGraph(ctx, m)
	g.NextFrame()
	l, r := g.NextFrame()
	if l != r {
		t.Fatalf("mono frame should duplicate channels, got l=%v r=%v", l, r)
	}
}

func TestGraphToleratesEmptyVoiceSet(t *testing.T) {
	c := compile(t, "hold(value: 1, length: 0.0001)")
	ctx := rtctx.New(44100, 2, 1024, 1)
	m := vm.New(ctx, c)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	// hold() alone isn't an audio source, so topLevel wrapping leaves no
	// voice; this test only exercises that NextFrame tolerates an empty
	// voice set without panicking.
	g := NewGraph(ctx, m)
	for i := 0; i < 16; i++ {
		g.NextFrame()
	}
}

func TestRenderWritesWAV(t *testing.T) {
	c := compile(t, `sine(volume: 1, frequency: 440)`)
	ctx := rtctx.New(8000, 2, 256, 1)
	m := vm.New(ctx, c)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	path := t.TempDir() + "/out.wav"
	if err := Render(ctx, m, 0.01, path); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestRenderRejectsNonPositiveDuration(t *testing.T) {
	c := compile(t, `sine(volume: 1, frequency: 440)`)
	ctx := rtctx.New(8000, 2, 256, 1)
	m := vm.New(ctx, c)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := Render(ctx, m, 0, t.TempDir()+"/out.wav"); err == nil {
		t.Fatalf("expected error for zero duration")
	}
}
