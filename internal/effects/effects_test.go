package effects

import (
	"math"
	"testing"
)

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 100, 0.5, 0, 0.5)
	// Feed a pulse and check delayed output appears
	d.Process(1.0, 1.0)
	for i := 0; i < 4409; i++ { // ~100ms at 44100Hz
		d.Process(0, 0)
	}
	l, r := d.Process(0, 0)
	if math.Abs(float64(l)) < 0.01 || math.Abs(float64(r)) < 0.01 {
		t.Errorf("expected delayed output, got l=%f r=%f", l, r)
	}
}

func TestDelayResetClearsBuffer(t *testing.T) {
	d := NewDelay(44100, 10, 0.9, 0, 1.0)
	d.Process(1.0, 1.0)
	d.Reset()
	l, r := d.Process(0, 0)
	if l != 0 || r != 0 {
		t.Errorf("expected silence after reset, got l=%f r=%f", l, r)
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	// Each 5ms tap at 44100Hz is 220 samples; the pulse must clear both taps
	// in series (440 samples total) before the chain's output is nonzero.
	c := NewChain(
		NewDelay(44100, 5, 0, 0, 1.0),
		NewDelay(44100, 5, 0, 0, 1.0),
	)
	c.Process(1.0, 1.0)
	for i := 0; i < 439; i++ {
		c.Process(0, 0)
	}
	l, r := c.Process(0, 0)
	if math.Abs(float64(l)) < 0.01 || math.Abs(float64(r)) < 0.01 {
		t.Errorf("chained delays should still produce output after both taps, got l=%f r=%f", l, r)
	}
}

func TestChainAddAppendsEffect(t *testing.T) {
	c := NewChain()
	c.Add(NewDelay(44100, 100, 0.5, 0, 0.5))
	l, r := c.Process(1.0, 1.0)
	if l == 0 && r == 0 {
		t.Error("chain with an added effect should still pass dry signal through")
	}
}
