package token

import (
	"math"
	"testing"
)

func TestNoteFrequencyA4(t *testing.T) {
	freq, ok := NoteFrequency("a4")
	if !ok {
		t.Fatalf("expected a4 to resolve")
	}
	if math.Abs(freq-440.0) > 1e-9 {
		t.Fatalf("a4 = %v, want 440", freq)
	}
}

func TestNoteFrequencyC4(t *testing.T) {
	freq, ok := NoteFrequency("c4")
	if !ok {
		t.Fatalf("expected c4 to resolve")
	}
	want := 440.0 * math.Pow(2, -9.0/12.0)
	if math.Abs(freq-want) > 1e-9 {
		t.Fatalf("c4 = %v, want %v", freq, want)
	}
}

func TestNoteFrequencySharpFlat(t *testing.T) {
	sharp, ok := NoteFrequency("cs4")
	if !ok {
		t.Fatalf("expected cs4 to resolve")
	}
	flat, ok := NoteFrequency("df4")
	if !ok {
		t.Fatalf("expected df4 to resolve")
	}
	if math.Abs(sharp-flat) > 1e-9 {
		t.Fatalf("cs4 (%v) should equal df4 (%v)", sharp, flat)
	}
}

func TestTokenizeCallExpression(t *testing.T) {
	src := `sine(frequency: 440, pan: -1)`
	toks, err := NewLexer("test.organic", src).Tokenize()
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	want := []Kind{Identifier, LParen, Identifier, Colon, Value, Comma, Identifier, Colon, Value, RParen, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[len(toks)-3].Num != -1 {
		t.Fatalf("expected folded literal -1, got %v", toks[len(toks)-3].Num)
	}
}

func TestTokenizeMinusIsOperatorAfterIdentifier(t *testing.T) {
	src := `a - 1`
	toks, err := NewLexer("test.organic", src).Tokenize()
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	if toks[1].Kind != Minus {
		t.Fatalf("expected Minus operator, got %v", toks[1].Kind)
	}
}

func TestTokenizeComments(t *testing.T) {
	src := "// line comment\nsine() /* block\ncomment */ (1)"
	toks, err := NewLexer("test.organic", src).Tokenize()
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	if toks[0].Kind != Identifier || toks[0].Text != "sine" {
		t.Fatalf("expected sine identifier first, got %v", toks[0])
	}
}

func TestTokenizeString(t *testing.T) {
	src := `sample(path: "kick.wav")`
	toks, err := NewLexer("test.organic", src).Tokenize()
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	found := false
	for _, tok := range toks {
		if tok.Kind == StringLit && tok.Text == "kick.wav" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected string literal kick.wav in %v", toks)
	}
}

func TestTokenizeReservedEnum(t *testing.T) {
	src := `sequence-ping-pong`
	toks, err := NewLexer("test.organic", src).Tokenize()
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}
	if toks[0].Kind != SequencePingPong {
		t.Fatalf("expected SequencePingPong, got %v", toks[0].Kind)
	}
}
