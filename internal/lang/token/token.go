// Package token defines the lexical tokens produced by the Organic
// tokenizer and the source-location bookkeeping shared by every later
// compiler stage.
package token

import "fmt"

// Location pins a token or AST node to the file it came from. Every
// included file owns its own line/column space: an include boundary never
// stacks an offset into the includer's coordinates.
type Location struct {
	Path     string
	Line     int
	Col      int
	StartTok int
	EndTok   int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Col)
}

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota

	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Colon

	Assign // =
	Eq     // ==
	Lt
	Le
	Gt
	Ge
	Plus
	Minus
	Star
	Slash
	Caret

	Value      // numeric literal (includes note/pi/e conversions)
	StringLit  // "..."
	Identifier // [A-Za-z_][A-Za-z0-9_-]*, unresolved against any reserved set

	// Reserved enum-literal tokens (§3, §4.1).
	SequenceForwards
	SequenceBackwards
	SequencePingPong
	SequenceRandom
	RandomStep
	RandomLinear
	RoundNearest
	RoundUp
	RoundDown
)

var kindNames = map[Kind]string{
	EOF:               "EOF",
	LParen:            "(",
	RParen:            ")",
	LBracket:          "[",
	RBracket:          "]",
	LBrace:            "{",
	RBrace:            "}",
	Comma:             ",",
	Colon:             ":",
	Assign:            "=",
	Eq:                "==",
	Lt:                "<",
	Le:                "<=",
	Gt:                ">",
	Ge:                ">=",
	Plus:              "+",
	Minus:             "-",
	Star:              "*",
	Slash:             "/",
	Caret:             "^",
	Value:             "value",
	StringLit:         "string",
	Identifier:        "identifier",
	SequenceForwards:  "sequence-forwards",
	SequenceBackwards: "sequence-backwards",
	SequencePingPong:  "sequence-ping-pong",
	SequenceRandom:    "sequence-random",
	RandomStep:        "random-step",
	RandomLinear:      "random-linear",
	RoundNearest:      "round-nearest",
	RoundUp:           "round-up",
	RoundDown:         "round-down",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// reservedWords maps the literal spelling of an enum token to its Kind.
// Populated from §3's enum-token list.
var reservedWords = map[string]Kind{
	"sequence-forwards":  SequenceForwards,
	"sequence-backwards": SequenceBackwards,
	"sequence-ping-pong": SequencePingPong,
	"sequence-random":    SequenceRandom,
	"random-step":        RandomStep,
	"random-linear":      RandomLinear,
	"round-nearest":      RoundNearest,
	"round-up":           RoundUp,
	"round-down":         RoundDown,
}

// LookupReserved returns the enum Kind for a reserved spelling, if any.
func LookupReserved(text string) (Kind, bool) {
	k, ok := reservedWords[text]
	return k, ok
}

// Token is a single lexed unit of Organic source.
type Token struct {
	Kind Kind
	Text string  // raw spelling for Identifier/StringLit, canonical for operators
	Num  float64 // populated only when Kind == Value
	Loc  Location
}

func (t Token) String() string {
	switch t.Kind {
	case Value:
		return fmt.Sprintf("%g", t.Num)
	case StringLit:
		return fmt.Sprintf("%q", t.Text)
	default:
		if t.Text != "" {
			return t.Text
		}
		return t.Kind.String()
	}
}
