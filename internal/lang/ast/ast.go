// Package ast defines the Organic abstract syntax tree as a closed set of
// node types discriminated by an explicit Kind tag, rather than through a
// deep interface hierarchy walked with type assertions.
package ast

import "github.com/organic-audio/organic/internal/lang/token"

// Kind discriminates the AST node variants.
type Kind int

const (
	KindProgram Kind = iota
	KindInclude
	KindDefine
	KindAssign
	KindCall
	KindArgument
	KindList
	KindParen
	KindValue
	KindStringLit
	KindEnumLit
	KindVariableRef
	KindInputRef
	KindFunctionRef
	KindAdd
	KindSubtract
	KindMultiply
	KindDivide
	KindPower
	KindEqual
	KindLess
	KindGreater
	KindLessEqual
	KindGreaterEqual
)

// Node is any AST element. Every concrete type below implements it.
type Node interface {
	Kind() Kind
	Location() token.Location
}

type Base struct {
	Loc token.Location
}

func (b Base) Location() token.Location { return b.Loc }

// Program is the root node: the ordered list of top-level instructions.
type Program struct {
	Base
	Instructions []Node
}

func (*Program) Kind() Kind { return KindProgram }

// Include represents an `include("path")` call. Program is nil when the
// include was a no-op (duplicate or self-include), in which case a warning
// was recorded by the parser.
type Include struct {
	Base
	Path    string
	Program *Program
}

func (*Include) Kind() Kind { return KindInclude }

// Define is a user function declaration: `name(params) = { body }`.
type Define struct {
	Base
	Name   string
	Params []string
	Body   []Node
}

func (*Define) Kind() Kind { return KindDefine }

// Assign is `name = expression`.
type Assign struct {
	Base
	Name  string
	Value Node
}

func (*Assign) Kind() Kind { return KindAssign }

// Call is either an intrinsic call (Intrinsic=true) or a
// reference to a user-defined function. TopLevel is true iff this call
// stands alone as an instruction; audio-source intrinsics at top level are
// wrapped in an implicit Play by the parser, never by the emitter.
type Call struct {
	Base
	Name      string
	Intrinsic bool
	Args      []*Argument
	TopLevel  bool
}

func (*Call) Kind() Kind { return KindCall }

// Argument is a single, possibly-named, call argument.
type Argument struct {
	Base
	Name  string // "" for a positional argument
	Value Node
}

func (*Argument) Kind() Kind { return KindArgument }

// List is a non-empty, comma-separated, heterogeneous literal list.
type List struct {
	Base
	Values []Node
}

func (*List) Kind() Kind { return KindList }

// Paren is a parenthesized subexpression, kept distinct so location
// information spans the parentheses themselves.
type Paren struct {
	Base
	Inner Node
}

func (*Paren) Kind() Kind { return KindParen }

// Value is a literal numeric value (including resolved note/pi/e tokens).
type Value struct {
	Base
	Num float64
}

func (*Value) Kind() Kind { return KindValue }

// StringLit is a raw string literal, used only where a call argument takes
// a path or name rather than a numeric expression (e.g. sample(path: ...)).
type StringLit struct {
	Base
	Text string
}

func (*StringLit) Kind() Kind { return KindStringLit }

// EnumLit is a reserved enum-token literal used as an argument value (e.g.
// sequence-forwards for a Sequence's order parameter).
type EnumLit struct {
	Base
	Name string
}

func (*EnumLit) Kind() Kind { return KindEnumLit }

// VariableRef resolves to a binding in the enclosing scope's variables map.
type VariableRef struct {
	Base
	Name string
}

func (*VariableRef) Kind() Kind { return KindVariableRef }

// InputRef resolves to a Define's or Lambda's parameter.
type InputRef struct {
	Base
	Name string
}

func (*InputRef) Kind() Kind { return KindInputRef }

// FunctionRef resolves to a user-defined function used as a first-class
// value (e.g. passed where a lambda is expected).
type FunctionRef struct {
	Base
	Name string
}

func (*FunctionRef) Kind() Kind { return KindFunctionRef }

// BinOp is the shared shape for every arithmetic/comparison operator node;
// Kind() distinguishes which operator it is.
type BinOp struct {
	Base
	Op          Kind
	Left, Right Node
}

func (b *BinOp) Kind() Kind { return b.Op }

// NewBinOp constructs a BinOp node. It does not check op; callers pass one
// of the arithmetic/comparison kinds.
func NewBinOp(op Kind, loc token.Location, left, right Node) *BinOp {
	return &BinOp{Base: Base{Loc: loc}, Op: op, Left: left, Right: right}
}

// IsComparison reports whether k is one of the non-chaining comparison ops.
func IsComparison(k Kind) bool {
	switch k {
	case KindEqual, KindLess, KindGreater, KindLessEqual, KindGreaterEqual:
		return true
	}
	return false
}

// IsAudioSource reports whether name is one of the reserved audio-source
// intrinsics that trigger implicit Play wrapping at the top level.
func IsAudioSource(name string) bool {
	switch name {
	case "sine", "square", "triangle", "saw", "noise", "sample", "oscillator":
		return true
	}
	return false
}

// Intrinsics is the full reserved-name set from §4.2: defining, assigning,
// or declaring a function parameter using any of these is an error.
var Intrinsics = map[string]bool{
	"time": true, "hold": true, "lfo": true, "sweep": true, "sequence": true,
	"repeat": true, "random": true, "limit": true, "trigger": true, "if": true,
	"all": true, "any": true, "none": true, "min": true, "max": true, "round": true,
	"sine": true, "square": true, "triangle": true, "saw": true, "noise": true,
	"sample": true, "oscillator": true, "delay": true, "include": true,
	"play": true, "perform": true,
}
