package bytecode

// Signature fixes the positional argument order the emitter pushes a named
// call's arguments in, and the same order the VM's native dispatch expects
// to pop them in (§4.3: "CALL_NATIVE consumes arity operands from the
// top... leftmost = deepest"). An omitted optional named argument is
// filled with STACK_PUSH_DEFAULT so the VM can substitute the intrinsic's
// own default rather than requiring every call site to spell out every
// parameter.
type Signature struct {
	Params   []string
	Variadic bool // no entry of Signatures sets it; variadic intrinsics (add, min, ...) have no entry
}

// Signatures is the canonical parameter order for every fixed-arity
// intrinsic. Variadic intrinsics (arithmetic/comparison BinOp aliases,
// all/any/none/min/max, list) are pushed in literal source order instead
// and are not listed here.
var Signatures = map[string]Signature{
	"hold":    {Params: []string{"value", "length"}},
	"sweep":   {Params: []string{"from", "to", "length"}},
	"lfo":     {Params: []string{"from", "to", "length"}},
	"sequence": {Params: []string{"values", "order"}},
	"repeat":  {Params: []string{"value", "repeats"}},
	"random":  {Params: []string{"from", "to", "length", "type"}},
	"limit":   {Params: []string{"value", "min", "max"}},
	"trigger": {Params: []string{"condition", "value"}},
	"if":      {Params: []string{"condition", "then", "else"}},
	"round":   {Params: []string{"value", "mode"}},

	"sine":     {Params: []string{"frequency", "volume", "pan"}},
	"square":   {Params: []string{"frequency", "volume", "pan"}},
	"triangle": {Params: []string{"frequency", "volume", "pan"}},
	"saw":      {Params: []string{"frequency", "volume", "pan"}},
	"noise":    {Params: []string{"volume", "pan"}},
	"sample":   {Params: []string{"path", "volume", "pan", "loop"}},
	"oscillator": {Params: []string{"table", "frequency", "volume", "pan"}},

	"delay": {Params: []string{"value", "time", "feedback", "mix"}},

	"play":    {Params: []string{"value", "volume", "pan"}},
	"perform": {Params: []string{"values", "interval", "repeats", "pattern"}},
}
