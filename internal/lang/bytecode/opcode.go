// Package bytecode implements §4.3's instruction/resource container: the
// AST-to-bytes emitter, the native-call opcode table, and the endianness-
// normalized binary reader/writer. Grounded on the original sources'
// include/bytecode.h and src/bytecode.cpp for the wire format, and on
// other_examples' ProbeChain go-probe VM for the general decode/dispatch
// shape the emitter's output is built to feed (internal/lang/vm).
package bytecode

// Op is a single-byte instruction opcode (§4.3).
type Op byte

const (
	OpReturn            Op = 0x00
	OpStackPushDefault  Op = 0x01
	OpStackPushByte     Op = 0x02
	OpStackPushInt      Op = 0x03
	OpStackPushDouble   Op = 0x04
	OpStackPushAddress  Op = 0x05
	OpStackPushResource Op = 0x06
	OpSetVariable       Op = 0x07
	OpGetVariable       Op = 0x08
	OpCallNative        Op = 0x09
	OpCallUser          Op = 0x0A
)

// NativeID is the single-byte op-id carried by CALL_NATIVE, a 1:1 map from
// intrinsic name to the constant table in spec.md §6.
type NativeID byte

const (
	NativeList NativeID = 0x00
	NativeTime NativeID = 0x01

	NativeAdd          NativeID = 0x10
	NativeSubtract     NativeID = 0x11
	NativeMultiply     NativeID = 0x12
	NativeDivide       NativeID = 0x13
	NativePower        NativeID = 0x14
	NativeEqual        NativeID = 0x15
	NativeLess         NativeID = 0x16
	NativeGreater      NativeID = 0x17
	NativeLessEqual    NativeID = 0x18
	NativeGreaterEqual NativeID = 0x19

	NativeSine     NativeID = 0x30
	NativeSquare   NativeID = 0x31
	NativeTriangle NativeID = 0x32
	NativeSaw      NativeID = 0x33
	NativeNoise    NativeID = 0x34
	NativeSample   NativeID = 0x35

	NativeHold     NativeID = 0x50
	NativeLFO      NativeID = 0x51
	NativeSweep    NativeID = 0x52
	NativeSequence NativeID = 0x53
	NativeRepeat   NativeID = 0x54
	NativeRandom   NativeID = 0x55
	NativeLimit    NativeID = 0x56
	NativeTrigger  NativeID = 0x57
	NativeIf       NativeID = 0x58

	NativeDelay NativeID = 0x70

	NativePlay    NativeID = 0x90
	NativePerform NativeID = 0x91

	// Supplemented intrinsics (SPEC_FULL §D) reuse the unused byte ranges
	// flanking their nearest spec.md-assigned relative: boolean combinators
	// min/max and round sit beside the arithmetic family, and oscillator
	// sits beside the other audio sources.
	NativeAll        NativeID = 0x1A
	NativeAny        NativeID = 0x1B
	NativeNone       NativeID = 0x1C
	NativeMin        NativeID = 0x1D
	NativeMax        NativeID = 0x1E
	NativeRound      NativeID = 0x1F
	NativeOscillator NativeID = 0x36
)

// nameToNative is the canonical intrinsic-name -> opcode mapping the
// emitter consults; NameForNative is its inverse.
var nameToNative = map[string]NativeID{
	"list": NativeList, "time": NativeTime,
	"add": NativeAdd, "subtract": NativeSubtract, "multiply": NativeMultiply,
	"divide": NativeDivide, "power": NativePower, "equal": NativeEqual,
	"less": NativeLess, "greater": NativeGreater, "lessequal": NativeLessEqual,
	"greaterequal": NativeGreaterEqual,
	"sine":         NativeSine, "square": NativeSquare, "triangle": NativeTriangle,
	"saw": NativeSaw, "noise": NativeNoise, "sample": NativeSample,
	"hold": NativeHold, "lfo": NativeLFO, "sweep": NativeSweep,
	"sequence": NativeSequence, "repeat": NativeRepeat, "random": NativeRandom,
	"limit": NativeLimit, "trigger": NativeTrigger, "if": NativeIf,
	"delay": NativeDelay, "play": NativePlay, "perform": NativePerform,
	"all": NativeAll, "any": NativeAny, "none": NativeNone,
	"min": NativeMin, "max": NativeMax, "round": NativeRound,
	"oscillator": NativeOscillator,
}

// NativeIDFor looks up the opcode for an intrinsic call name.
func NativeIDFor(name string) (NativeID, bool) {
	id, ok := nameToNative[name]
	return id, ok
}

// NameForNative is the inverse lookup the VM uses to dispatch.
func NameForNative(id NativeID) (string, bool) {
	for name, nid := range nameToNative {
		if nid == id {
			return name, true
		}
	}
	return "", false
}

// These map directly onto the Organic source AST's binary-operator aliases.
// The emitter does not read this table: it maps a BinOp to an intrinsic
// name with binOpName and resolves that through NativeIDFor.
var binOpNative = map[string]NativeID{
	"Add": NativeAdd, "Subtract": NativeSubtract, "Multiply": NativeMultiply,
	"Divide": NativeDivide, "Power": NativePower, "Equal": NativeEqual,
	"Less": NativeLess, "Greater": NativeGreater, "LessEqual": NativeLessEqual,
	"GreaterEqual": NativeGreaterEqual,
}
