package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/organic-audio/organic/internal/lang/ast"
)

// addrPatch records a forward reference to a block's not-yet-known file
// offset: byte position patch within block blockIdx, targeting block
// targetIdx.
type addrPatch struct {
	blockIdx  int
	pos       int
	targetIdx int
}

// Emitter walks a parsed Organic program and produces a Container, one
// InstructionBlock per Program/Define/Lambda-like argument plus one
// ResourceBlock per distinct sample path, resolving forward block
// addresses after layout is known (§4.3).
type Emitter struct {
	blocks   []*blockBuf
	patches  []addrPatch
	varSlots map[string]byte
	nextSlot int

	resourceIndex map[string]byte
	resources     []ResourceBlock

	// currentFunc names the Define currently being compiled, so InputRef
	// nodes resolve to that function's parameter slots. Only top-level and
	// included Defines are compiled (collectDefines does not look inside
	// function bodies; a Define nested in a body is never compiled and a
	// call to it fails as an undefined function), so one field suffices.
	currentFunc string

	// ResourceLoader decodes a sample path into PCM for embedding. It is
	// injected so the emitter has no direct filesystem/codec dependency;
	// the CLI wires internal/resource.Load here.
	ResourceLoader func(path string) (sampleRate, channels int, samples []int32, err error)
}

type blockBuf struct {
	code []byte
}

// NewEmitter creates an Emitter ready to compile one program (including its
// includes, already merged into a single AST by the parser).
func NewEmitter() *Emitter {
	return &Emitter{varSlots: make(map[string]byte), resourceIndex: make(map[string]byte)}
}

// Emit compiles prog (and the Define nodes reachable from it) into a
// Container. collectDefines gathers every top-level Define (including ones
// pulled in through includes), and each is compiled once regardless of
// call-site ordering.
func (e *Emitter) Emit(prog *ast.Program) (*Container, error) {
	defines := collectDefines(prog.Instructions)
	funcBlockIdx := make(map[string]int)

	// Reserve a block index for every user function before emitting bodies,
	// so forward/self/mutually-recursive references resolve.
	for _, d := range defines {
		idx := e.newBlock()
		funcBlockIdx[d.Name] = idx
	}
	for _, d := range defines {
		if err := e.emitDefine(d, funcBlockIdx); err != nil {
			return nil, err
		}
	}

	entryIdx := e.newBlock()
	for _, inst := range prog.Instructions {
		if _, ok := inst.(*ast.Define); ok {
			continue // already compiled above
		}
		if inc, ok := inst.(*ast.Include); ok {
			if inc.Program != nil {
				if err := e.emitIncludedInstructions(inc.Program.Instructions, funcBlockIdx); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := e.emitStatement(entryIdx, inst, funcBlockIdx); err != nil {
			return nil, err
		}
	}
	// Like a function body, the entry block must leave a value for RETURN
	// even when it ends in an Assign (or is empty).
	if n := len(prog.Instructions); n == 0 || !isValueProducing(prog.Instructions[n-1]) {
		e.append(entryIdx, byte(OpStackPushDefault))
	}
	e.append(entryIdx, byte(OpReturn))

	c := &Container{VariableCount: byte(e.nextSlot), Resources: e.resources}
	for _, b := range e.blocks {
		c.Blocks = append(c.Blocks, InstructionBlock{Code: b.code})
	}
	c.ComputeOffsets()
	for _, p := range e.patches {
		target := c.Blocks[p.targetIdx].Offset
		binary.LittleEndian.PutUint32(c.Blocks[p.blockIdx].Code[p.pos:p.pos+4], target)
	}
	return c, nil
}

func (e *Emitter) emitIncludedInstructions(instructions []ast.Node, funcBlockIdx map[string]int) error {
	// Included Defines were already pulled into the root's define list by
	// the caller's collectDefines walk (it recurses into Include.Program),
	// so only non-Define, non-nested-include instructions remain to run at
	// the point of inclusion... but since includes merge scope only (not
	// control flow), Organic has no "run included top-level code here"
	// instruction effect beyond definitions; any bare top-level expression
	// in an included file runs only as a definition side effect, so it is
	// skipped here. Top-level includes contribute definitions, not runtime
	// instructions, matching §4.2's scope-merge semantics.
	_ = instructions
	_ = funcBlockIdx
	return nil
}

func collectDefines(instructions []ast.Node) []*ast.Define {
	var out []*ast.Define
	for _, inst := range instructions {
		switch n := inst.(type) {
		case *ast.Define:
			out = append(out, n)
		case *ast.Include:
			if n.Program != nil {
				out = append(out, collectDefines(n.Program.Instructions)...)
			}
		}
	}
	return out
}

func (e *Emitter) newBlock() int {
	e.blocks = append(e.blocks, &blockBuf{})
	return len(e.blocks) - 1
}

func (e *Emitter) append(blockIdx int, b ...byte) {
	e.blocks[blockIdx].code = append(e.blocks[blockIdx].code, b...)
}

func (e *Emitter) slotFor(name string) byte {
	if s, ok := e.varSlots[name]; ok {
		return s
	}
	s := byte(e.nextSlot)
	e.varSlots[name] = s
	e.nextSlot++
	return s
}

func (e *Emitter) emitDefine(d *ast.Define, funcBlockIdx map[string]int) error {
	idx := funcBlockIdx[d.Name]
	paramSlots := make([]byte, len(d.Params))
	for i, p := range d.Params {
		paramSlots[i] = e.slotFor(d.Name + "." + p)
	}
	prevFunc := e.currentFunc
	e.currentFunc = d.Name
	defer func() { e.currentFunc = prevFunc }()

	// The call-site (emitUserCall) pushes arguments left to right, so the
	// last parameter is on top of the stack; bind back to front so each
	// POP lands in its matching slot (self-contained in the bytecode
	// itself, rather than carried as emitter-only side metadata).
	for i := len(paramSlots) - 1; i >= 0; i-- {
		e.append(idx, byte(OpSetVariable), paramSlots[i])
	}

	var lastValue bool
	for i, inst := range d.Body {
		lastValue = false
		if err := e.emitStatement(idx, inst, funcBlockIdx); err != nil {
			return err
		}
		if i == len(d.Body)-1 {
			lastValue = isValueProducing(inst)
		}
	}
	if !lastValue {
		e.append(idx, byte(OpStackPushDefault))
	}
	e.append(idx, byte(OpReturn))
	return nil
}

// isValueProducing reports whether inst leaves a value on the stack when
// emitted as a statement (true for any expression instruction; false for
// Assign, Define, and Include, which are pure side effects).
func isValueProducing(inst ast.Node) bool {
	switch inst.(type) {
	case *ast.Assign, *ast.Define, *ast.Include:
		return false
	default:
		return true
	}
}

// emitStatement emits one top-level-or-body instruction into blockIdx.
// Expression instructions leave exactly one value on the stack; Assign
// additionally consumes it into a variable slot.
func (e *Emitter) emitStatement(blockIdx int, inst ast.Node, funcBlockIdx map[string]int) error {
	switch n := inst.(type) {
	case *ast.Assign:
		if err := e.emitExpr(blockIdx, n.Value, funcBlockIdx); err != nil {
			return err
		}
		slot := e.slotFor(n.Name)
		e.append(blockIdx, byte(OpSetVariable), slot)
		return nil
	case *ast.Define:
		return nil // top-level Defines are compiled by Emit; nested ones are not compiled
	case *ast.Include:
		return nil // scope-merge only, no runtime effect at this point
	default:
		return e.emitExpr(blockIdx, inst, funcBlockIdx)
	}
}

// emitExpr emits inst as a value-producing expression, leaving exactly one
// Object on the stack.
func (e *Emitter) emitExpr(blockIdx int, node ast.Node, funcBlockIdx map[string]int) error {
	switch n := node.(type) {
	case *ast.Value:
		return e.emitNumber(blockIdx, n.Num)
	case *ast.StringLit:
		// Strings only ever appear as a resolved resource path argument;
		// emitCallArgs handles that case directly and never recurses here
		// for a StringLit, but guard defensively.
		return fmt.Errorf("string literal %q used outside of a path argument", n.Text)
	case *ast.EnumLit:
		return e.emitNumber(blockIdx, enumOrdinal(n.Name))
	case *ast.Paren:
		return e.emitExpr(blockIdx, n.Inner, funcBlockIdx)
	case *ast.List:
		for _, v := range n.Values {
			if err := e.emitExpr(blockIdx, v, funcBlockIdx); err != nil {
				return err
			}
		}
		e.append(blockIdx, byte(OpCallNative), byte(NativeList), byte(len(n.Values)))
		return nil
	case *ast.VariableRef:
		e.append(blockIdx, byte(OpGetVariable), e.slotFor(n.Name))
		return nil
	case *ast.InputRef:
		// Resolved to the enclosing Define's parameter slot; the caller
		// context (which Define we're compiling) is threaded in by name
		// prefix convention set up in emitDefine/emitCallArgs.
		e.append(blockIdx, byte(OpGetVariable), e.slotFor(e.currentFunc+"."+n.Name))
		return nil
	case *ast.FunctionRef:
		idx, ok := funcBlockIdx[n.Name]
		if !ok {
			return fmt.Errorf("undefined function %q", n.Name)
		}
		e.emitPushAddress(blockIdx, idx)
		return nil
	case *ast.BinOp:
		if err := e.emitExpr(blockIdx, n.Left, funcBlockIdx); err != nil {
			return err
		}
		if err := e.emitExpr(blockIdx, n.Right, funcBlockIdx); err != nil {
			return err
		}
		id, ok := NativeIDFor(binOpName(n.Op))
		if !ok {
			return fmt.Errorf("unknown operator kind %v", n.Op)
		}
		e.append(blockIdx, byte(OpCallNative), byte(id), 2)
		return nil
	case *ast.Call:
		return e.emitCall(blockIdx, n, funcBlockIdx)
	default:
		return fmt.Errorf("emitter: unhandled node kind %v", node.Kind())
	}
}

func binOpName(k ast.Kind) string {
	switch k {
	case ast.KindAdd:
		return "add"
	case ast.KindSubtract:
		return "subtract"
	case ast.KindMultiply:
		return "multiply"
	case ast.KindDivide:
		return "divide"
	case ast.KindPower:
		return "power"
	case ast.KindEqual:
		return "equal"
	case ast.KindLess:
		return "less"
	case ast.KindGreater:
		return "greater"
	case ast.KindLessEqual:
		return "lessequal"
	case ast.KindGreaterEqual:
		return "greaterequal"
	}
	return ""
}

func enumOrdinal(name string) float64 {
	order := []string{
		"sequence-forwards", "sequence-backwards", "sequence-ping-pong", "sequence-random",
		"random-step", "random-linear", "round-nearest", "round-up", "round-down",
	}
	for i, n := range order {
		if n == name {
			return float64(i)
		}
	}
	return -1
}

func (e *Emitter) emitNumber(blockIdx int, v float64) error {
	if v == math.Trunc(v) && v >= 0 && v <= 255 {
		e.append(blockIdx, byte(OpStackPushByte), byte(v))
		return nil
	}
	if v == math.Trunc(v) && v >= 0 && v <= math.MaxUint32 {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		e.append(blockIdx, byte(OpStackPushInt))
		e.append(blockIdx, buf...)
		return nil
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	e.append(blockIdx, byte(OpStackPushDouble))
	e.append(blockIdx, buf...)
	return nil
}

func (e *Emitter) emitPushAddress(blockIdx, targetBlock int) {
	e.append(blockIdx, byte(OpStackPushAddress))
	pos := len(e.blocks[blockIdx].code)
	e.append(blockIdx, 0, 0, 0, 0)
	e.patches = append(e.patches, addrPatch{blockIdx: blockIdx, pos: pos, targetIdx: targetBlock})
}

func (e *Emitter) emitCall(blockIdx int, call *ast.Call, funcBlockIdx map[string]int) error {
	if !call.Intrinsic {
		return e.emitUserCall(blockIdx, call, funcBlockIdx)
	}
	switch call.Name {
	case "list":
		for _, a := range call.Args {
			if err := e.emitExpr(blockIdx, a.Value, funcBlockIdx); err != nil {
				return err
			}
		}
		e.append(blockIdx, byte(OpCallNative), byte(NativeList), byte(len(call.Args)))
		return nil
	case "all", "any", "none", "min", "max":
		for _, a := range call.Args {
			if err := e.emitArgValue(blockIdx, call.Name, a, funcBlockIdx); err != nil {
				return err
			}
		}
		id, _ := NativeIDFor(call.Name)
		e.append(blockIdx, byte(OpCallNative), byte(id), byte(len(call.Args)))
		return nil
	case "time":
		e.append(blockIdx, byte(OpCallNative), byte(NativeTime), 0)
		return nil
	default:
		return e.emitSignatureCall(blockIdx, call, funcBlockIdx)
	}
}

// emitArgValue emits a single positional/named argument's value expression,
// used by the variadic intrinsics where argument order is simply source
// order rather than a fixed Signature.
func (e *Emitter) emitArgValue(blockIdx int, callName string, a *ast.Argument, funcBlockIdx map[string]int) error {
	return e.emitExpr(blockIdx, a.Value, funcBlockIdx)
}

// emitSignatureCall emits a fixed-arity intrinsic call by reordering named
// arguments into the canonical Signatures order, filling any gap with
// STACK_PUSH_DEFAULT, then emits CALL_NATIVE with arity = len(Params).
func (e *Emitter) emitSignatureCall(blockIdx int, call *ast.Call, funcBlockIdx map[string]int) error {
	sig, ok := Signatures[call.Name]
	if !ok {
		return fmt.Errorf("emitter: no signature for intrinsic %q", call.Name)
	}
	byName := make(map[string]*ast.Argument)
	var positional []*ast.Argument
	for _, a := range call.Args {
		if a.Name != "" {
			byName[a.Name] = a
		} else {
			positional = append(positional, a)
		}
	}
	posIdx := 0
	for _, p := range sig.Params {
		if a, ok := byName[p]; ok {
			if err := e.emitSigArg(blockIdx, call.Name, p, a, funcBlockIdx); err != nil {
				return err
			}
			continue
		}
		if posIdx < len(positional) {
			if err := e.emitSigArg(blockIdx, call.Name, p, positional[posIdx], funcBlockIdx); err != nil {
				return err
			}
			posIdx++
			continue
		}
		e.append(blockIdx, byte(OpStackPushDefault))
	}
	id, ok := NativeIDFor(call.Name)
	if !ok {
		return fmt.Errorf("emitter: no opcode for intrinsic %q", call.Name)
	}
	e.append(blockIdx, byte(OpCallNative), byte(id), byte(len(sig.Params)))
	return nil
}

// emitSigArg emits one resolved argument for a signature-based call.
// "path" parameters (sample's file path) resolve to a resource index
// instead of a general expression.
func (e *Emitter) emitSigArg(blockIdx int, callName, paramName string, a *ast.Argument, funcBlockIdx map[string]int) error {
	if paramName == "path" {
		lit, ok := a.Value.(*ast.StringLit)
		if !ok {
			return fmt.Errorf("%s: path argument must be a string literal", callName)
		}
		idx, err := e.resourceIndexFor(lit.Text)
		if err != nil {
			return err
		}
		e.append(blockIdx, byte(OpStackPushResource), idx)
		return nil
	}
	return e.emitExpr(blockIdx, a.Value, funcBlockIdx)
}

func (e *Emitter) resourceIndexFor(path string) (byte, error) {
	if idx, ok := e.resourceIndex[path]; ok {
		return idx, nil
	}
	if len(e.resources) >= 255 {
		return 0, fmt.Errorf("too many distinct sample resources")
	}
	var sampleRate, channels int
	var samples []int32
	var err error
	if e.ResourceLoader != nil {
		sampleRate, channels, samples, err = e.ResourceLoader(path)
		if err != nil {
			return 0, fmt.Errorf("sample %q: %w", path, err)
		}
	}
	idx := byte(len(e.resources))
	e.resources = append(e.resources, ResourceBlock{SampleRate: sampleRate, Channels: channels, Samples: samples})
	e.resourceIndex[path] = idx
	return idx, nil
}

func (e *Emitter) emitUserCall(blockIdx int, call *ast.Call, funcBlockIdx map[string]int) error {
	idx, ok := funcBlockIdx[call.Name]
	if !ok {
		return fmt.Errorf("undefined function %q", call.Name)
	}
	for _, a := range call.Args {
		if err := e.emitExpr(blockIdx, a.Value, funcBlockIdx); err != nil {
			return err
		}
	}
	e.append(blockIdx, byte(OpCallUser))
	pos := len(e.blocks[blockIdx].code)
	e.append(blockIdx, 0, 0, 0, 0)
	e.patches = append(e.patches, addrPatch{blockIdx: blockIdx, pos: pos, targetIdx: idx})
	e.append(blockIdx, byte(len(call.Args)))
	return nil
}
