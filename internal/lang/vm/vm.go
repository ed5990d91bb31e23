// Package vm executes a compiled bytecode.Container against an
// internal/runtime value graph: a small stack machine whose CALL_NATIVE
// dispatch table builds one runtime node per intrinsic and whose CALL_USER
// jumps to a user-defined function's instruction block. Grounded on
// other_examples' ProbeChain go-probe VM for the decode/dispatch/error-
// sentinel shape, adapted from a register machine to the stack machine
// §4.3 describes.
package vm

import (
	"encoding/binary"
	"math"

	"github.com/organic-audio/organic/internal/diag"
	"github.com/organic-audio/organic/internal/events"
	"github.com/organic-audio/organic/internal/lang/bytecode"
	"github.com/organic-audio/organic/internal/runtime"
	"github.com/organic-audio/organic/internal/rtctx"
)

// Voice is one top-level playing audio source registered by a `play` or
// `perform` call. A `play` voice is wrapped in a MixStage carrying that
// call's volume/pan; a `perform` voice is the performed source itself.
type Voice struct {
	Source runtime.AudioSource
}

// Machine runs one compiled Container's entry block and every user block it
// reaches. It owns the variable slot storage (shared across all blocks,
// matching the original's flat-scope Variable table) and the decoded
// resources.
type Machine struct {
	ctx       *rtctx.Context
	container *bytecode.Container
	blockByOffset map[uint32]int

	variables []runtime.Object
	resources []*runtime.Resource

	Voices []*Voice
	Events *events.Queue
}

// New builds a Machine ready to run c against ctx. Resources are decoded
// once up front into runtime.Resource nodes addressable by
// STACK_PUSH_RESOURCE's positional index.
func New(ctx *rtctx.Context, c *bytecode.Container) *Machine {
	m := &Machine{
		ctx:           ctx,
		container:     c,
		blockByOffset: make(map[uint32]int, len(c.Blocks)),
		variables:     make([]runtime.Object, c.VariableCount),
	}
	for i, b := range c.Blocks {
		m.blockByOffset[b.Offset] = i
	}
	for _, r := range c.Resources {
		m.resources = append(m.resources, &runtime.Resource{
			SampleRate: r.SampleRate,
			Channels:   r.Channels,
			Samples:    r.Samples,
		})
	}
	return m
}

// Run executes the program's entry block once, at a zero start time. Every
// `play`/`perform` call reached along the way registers a Voice; the caller
// (the CLI's render/interpret path) then drives ctx's clock forward,
// calling every Voice's FillBuffer each audio block.
func (m *Machine) Run() error {
	entryIdx := len(m.container.Blocks) - 1
	if entryIdx < 0 {
		return nil
	}
	_, err := m.runBlock(entryIdx, nil)
	return err
}

type stack struct {
	items []runtime.Object
}

func (s *stack) push(o runtime.Object) { s.items = append(s.items, o) }

func (s *stack) pop() (runtime.Object, error) {
	if len(s.items) == 0 {
		return nil, diag.Machinef("stack underflow")
	}
	o := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return o, nil
}

func (s *stack) popN(n int) ([]runtime.Object, error) {
	out := make([]runtime.Object, n)
	for i := n - 1; i >= 0; i-- {
		o, err := s.pop()
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// runBlock executes blockIdx's code from byte 0 to its terminating RETURN,
// returning the single value it leaves on the stack. Each call gets a fresh
// stack with args pushed onto it in order; a user block's own leading
// SET_VARIABLE prologue (emitted by the compiler) then pops them into its
// parameter slots.
func (m *Machine) runBlock(blockIdx int, args []runtime.Object) (runtime.Object, error) {
	code := m.container.Blocks[blockIdx].Code
	st := &stack{}
	for _, a := range args {
		st.push(a)
	}
	pos := 0
	for pos < len(code) {
		op := bytecode.Op(code[pos])
		pos++
		switch op {
		case bytecode.OpReturn:
			return st.pop()
		case bytecode.OpStackPushDefault:
			st.push(runtime.Default{})
		case bytecode.OpStackPushByte:
			st.push(runtime.NewNumber(float64(code[pos])))
			pos++
		case bytecode.OpStackPushInt:
			v := binary.LittleEndian.Uint32(code[pos : pos+4])
			st.push(runtime.NewNumber(float64(v)))
			pos += 4
		case bytecode.OpStackPushDouble:
			bits := binary.LittleEndian.Uint64(code[pos : pos+8])
			st.push(runtime.NewNumber(math.Float64frombits(bits)))
			pos += 8
		case bytecode.OpStackPushAddress:
			addr := binary.LittleEndian.Uint32(code[pos : pos+4])
			pos += 4
			st.push(&runtime.Lambda{BlockOffset: addr})
		case bytecode.OpStackPushResource:
			idx := int(code[pos])
			pos++
			if idx < 0 || idx >= len(m.resources) {
				return nil, diag.Machinef("resource index %d out of range", idx)
			}
			st.push(m.resources[idx])
		case bytecode.OpSetVariable:
			slot := int(code[pos])
			pos++
			v, err := st.pop()
			if err != nil {
				return nil, err
			}
			if err := m.setVariable(slot, v); err != nil {
				return nil, err
			}
		case bytecode.OpGetVariable:
			slot := int(code[pos])
			pos++
			v, err := m.getVariable(slot)
			if err != nil {
				return nil, err
			}
			st.push(v)
		case bytecode.OpCallNative:
			id := bytecode.NativeID(code[pos])
			arity := int(code[pos+1])
			pos += 2
			callArgs, err := st.popN(arity)
			if err != nil {
				return nil, err
			}
			result, err := m.callNative(id, callArgs)
			if err != nil {
				return nil, err
			}
			st.push(result)
		case bytecode.OpCallUser:
			addr := binary.LittleEndian.Uint32(code[pos : pos+4])
			pos += 4
			argc := int(code[pos])
			pos++
			callArgs, err := st.popN(argc)
			if err != nil {
				return nil, err
			}
			targetIdx, ok := m.blockByOffset[addr]
			if !ok {
				return nil, diag.Machinef("call to undefined block address %d", addr)
			}
			result, err := m.runBlock(targetIdx, callArgs)
			if err != nil {
				return nil, err
			}
			st.push(result)
		default:
			return nil, diag.Machinef("invalid opcode 0x%02x", byte(op))
		}
	}
	return nil, diag.Machinef("instruction block fell off the end without RETURN")
}

func (m *Machine) setVariable(slot int, v runtime.Object) error {
	if slot < 0 || slot >= len(m.variables) {
		return diag.Machinef("variable slot %d out of range", slot)
	}
	m.variables[slot] = v
	return nil
}

// getVariable wraps a value-producing variable in a fresh runtime.Variable
// (§4.4: reading a value-producing variable hands back a wrapper tracking
// the underlying node's own lifetime), and starts it immediately so a bare
// reference to a previously-declared controller begins ticking.
func (m *Machine) getVariable(slot int) (runtime.Object, error) {
	if slot < 0 || slot >= len(m.variables) {
		return nil, diag.Machinef("variable slot %d out of range", slot)
	}
	v := m.variables[slot]
	if v == nil {
		return nil, diag.Machinef("variable slot %d read before assignment", slot)
	}
	if vo, ok := runtime.AsValueObject(v); ok {
		w := runtime.NewVariable(vo)
		runtime.Start(m.ctx, w, m.ctx.Clock())
		return w, nil
	}
	return v, nil
}
