// Package runtime implements the Organic runtime value graph (§3, §4.5):
// the Object lattice the VM materializes (Number, List, Time, Resource,
// Lambda, Variable, controllers, audio sources) and the Sync start/repeat/
// stop lifecycle protocol shared by every value-producing node.
//
// Grounded on the original sources' object.h/controller.h Sync contract
// (§9's "Deep inheritance -> tagged variants" note): rather than a virtual
// ValueObject base class, every node here is a concrete Go struct
// implementing a small ValueObject interface, dispatched through ordinary
// interface calls instead of a vtable-walking hierarchy.
package runtime

import (
	"math"

	"github.com/organic-audio/organic/internal/rtctx"
)

// Object is any value the VM's stack or a node's parameters can hold.
type Object interface {
	isObject()
}

// Sync is the shared lifecycle record embedded in every value-producing
// node (§3's "Sync lifecycle invariants").
type Sync struct {
	Enabled    bool
	StartTime  float64
	RepeatTime float64
}

// ValueObject is any Object that produces a scalar per tick and
// participates in the Sync protocol. Concrete node types implement the two
// unexported hook methods so that only this package can add new node kinds
// (§9's closed-tagged-variant re-expression of the source's hierarchy).
type ValueObject interface {
	Object
	GetValue(ctx *rtctx.Context) float64
	SyncLength() float64
	SyncState() *Sync
	initOnce(ctx *rtctx.Context)
	reinit(ctx *rtctx.Context)
}

// Base is embedded by every ValueObject implementation. It carries the
// Sync record and the last-produced sample, returned when a node is asked
// for a value while stopped (§3: "used for handoff between successive
// children in a Sequence").
type Base struct {
	Sy   Sync
	Last float64
}

func (b *Base) SyncState() *Sync { return &b.Sy }
func (*Base) isObject()          {}

// Start implements the Sync contract's start(t): a no-op while already
// enabled, otherwise it pins startTime/repeatTime, marks enabled, and runs
// the node's one-shot init.
func Start(ctx *rtctx.Context, v ValueObject, t float64) {
	s := v.SyncState()
	if s.Enabled {
		return
	}
	s.StartTime = t
	s.RepeatTime = t
	s.Enabled = true
	v.initOnce(ctx)
}

// Repeat implements repeat(t): updates repeatTime and runs reinit without
// touching enabled.
func Repeat(ctx *rtctx.Context, v ValueObject, t float64) {
	s := v.SyncState()
	s.RepeatTime = t
	v.reinit(ctx)
}

// Stop implements stop(): marks the node disabled; a subsequent GetValue
// call returns its Base.Last sample.
func Stop(v ValueObject) {
	v.SyncState().Enabled = false
}

// EnsureStarted starts v at t if it is not already enabled. Controllers use
// this for children they own outright rather than hand-manage start/enable
// checks inline.
func EnsureStarted(ctx *rtctx.Context, v ValueObject, t float64) {
	if !v.SyncState().Enabled {
		Start(ctx, v, t)
	}
}

// Number is a literal constant: infinite syncLength, Sync is inert.
type Number struct {
	Base
	Val float64
}

func NewNumber(v float64) *Number                       { return &Number{Val: v} }
func (n *Number) GetValue(ctx *rtctx.Context) float64   { n.Last = n.Val; return n.Val }
func (n *Number) SyncLength() float64                   { return math.Inf(1) }
func (n *Number) initOnce(ctx *rtctx.Context)            {}
func (n *Number) reinit(ctx *rtctx.Context)              {}

// TimeNode evaluates to the clock itself (§4.2's reserved `time` intrinsic).
type TimeNode struct{ Base }

func NewTime() *TimeNode                                 { return &TimeNode{} }
func (t *TimeNode) GetValue(ctx *rtctx.Context) float64 { t.Last = ctx.Clock(); return t.Last }
func (t *TimeNode) SyncLength() float64                 { return math.Inf(1) }
func (t *TimeNode) initOnce(ctx *rtctx.Context)          {}
func (t *TimeNode) reinit(ctx *rtctx.Context)            {}

// Default is the sentinel STACK_PUSH_DEFAULT pushes: "use the intrinsic's
// own default for this parameter" rather than a concrete caller-supplied
// value.
type Default struct{}

func (Default) isObject() {}

// List is a non-value-object Object: an ordered heterogeneous sequence,
// used as the raw input to intrinsics that take a list argument
// (sequence's values, all/any/none/min/max's operands).
type List struct {
	Items []Object
}

func (*List) isObject() {}

// Resource is a decoded PCM buffer, produced by the bytecode container's
// resource blocks and consumed by the Sample audio source.
type Resource struct {
	SampleRate int
	Channels   int
	Samples    []int32
}

func (*Resource) isObject() {}

// Lambda is a first-class reference to a user-defined function's
// instruction block, pushed by STACK_PUSH_ADDRESS when a FunctionRef is
// evaluated as a value rather than called directly.
type Lambda struct {
	BlockOffset uint32
	Arity       int
}

func (*Lambda) isObject() {}

// Variable wraps a ValueObject read out of a variable slot (GET_VARIABLE).
// Its own Sync tracks the wrapped node's lifetime: once the inner node
// stops, the wrapper reports stopped too on the next GetValue (§4.4:
// "reading a value-producing variable pushes a fresh Variable wrapper that
// tracks lifetime (stop-when-inner-stops)").
type Variable struct {
	Base
	Inner ValueObject
}

func NewVariable(inner ValueObject) *Variable { return &Variable{Inner: inner} }

func (v *Variable) GetValue(ctx *rtctx.Context) float64 {
	val := v.Inner.GetValue(ctx)
	v.Last = val
	if !v.Inner.SyncState().Enabled {
		v.Sy.Enabled = false
	}
	return val
}

func (v *Variable) SyncLength() float64 { return v.Inner.SyncLength() }

func (v *Variable) initOnce(ctx *rtctx.Context) {
	EnsureStarted(ctx, v.Inner, v.Sy.StartTime)
}

func (v *Variable) reinit(ctx *rtctx.Context) {
	Repeat(ctx, v.Inner, v.Sy.RepeatTime)
}

// AsValueObject coerces a popped stack Object into a ValueObject, wrapping
// a bare Number/Time/etc. unchanged (they already are one) and reporting
// failure for non-value Objects (List, Resource, Lambda, Default).
func AsValueObject(o Object) (ValueObject, bool) {
	v, ok := o.(ValueObject)
	return v, ok
}
