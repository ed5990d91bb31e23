package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/organic-audio/organic/internal/lang/bytecode"
	"github.com/organic-audio/organic/internal/lang/parser"
	"github.com/organic-audio/organic/internal/rtctx"
	"github.com/organic-audio/organic/internal/runtime"
)

func compileProgram(t *testing.T, src string) *bytecode.Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.organic")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	prog, err := parser.New().ParseFile(path)
	require.NoError(t, err)
	c, err := bytecode.NewEmitter().Emit(prog)
	require.NoError(t, err)
	return c
}

func TestMachineRunRegistersPlayVoice(t *testing.T) {
	c := compileProgram(t, `sine(volume: 1, frequency: 440)`)
	ctx := rtctx.New(44100, 2, 64, 1)
	m := New(ctx, c)
	require.NoError(t, m.Run())
	require.Len(t, m.Voices, 1)
}

func TestMachineAssignAndReferenceVariable(t *testing.T) {
	c := compileProgram(t, "x = 5\ny = x + 2\nplay(sine(volume: 1, frequency: y))")
	ctx := rtctx.New(44100, 2, 64, 1)
	m := New(ctx, c)
	require.NoError(t, m.Run())
	require.Len(t, m.Voices, 1)
}

func TestMachineUserFunctionCall(t *testing.T) {
	c := compileProgram(t, "tone(f) = {\n  sine(volume: 1, frequency: f)\n}\nplay(tone(f: 220))")
	ctx := rtctx.New(44100, 2, 64, 1)
	m := New(ctx, c)
	require.NoError(t, m.Run())
	require.Len(t, m.Voices, 1)
}

func TestMachineStackUnderflowIsAMachineError(t *testing.T) {
	ctx := rtctx.New(44100, 2, 64, 1)
	c := &bytecode.Container{Blocks: []bytecode.InstructionBlock{
		{Code: []byte{byte(bytecode.OpCallNative), byte(bytecode.NativeAdd), 2, byte(bytecode.OpReturn)}},
	}}
	m := New(ctx, c)
	err := m.Run()
	require.Error(t, err)
}

func TestMachineInvalidOpcode(t *testing.T) {
	ctx := rtctx.New(44100, 2, 64, 1)
	c := &bytecode.Container{Blocks: []bytecode.InstructionBlock{
		{Code: []byte{0xEE, byte(bytecode.OpReturn)}},
	}}
	m := New(ctx, c)
	require.Error(t, m.Run())
}

func TestMachinePerformSchedulesRepeatedEvent(t *testing.T) {
	c := compileProgram(t, "perform(values: [sine(volume: 1, frequency: 220)], interval: 1, repeats: 3)")
	ctx := rtctx.New(44100, 2, 64, 1)
	m := New(ctx, c)
	require.NoError(t, m.Run())
	require.NotNil(t, m.Events)
	require.Equal(t, 1, m.Events.Len())

	// Firing all three repeats should register three voices and leave the
	// queue empty once the repeat limit is reached.
	for i := 0; i < 3; i++ {
		m.Events.PerformEvents(float64(i) + 0.5)
	}
	require.Len(t, m.Voices, 3)
	m.Events.PerformEvents(100)
	require.Equal(t, 0, m.Events.Len())
}

func TestGetVariableWrapsValueProducingVariable(t *testing.T) {
	c := compileProgram(t, "x = hold(value: 1, length: 10)\ny = x")
	ctx := rtctx.New(44100, 2, 64, 1)
	m := New(ctx, c)
	require.NoError(t, m.Run())
	// y's variable should hold a runtime.Variable wrapper started at t=0.
	v, ok := m.variables[1].(*runtime.Variable)
	require.True(t, ok)
	require.True(t, v.SyncState().Enabled)
}
