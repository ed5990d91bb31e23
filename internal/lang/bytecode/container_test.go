package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestContainerRoundTrip exercises spec.md §8's "bytecode roundtrip"
// universal property: write(parseBytecode(B)) == B.
func TestContainerRoundTrip(t *testing.T) {
	c := &Container{
		VariableCount: 2,
		Resources: []ResourceBlock{
			{SampleRate: 44100, Channels: 1, Samples: []int32{1, -2, 3}},
		},
		Blocks: []InstructionBlock{
			{Code: []byte{byte(OpStackPushByte), 5, byte(OpReturn)}},
			{Code: []byte{byte(OpStackPushDouble), 0, 0, 0, 0, 0, 0, 0, 0, byte(OpReturn)}},
		},
	}

	data := c.Write()
	parsed, err := Parse(data)
	require.NoError(t, err)

	roundTripped := parsed.Write()
	require.Equal(t, data, roundTripped)
}

func TestContainerHeaderLayout(t *testing.T) {
	c := &Container{
		VariableCount: 3,
		Blocks:        []InstructionBlock{{Code: []byte{byte(OpReturn)}}},
	}
	data := c.Write()
	require.GreaterOrEqual(t, len(data), 6)
	require.Equal(t, []byte{'B', 'A', 'C', 'H'}, data[0:4])
	require.Equal(t, byte(3), data[4])
	require.Equal(t, byte(0), data[5])
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte{'N', 'O', 'P', 'E', 0, 0})
	require.Error(t, err)
}

func TestParseRejectsTruncatedResource(t *testing.T) {
	c := &Container{
		Resources: []ResourceBlock{{SampleRate: 8000, Samples: []int32{1, 2, 3}}},
		Blocks:    []InstructionBlock{{Code: []byte{byte(OpReturn)}}},
	}
	data := c.Write()
	_, err := Parse(data[:len(data)-4])
	require.Error(t, err)
}

func TestComputeOffsetsAccountsForResourceRegion(t *testing.T) {
	c := &Container{
		Resources: []ResourceBlock{{SampleRate: 1, Samples: []int32{1, 2}}},
		Blocks: []InstructionBlock{
			{Code: []byte{byte(OpReturn)}},
			{Code: []byte{byte(OpStackPushByte), 1, byte(OpReturn)}},
		},
	}
	c.ComputeOffsets()
	require.Equal(t, uint32(6+8+8), c.Blocks[0].Offset)
	require.Equal(t, uint32(6+8+8+1), c.Blocks[1].Offset)
	require.Equal(t, c.Blocks[1].Offset, c.EntryOffset())
}
