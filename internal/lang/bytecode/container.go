package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Magic is the container's 4-byte file signature (§3, §6).
var Magic = [4]byte{'B', 'A', 'C', 'H'}

// ResourceBlock is a decoded PCM resource embedded in the container, in
// declaration order. STACK_PUSH_RESOURCE addresses a resource by its index
// in this slice (§9 Open Questions: positional, not path-keyed).
type ResourceBlock struct {
	SampleRate int
	Channels   int
	Samples    []int32 // interleaved per Channels
}

// InstructionBlock is a contiguous, self-terminating (RETURN-suffixed) run
// of bytecode. Offset is its resolved byte position from the start of the
// file, filled in once both resource and instruction sizes are known.
type InstructionBlock struct {
	Code   []byte
	Offset uint32
}

// Container is the full parsed bytecode file: header fields, resources,
// and instruction blocks. The program's entry block is the last element of
// Blocks (§6).
type Container struct {
	VariableCount byte
	Resources     []ResourceBlock
	Blocks        []InstructionBlock
}

// EntryOffset returns the byte offset of the program's entry instruction
// block (the last one emitted).
func (c *Container) EntryOffset() uint32 {
	if len(c.Blocks) == 0 {
		return 0
	}
	return c.Blocks[len(c.Blocks)-1].Offset
}

// ComputeOffsets resolves each InstructionBlock's file Offset from the
// header size, the encoded resource region size, and the cumulative size
// of the preceding instruction blocks, without serializing anything. The
// emitter calls this once block sizes are fixed so it can patch forward
// address operands before the final Write.
func (c *Container) ComputeOffsets() {
	offset := uint32(6 + resourceRegionSize(c.Resources))
	for i := range c.Blocks {
		c.Blocks[i].Offset = offset
		offset += uint32(len(c.Blocks[i].Code))
	}
}

func resourceRegionSize(resources []ResourceBlock) int {
	n := 0
	for _, r := range resources {
		n += 8 + 4*len(r.Samples)
	}
	return n
}

// Write serializes c to the little-endian wire format described in §6:
// magic, variableCount, resourceCount, resource blocks, then instruction
// blocks back to back.
func (c *Container) Write() []byte {
	var resBuf []byte
	for _, r := range c.Resources {
		resBuf = append(resBuf, encodeResource(r)...)
	}

	header := make([]byte, 6)
	copy(header[0:4], Magic[:])
	header[4] = c.VariableCount
	header[5] = byte(len(c.Resources))

	c.ComputeOffsets()

	out := make([]byte, 0, 6+len(resBuf)+totalBlockLen(c.Blocks))
	out = append(out, header...)
	out = append(out, resBuf...)
	for _, b := range c.Blocks {
		out = append(out, b.Code...)
	}
	return out
}

func totalBlockLen(blocks []InstructionBlock) int {
	n := 0
	for _, b := range blocks {
		n += len(b.Code)
	}
	return n
}

func encodeResource(r ResourceBlock) []byte {
	buf := make([]byte, 8+4*len(r.Samples))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(r.Samples)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.SampleRate))
	for i, s := range r.Samples {
		binary.LittleEndian.PutUint32(buf[8+4*i:12+4*i], uint32(s))
	}
	return buf
}

// Parse decodes a Container from its wire representation, splitting the
// trailing instruction-block region on RETURN-terminated boundaries. It
// does not resolve embedded resource channel counts: every parsed resource
// gets Channels 1, since the wire format in §6 stores only
// length/sampleRate/samples (cli.compile copies the real counts back from
// the emitter's in-memory Container).
func Parse(data []byte) (*Container, error) {
	if len(data) < 6 || string(data[0:4]) != string(Magic[:]) {
		return nil, fmt.Errorf("bytecode: bad magic")
	}
	c := &Container{VariableCount: data[4]}
	resourceCount := int(data[5])
	pos := 6
	for i := 0; i < resourceCount; i++ {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("bytecode: truncated resource block %d", i)
		}
		length := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		sampleRate := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if pos+4*length > len(data) {
			return nil, fmt.Errorf("bytecode: truncated resource samples %d", i)
		}
		samples := make([]int32, length)
		for j := 0; j < length; j++ {
			samples[j] = int32(binary.LittleEndian.Uint32(data[pos+4*j : pos+4*j+4]))
		}
		pos += 4 * length
		c.Resources = append(c.Resources, ResourceBlock{SampleRate: sampleRate, Samples: samples, Channels: 1})
	}

	start := pos
	for pos < len(data) {
		blockStart := pos
		for pos < len(data) && data[pos] != byte(OpReturn) {
			pos, _ = skipInstruction(data, pos)
		}
		if pos >= len(data) {
			return nil, fmt.Errorf("bytecode: instruction block missing RETURN")
		}
		pos++ // consume RETURN
		c.Blocks = append(c.Blocks, InstructionBlock{Code: data[blockStart:pos], Offset: uint32(blockStart)})
	}
	_ = start
	return c, nil
}

// skipInstruction advances past one instruction at data[pos], returning the
// new position. It is used only to find block boundaries while parsing a
// container back from its wire form.
func skipInstruction(data []byte, pos int) (int, error) {
	if pos >= len(data) {
		return pos, fmt.Errorf("bytecode: truncated instruction stream")
	}
	switch Op(data[pos]) {
	case OpReturn, OpStackPushDefault:
		return pos + 1, nil
	case OpStackPushByte, OpStackPushResource, OpSetVariable, OpGetVariable:
		return pos + 2, nil
	case OpStackPushInt, OpStackPushAddress:
		return pos + 5, nil
	case OpStackPushDouble:
		return pos + 9, nil
	case OpCallNative:
		return pos + 3, nil
	case OpCallUser:
		return pos + 6, nil
	default:
		return pos, fmt.Errorf("bytecode: unknown opcode 0x%02x at offset %d", data[pos], pos)
	}
}
