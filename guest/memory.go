package guest

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Memory adapts wazero linear memory to helloelement.Memory.
type Memory struct {
	mem api.Memory
}

func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	view, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read %d bytes at 0x%x: out of range", length, offset)
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("read byte at 0x%x: out of range", offset)
	}
	return v, nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read u32 at 0x%x: out of range", offset)
	}
	return v, nil
}

func (m *Memory) Size() uint32 {
	return m.mem.Size()
}
