package buddy

import "encoding/binary"

// ArenaMemory is a byte-slice backed Memory, the host-side stand-in for the
// HHDM-mapped physical memory window real hardware would give the
// allocator. Every package test, and the boot-time allocator until a real
// riscv64 port exists, uses this instead of unsafe pointer arithmetic over
// physical addresses.
type ArenaMemory struct {
	Bytes []byte
}

// NewArenaMemory allocates an arena of size bytes.
func NewArenaMemory(size uint64) *ArenaMemory {
	return &ArenaMemory{Bytes: make([]byte, size)}
}

func (m *ArenaMemory) ReadU64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.Bytes[addr : addr+8])
}

func (m *ArenaMemory) WriteU64(addr uint64, v uint64) {
	binary.LittleEndian.PutUint64(m.Bytes[addr:addr+8], v)
}

var _ Memory = (*ArenaMemory)(nil)
