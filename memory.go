package objcruntime

// Memory represents the guest address space.
// All multi-byte accesses are little-endian, matching the ARM guest.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of the guest address space in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator hands out blocks of guest memory.
// Free takes only the address; the allocator remembers block sizes.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr uint32) error
}

// FreeSpaceReporter is implemented by allocators that can tell whether an
// address range is still free for them to hand out. Fixed objects must not
// be placed there.
type FreeSpaceReporter interface {
	Unallocated(ptr, size uint32) bool
}

// GuestMemory is the full Guest Memory Interface consumed by the object
// model: typed access plus allocation.
type GuestMemory interface {
	Memory
	Allocator
}

// Record is a fixed-size, fixed-layout value stored in guest memory.
// Implementations encode fields at the offsets the guest ABI expects and
// never rely on host struct layout.
type Record interface {
	GuestSize() uint32
	GuestAlign() uint32
	MarshalGuest(b []byte)
	UnmarshalGuest(b []byte)
}
