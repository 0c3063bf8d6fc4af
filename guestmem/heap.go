package guestmem

import (
	"fmt"
	"slices"
	"sort"

	"github.com/wippyai/objc-runtime/errors"
)

// PageSize is the growth granularity of guest memory.
const PageSize = 65536

const (
	// MinAlign is the pointer alignment of the 32-bit guest.
	MinAlign = 4

	// DefaultHeapBase keeps the null page out of the heap.
	DefaultHeapBase = 0x1000
)

// Pager is the part of api.Memory the heap needs to extend itself.
type Pager interface {
	Size() uint32
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

type span struct {
	addr uint32
	size uint32
}

func (s span) end() uint64 { return uint64(s.addr) + uint64(s.size) }

// Heap is a first-fit allocator over guest memory at and above base.
// Free spans are kept sorted by address and coalesced on free.
type Heap struct {
	pager  Pager
	blocks map[uint32]uint32
	free   []span
	base   uint32
	inUse  uint64
}

// NewHeap creates a heap managing [base, memory size). The region below
// base is left to the caller, e.g. for mapped image segments.
func NewHeap(p Pager, base uint32) *Heap {
	if base == 0 {
		base = DefaultHeapBase
	}
	base = alignUp(base, 8)
	h := &Heap{
		pager:  p,
		blocks: make(map[uint32]uint32),
		base:   base,
	}
	h.addRegion(uint64(base), uint64(p.Size()))
	return h
}

// Alloc returns the address of a new block of at least size bytes.
// align must be a power of two; 0 means MinAlign.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, "zero-sized allocation")
	}
	if align == 0 {
		align = MinAlign
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, fmt.Sprintf("alignment %d is not a power of two", align))
	}
	if align < MinAlign {
		align = MinAlign
	}
	size = alignUp(size, MinAlign)

	for {
		if ptr, ok := h.take(size, align); ok {
			h.blocks[ptr] = size
			h.inUse += uint64(size)
			return ptr, nil
		}
		if err := h.grow(uint64(size) + uint64(align)); err != nil {
			return 0, errors.AllocationFailed(errors.PhaseMemory, size, align, err)
		}
	}
}

// Free returns a block to the heap.
func (h *Heap) Free(ptr uint32) error {
	size, ok := h.blocks[ptr]
	if !ok {
		return errors.DoubleFree(errors.PhaseMemory, ptr)
	}
	delete(h.blocks, ptr)
	h.inUse -= uint64(size)
	h.insert(span{addr: ptr, size: size})
	return nil
}

// BlockSize returns the size of a live block.
func (h *Heap) BlockSize(ptr uint32) (uint32, bool) {
	size, ok := h.blocks[ptr]
	return size, ok
}

// Unallocated reports whether any byte of [ptr, ptr+size) lies in free
// heap space, i.e. in a range a later Alloc may hand out.
func (h *Heap) Unallocated(ptr, size uint32) bool {
	end := uint64(ptr) + uint64(size)
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].end() > uint64(ptr) })
	return i < len(h.free) && uint64(h.free[i].addr) < end
}

// Base returns the lowest address the heap may hand out.
func (h *Heap) Base() uint32 { return h.base }

// Blocks returns the number of live blocks.
func (h *Heap) Blocks() int { return len(h.blocks) }

// InUse returns the number of bytes in live blocks.
func (h *Heap) InUse() uint64 { return h.inUse }

// FreeBytes returns the number of bytes available without growing.
func (h *Heap) FreeBytes() uint64 {
	var n uint64
	for _, s := range h.free {
		n += uint64(s.size)
	}
	return n
}

func (h *Heap) take(size, align uint32) (uint32, bool) {
	for i, s := range h.free {
		start := alignUp64(uint64(s.addr), uint64(align))
		if start+uint64(size) > s.end() {
			continue
		}

		var parts []span
		if start > uint64(s.addr) {
			parts = append(parts, span{addr: s.addr, size: uint32(start - uint64(s.addr))})
		}
		if tail := s.end() - (start + uint64(size)); tail > 0 {
			parts = append(parts, span{addr: uint32(start) + size, size: uint32(tail)})
		}
		h.free = slices.Replace(h.free, i, i+1, parts...)
		return uint32(start), true
	}
	return 0, false
}

func (h *Heap) grow(need uint64) error {
	pages := uint32((need + PageSize - 1) / PageSize)
	prev, ok := h.pager.Grow(pages)
	if !ok {
		return fmt.Errorf("cannot grow guest memory by %d pages", pages)
	}
	lo := uint64(prev) * PageSize
	hi := lo + uint64(pages)*PageSize
	Logger().Debug("guest memory grown",
		zapHex("from", lo), zapHex("to", hi))
	h.addRegion(lo, hi)
	return nil
}

func (h *Heap) addRegion(lo, hi uint64) {
	if lo < uint64(h.base) {
		lo = uint64(h.base)
	}
	if hi <= lo {
		return
	}
	h.insert(span{addr: uint32(lo), size: uint32(hi - lo)})
}

func (h *Heap) insert(s span) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr >= s.addr })
	h.free = slices.Insert(h.free, i, s)

	// merge with the following span
	if i+1 < len(h.free) && h.free[i].end() == uint64(h.free[i+1].addr) {
		h.free[i].size += h.free[i+1].size
		h.free = slices.Delete(h.free, i+1, i+2)
	}
	// merge with the preceding span
	if i > 0 && h.free[i-1].end() == uint64(h.free[i].addr) {
		h.free[i-1].size += h.free[i].size
		h.free = slices.Delete(h.free, i, i+1)
	}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

func alignUp64(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
