package guestmem

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	objcruntime "github.com/wippyai/objc-runtime"
	"github.com/wippyai/objc-runtime/errors"
)

const (
	// DefaultInitialPages is 1MiB of guest memory.
	DefaultInitialPages = 16
	// DefaultMaxPages is 256MiB of guest memory.
	DefaultMaxPages = 4096
	// MaxPages is the largest memory whose byte size still fits in 32 bits.
	MaxPages = 65535
)

// Config holds configuration for Space creation
type Config struct {
	// Logger overrides the package logger for this space.
	Logger *zap.Logger

	// InitialPages is the memory size at creation, in 64KiB pages.
	// 0 means DefaultInitialPages.
	InitialPages uint32

	// MaxPages caps memory growth. 0 means DefaultMaxPages.
	MaxPages uint32

	// HeapBase is the lowest address the heap hands out. Everything below
	// it is reserved for fixed mappings such as image segments.
	// 0 means DefaultHeapBase.
	HeapBase uint32
}

var _ objcruntime.GuestMemory = (*Space)(nil)

// Space is a guest address space: a wazero linear memory plus a heap.
type Space struct {
	*Wrapper
	heap    *Heap
	runtime wazero.Runtime
	logger  *zap.Logger
}

// New creates a guest address space.
func New(ctx context.Context, cfg *Config) (*Space, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.InitialPages == 0 {
		c.InitialPages = DefaultInitialPages
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxPages > MaxPages {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("max pages %d exceeds %d", c.MaxPages, MaxPages))
	}
	if c.InitialPages > c.MaxPages {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("initial pages %d exceed max pages %d", c.InitialPages, c.MaxPages))
	}
	if c.HeapBase == 0 {
		c.HeapBase = DefaultHeapBase
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(c.MaxPages)
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	mod, err := rt.InstantiateWithConfig(ctx, memoryModule(c.InitialPages, c.MaxPages),
		wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "instantiate guest memory")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseMemory, "export", "memory")
	}

	s := &Space{
		Wrapper: WrapMemory(mem),
		heap:    NewHeap(mem, c.HeapBase),
		runtime: rt,
		logger:  c.Logger,
	}
	s.logger.Debug("guest address space created",
		zap.Uint32("pages", c.InitialPages),
		zap.Uint32("max_pages", c.MaxPages),
		zapHex("heap_base", uint64(s.heap.Base())))
	return s, nil
}

// Alloc allocates a zero-filled block in the heap.
func (s *Space) Alloc(size, align uint32) (uint32, error) {
	ptr, err := s.heap.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	n, _ := s.heap.BlockSize(ptr)
	if err := s.Zero(ptr, n); err != nil {
		_ = s.heap.Free(ptr)
		return 0, err
	}
	return ptr, nil
}

// Free releases a block previously returned by Alloc.
func (s *Space) Free(ptr uint32) error {
	return s.heap.Free(ptr)
}

// Unallocated reports whether [ptr, ptr+size) overlaps free heap space.
func (s *Space) Unallocated(ptr, size uint32) bool {
	return s.heap.Unallocated(ptr, size)
}

// Heap returns the space's allocator.
func (s *Space) Heap() *Heap {
	return s.heap
}

// HeapBase returns the lowest address the heap hands out. Fixed mappings
// must end at or below it.
func (s *Space) HeapBase() uint32 {
	return s.heap.Base()
}

// EnsureSize grows memory until it is at least size bytes long. Used to
// make room for fixed mappings below the heap base.
func (s *Space) EnsureSize(size uint64) error {
	cur := uint64(s.Mem.Size())
	if cur >= size {
		return nil
	}
	pages := uint32((size - cur + PageSize - 1) / PageSize)
	prev, ok := s.Mem.Grow(pages)
	if !ok {
		return errors.AllocationFailed(errors.PhaseMemory, uint32(size-cur), PageSize,
			fmt.Errorf("cannot grow guest memory by %d pages", pages))
	}
	lo := uint64(prev) * PageSize
	s.heap.addRegion(lo, lo+uint64(pages)*PageSize)
	return nil
}

// Close releases the underlying wazero runtime.
func (s *Space) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}
