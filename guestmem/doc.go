// Package guestmem provides the guest address space.
//
// The emulated process sees a flat, 32-bit, little-endian address space.
// This package backs it with a wazero linear memory instantiated from a
// memory-only module, so host code gets bounds-checked access, page
// granular growth and a hard upper limit for free. No WebAssembly code ever
// runs in it.
//
// # Memory Wrapper
//
// Wraps wazero api.Memory with typed accessors:
//
//	mem := guestmem.WrapMemory(module.ExportedMemory("memory"))
//	// mem implements objcruntime.Memory
//
// # Heap
//
// A first-fit allocator over the region above the heap base. It keeps block
// sizes on the host side, so Free only needs the address:
//
//	ptr, err := heap.Alloc(16, 4)
//	err = heap.Free(ptr)
//
// # Space
//
// Space owns the wazero runtime, the memory and the heap, and implements
// objcruntime.GuestMemory:
//
//	space, err := guestmem.New(ctx, &guestmem.Config{InitialPages: 16})
//	defer space.Close(ctx)
//
//	ptr, err := guestmem.AllocAndWrite(space, record)
//
// Address 0 and the rest of the page below the default heap base are never
// allocated, so a zero address can be used as nil.
package guestmem
