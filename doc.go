// Package objcruntime is the object-model core of an Objective-C
// compatibility layer for 32-bit ARM application binaries.
//
// Guest code runs against an emulated address space. Every object it can
// see is a block in that address space whose first word is the class
// pointer (isa), exactly as Apple's runtime lays it out. Everything the
// host implementation needs to know about the object (its private state,
// its reference count) lives in host memory and is keyed by the guest
// address.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	objcruntime/         Root package with the guest memory contracts
//	├── guestmem/        Guest address space on a wazero linear memory
//	├── objc/            Object table, allocation, refcounting, dealloc
//	├── foundation/      NSObject lifecycle, class objects, autorelease pools
//	├── loader/          Mach-O image validation and segment mapping
//	├── errors/          Structured error types for debugging
//	└── cmd/objcrun/     Inspector CLI
//
// # Quick Start
//
//	space, err := guestmem.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer space.Close(ctx)
//
//	rt := objc.New(space, nil)
//	env, err := foundation.New(rt, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	obj, _ := env.Alloc(env.NSObject())
//	_, _ = env.Retain(obj)
//	_ = env.Release(obj)
//	_ = env.Release(obj) // runs teardown, frees the guest block
//
// # Thread Safety
//
// Nothing in this module is safe for concurrent use. Guest execution is
// single-threaded and cooperative; nested calls from teardown hooks and
// observers are supported.
//
// # Memory Model
//
// The guest address space is a wazero linear memory: 32-bit addresses,
// little-endian, 64KiB pages. It can only grow. Address 0 is never handed
// out so it can serve as nil.
package objcruntime
