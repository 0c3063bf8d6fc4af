package objc

import (
	"go.uber.org/zap"

	objcruntime "github.com/wippyai/objc-runtime"
	"github.com/wippyai/objc-runtime/errors"
	"github.com/wippyai/objc-runtime/guestmem"
)

func (r *Runtime) allocObjectInner(isa Class, host HostObject, lifetime Lifetime, refcount uint32) (ID, error) {
	if err := checkHostObject(errors.PhaseAlloc, host); err != nil {
		return Nil, r.fail(err)
	}

	object, err := r.allocHeader(isa)
	if err != nil {
		return Nil, err
	}

	e := &hostObjectEntry{
		host:     host,
		isa:      isa,
		refcount: refcount,
		lifetime: lifetime,
	}
	if err := r.objects.insert(errors.PhaseAlloc, object, e); err != nil {
		_ = r.mem.Free(uint32(object))
		return Nil, r.fail(err)
	}

	r.logger.Debug("object allocated",
		zap.Stringer("object", object),
		zap.Stringer("isa", isa),
		zap.Stringer("lifetime", lifetime))
	r.notify(EventAllocated, object, e)
	return object, nil
}

// allocHeader takes a fresh block from the allocator and writes the
// objc_object header into it. A block that lands on an address already
// registered as a static object is left allocated, so the allocator never
// hands it out again, and is never written.
func (r *Runtime) allocHeader(isa Class) (ID, error) {
	for {
		ptr, err := r.mem.Alloc(ObjectHeaderSize, 4)
		if err != nil {
			return Nil, r.fail(errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "allocate objc_object"))
		}
		object := ID(ptr)
		if _, taken := r.objects.lookup(object); taken {
			r.logger.Warn("allocator returned a registered address, reserving it",
				zap.Stringer("object", object))
			continue
		}
		if err := guestmem.WriteRecord(r.mem, ptr, &objcObject{isa: isa}); err != nil {
			_ = r.mem.Free(ptr)
			return Nil, r.fail(errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "write objc_object"))
		}
		return object, nil
	}
}

// AllocObject allocates a reference-counted guest object (like
// [NSObject alloc]) and associates it with its host object. The new object
// has a refcount of 1.
func (r *Runtime) AllocObject(isa Class, host HostObject) (ID, error) {
	return r.allocObjectInner(isa, host, LifetimeCounted, 1)
}

// AllocStaticObject allocates a static-lifetime guest object (for
// example, a class) and associates it with its host object.
func (r *Runtime) AllocStaticObject(isa Class, host HostObject) (ID, error) {
	return r.allocObjectInner(isa, host, LifetimeStatic, 0)
}

// RegisterStaticObject associates a host object with an existing
// static-lifetime guest object (for example, a class in a loaded image).
// No guest memory is allocated; the isa is taken from the existing header.
func (r *Runtime) RegisterStaticObject(object ID, host HostObject) error {
	return r.RegisterStaticObjects(StaticObject{Object: object, Host: host})
}

// StaticObject pairs an existing guest object with its host object.
type StaticObject struct {
	Object ID
	Host   HostObject
}

// RegisterStaticObjects registers several static objects together, such as
// a class and its metaclass. Every object is checked before the first is
// registered, so on error the table is unchanged.
func (r *Runtime) RegisterStaticObjects(objs ...StaticObject) error {
	entries := make([]*hostObjectEntry, len(objs))
	for i, o := range objs {
		isa, err := r.checkStatic(o.Object, o.Host)
		if err != nil {
			return err
		}
		for _, prev := range objs[:i] {
			if prev.Object == o.Object {
				return r.fail(errors.DuplicateRegistration(errors.PhaseRegister, uint32(o.Object)))
			}
		}
		entries[i] = &hostObjectEntry{
			host:     o.Host,
			isa:      isa,
			lifetime: LifetimeStatic,
		}
	}

	for i, o := range objs {
		if err := r.objects.insert(errors.PhaseRegister, o.Object, entries[i]); err != nil {
			return r.fail(err)
		}
		r.logger.Debug("static object registered",
			zap.Stringer("object", o.Object),
			zap.Stringer("isa", entries[i].isa))
		r.notify(EventRegistered, o.Object, entries[i])
	}
	return nil
}

// checkStatic validates one static registration and returns the object's
// current isa.
func (r *Runtime) checkStatic(object ID, host HostObject) (Class, error) {
	if object == Nil {
		return Nil, r.fail(errors.InvalidInput(errors.PhaseRegister, "cannot register nil"))
	}
	if err := checkHostObject(errors.PhaseRegister, host); err != nil {
		return Nil, r.fail(err)
	}
	if _, ok := r.objects.lookup(object); ok {
		return Nil, r.fail(errors.DuplicateRegistration(errors.PhaseRegister, uint32(object)))
	}
	if fs, ok := r.mem.(objcruntime.FreeSpaceReporter); ok && fs.Unallocated(uint32(object), ObjectHeaderSize) {
		return Nil, r.fail(errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Handle(uint32(object)).
			Detail("object lies in unallocated heap space").
			Build())
	}
	return r.ReadIsa(object)
}
