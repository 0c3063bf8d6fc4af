package objc

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/objc-runtime/errors"
)

// ID is a generic pointer to an Objective-C object in guest memory,
// including classes and metaclasses. The name is standard Objective-C.
type ID uint32

// Class is a pointer to a class or metaclass object.
type Class = ID

// Nil is the null object pointer.
const Nil ID = 0

func (id ID) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// IsNil reports whether id is the null pointer.
func (id ID) IsNil() bool {
	return id == Nil
}

// objcObject is the memory layout of a minimal Objective-C object. The
// name comes from objc_object in Apple's runtime.
type objcObject struct {
	// Tells you what class an object belongs to. Always at offset 0.
	isa Class
}

// ObjectHeaderSize is the guest size of objc_object.
const ObjectHeaderSize = 4

func (o *objcObject) GuestSize() uint32  { return ObjectHeaderSize }
func (o *objcObject) GuestAlign() uint32 { return 4 }

func (o *objcObject) MarshalGuest(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(o.isa))
}

func (o *objcObject) UnmarshalGuest(b []byte) {
	o.isa = Class(binary.LittleEndian.Uint32(b[0:4]))
}

// ReadIsa reads the all-important isa from guest memory. Reading through
// Nil yields Nil, like object_getClass.
func (r *Runtime) ReadIsa(object ID) (Class, error) {
	if object == Nil {
		return Nil, nil
	}
	isa, err := r.mem.ReadU32(uint32(object))
	if err != nil {
		return Nil, r.fail(errors.New(errors.PhaseIsa, errors.KindOutOfBounds).
			Handle(uint32(object)).Cause(err).Build())
	}
	return Class(isa), nil
}

// WriteIsa writes the all-important isa to guest memory and, for
// registered objects, the host mirror used by VerifyIsa.
func (r *Runtime) WriteIsa(object ID, isa Class) error {
	if object == Nil {
		return r.fail(errors.InvalidInput(errors.PhaseIsa, "write isa through nil"))
	}
	if err := r.mem.WriteU32(uint32(object), uint32(isa)); err != nil {
		return r.fail(errors.New(errors.PhaseIsa, errors.KindOutOfBounds).
			Handle(uint32(object)).Cause(err).Build())
	}
	if e, ok := r.objects.lookup(object); ok {
		e.isa = isa
	}
	return nil
}

// VerifyIsa checks that the guest header of a registered object still
// holds the class the host side recorded.
func (r *Runtime) VerifyIsa(object ID) error {
	e, ok := r.objects.lookup(object)
	if !ok {
		return r.fail(r.objects.unknown(errors.PhaseIsa, object))
	}
	isa, err := r.ReadIsa(object)
	if err != nil {
		return err
	}
	if isa != e.isa {
		return r.fail(errors.Corrupted(errors.PhaseIsa, uint32(object),
			fmt.Sprintf("guest isa %s, host isa %s", isa, e.isa)))
	}
	return nil
}
