package objc

import (
	"fmt"

	"github.com/wippyai/objc-runtime/errors"
)

// Borrow returns the host object of object downcast to *T. The pointer is
// shared: mutations are seen by every later Borrow or Read. Fails if there
// is no such object or if the host object is not a *T.
func Borrow[T any](r *Runtime, object ID) (*T, error) {
	e, ok := r.objects.lookup(object)
	if !ok {
		return nil, r.fail(r.objects.unknown(errors.PhaseAccess, object))
	}
	v, ok := e.host.(*T)
	if !ok {
		return nil, r.fail(errors.TypeMismatch(errors.PhaseAccess, uint32(object),
			fmt.Sprintf("%T", e.host), fmt.Sprintf("%T", (*T)(nil))))
	}
	return v, nil
}

// Read returns a copy of the host object of object. Same failure rules as
// Borrow.
func Read[T any](r *Runtime, object ID) (T, error) {
	v, err := Borrow[T](r, object)
	if err != nil {
		var zero T
		return zero, err
	}
	return *v, nil
}

// HostObjectOf returns the type-erased host object, if the object exists.
func (r *Runtime) HostObjectOf(object ID) (HostObject, bool) {
	e, ok := r.objects.lookup(object)
	if !ok {
		return nil, false
	}
	return e.host, true
}
