package objc

import (
	"math"

	"github.com/wippyai/objc-runtime/errors"
)

// countedEntry looks up an entry that may be retained or released.
func (r *Runtime) countedEntry(phase errors.Phase, object ID) (*hostObjectEntry, error) {
	e, ok := r.objects.lookup(object)
	if !ok {
		return nil, r.fail(r.objects.unknown(phase, object))
	}
	switch e.lifetime {
	case LifetimeStatic:
		// Might mean a missing retain/release override.
		return nil, r.fail(errors.StaticLifetime(phase, uint32(object)))
	case LifetimeDeallocating:
		return nil, r.fail(errors.Deallocating(phase, uint32(object)))
	}
	return e, nil
}

// Retain increases the refcount of a reference-counted object. Do not call
// this directly unless you're implementing retain on NSObject. That method
// may be overridden.
func (r *Runtime) Retain(object ID) error {
	e, err := r.countedEntry(errors.PhaseRetain, object)
	if err != nil {
		return err
	}
	if e.refcount == math.MaxUint32 {
		return r.fail(errors.RefcountOverflow(uint32(object), e.refcount))
	}
	e.refcount++
	r.notify(EventRetained, object, e)
	return nil
}

// Release decreases the refcount of a reference-counted object. Do not
// call this directly unless you're implementing release on NSObject. That
// method may be overridden.
//
// If the result is true, the last owner is gone: the object is now
// deallocating and the caller must run its teardown and then DeallocObject.
func (r *Runtime) Release(object ID) (bool, error) {
	e, err := r.countedEntry(errors.PhaseRelease, object)
	if err != nil {
		return false, err
	}
	dead := e.refcount == 1
	if dead {
		e.refcount = 0
		e.lifetime = LifetimeDeallocating
	} else {
		e.refcount--
	}
	r.notify(EventReleased, object, e)
	return dead, nil
}
