package objc

import (
	"go.uber.org/zap"

	"github.com/wippyai/objc-runtime/errors"
)

// DeallocObject destroys an object whose last Release returned true: the
// guest block is freed, the entry removed and the host object dropped. Do
// not call this directly unless you're implementing dealloc on NSObject.
func (r *Runtime) DeallocObject(object ID) error {
	e, ok := r.objects.lookup(object)
	if !ok {
		if r.objects.wasFreed(object) {
			return r.fail(errors.DoubleFree(errors.PhaseDealloc, uint32(object)))
		}
		return r.fail(errors.UnknownObject(errors.PhaseDealloc, uint32(object)))
	}
	switch e.lifetime {
	case LifetimeStatic:
		return r.fail(errors.StaticLifetime(errors.PhaseDealloc, uint32(object)))
	case LifetimeCounted:
		return r.fail(errors.PrematureDealloc(uint32(object), e.refcount))
	}

	if err := r.mem.Free(uint32(object)); err != nil {
		return r.fail(errors.New(errors.PhaseDealloc, errors.KindCorrupted).
			Handle(uint32(object)).
			Detail("guest block could not be freed").
			Cause(err).
			Build())
	}
	if _, err := r.objects.remove(errors.PhaseDealloc, object); err != nil {
		return r.fail(err)
	}

	r.logger.Debug("object deallocated",
		zap.Stringer("object", object),
		zap.Stringer("isa", e.isa))

	if d, ok := e.host.(Dropper); ok {
		d.Drop()
	}
	r.notify(EventDeallocated, object, e)
	return nil
}
