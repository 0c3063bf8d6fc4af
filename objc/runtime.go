package objc

import (
	"go.uber.org/zap"

	objcruntime "github.com/wippyai/objc-runtime"
	"github.com/wippyai/objc-runtime/errors"
)

// Config holds configuration for Runtime creation
type Config struct {
	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger

	// PanicOnViolation panics with the *errors.Error instead of returning
	// it, making every violation fatal.
	PanicOnViolation bool

	// DisableFreedTracking stops remembering deallocated addresses. Without
	// tracking, a second DeallocObject reports KindUnknownObject instead of
	// KindDoubleFree.
	DisableFreedTracking bool
}

// Runtime is the object model of one emulated process. It owns the object
// table; all operations take it explicitly, so several emulated processes
// can coexist in one host process.
//
// Runtime is not safe for concurrent use.
type Runtime struct {
	mem       objcruntime.GuestMemory
	objects   *objectTable
	observers []observerSlot
	nextObsID int
	logger    *zap.Logger
	panicMode bool
}

// New creates a runtime over the given guest memory.
func New(mem objcruntime.GuestMemory, cfg *Config) *Runtime {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}
	return &Runtime{
		mem:       mem,
		objects:   newObjectTable(!c.DisableFreedTracking),
		logger:    c.Logger,
		panicMode: c.PanicOnViolation,
	}
}

// Memory returns the guest memory the runtime allocates from.
func (r *Runtime) Memory() objcruntime.GuestMemory {
	return r.mem
}

// Len returns the number of objects in the table.
func (r *Runtime) Len() int {
	return r.objects.len()
}

// fail logs a violation and either returns or panics with it.
func (r *Runtime) fail(err *errors.Error) error {
	fields := []zap.Field{
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
	}
	if err.HasHandle {
		fields = append(fields, zap.Stringer("object", ID(err.Handle)))
	}
	r.logger.Error(err.Error(), fields...)
	if r.panicMode {
		panic(err)
	}
	return err
}
