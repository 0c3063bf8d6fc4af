package foundation

import (
	"go.uber.org/zap"

	"github.com/wippyai/objc-runtime/errors"
	"github.com/wippyai/objc-runtime/objc"
)

// Config holds configuration for Env creation
type Config struct {
	// Logger overrides the package logger for this environment.
	Logger *zap.Logger
}

// Env is the NSObject layer of one emulated process.
//
// Env is not safe for concurrent use.
type Env struct {
	rt       *objc.Runtime
	classes  map[string]objc.Class
	nsobject objc.Class
	pools    [][]objc.ID
	logger   *zap.Logger
}

// New creates an environment over rt and defines the NSObject root class.
func New(rt *objc.Runtime, cfg *Config) (*Env, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}
	env := &Env{
		rt:      rt,
		classes: make(map[string]objc.Class),
		logger:  c.Logger,
	}
	nsobject, err := env.DefineClass("NSObject", objc.Nil, nil)
	if err != nil {
		return nil, err
	}
	env.nsobject = nsobject
	return env, nil
}

// Runtime returns the underlying object runtime.
func (env *Env) Runtime() *objc.Runtime {
	return env.rt
}

// NSObject returns the root class.
func (env *Env) NSObject() objc.Class {
	return env.nsobject
}

// Alloc implements +[NSObject alloc]: a new instance of class with a
// refcount of 1 and no host state.
func (env *Env) Alloc(class objc.Class) (objc.ID, error) {
	return env.AllocWithHost(class, &objc.TrivialHostObject{})
}

// AllocWithHost is Alloc for classes whose instances carry host state.
func (env *Env) AllocWithHost(class objc.Class, host objc.HostObject) (objc.ID, error) {
	if _, err := env.classInfo(errors.PhaseAlloc, class); err != nil {
		return objc.Nil, err
	}
	return env.rt.AllocObject(class, host)
}

// Retain implements -[NSObject retain] and returns object. Messages to
// nil and to static objects such as classes do nothing.
func (env *Env) Retain(object objc.ID) (objc.ID, error) {
	if object == objc.Nil || env.isStatic(object) {
		return object, nil
	}
	if err := env.rt.Retain(object); err != nil {
		return objc.Nil, err
	}
	return object, nil
}

// Release implements -[NSObject release]. When the last owner lets go the
// object is deallocated before Release returns.
func (env *Env) Release(object objc.ID) error {
	if object == objc.Nil || env.isStatic(object) {
		return nil
	}
	dead, err := env.rt.Release(object)
	if err != nil {
		return err
	}
	if !dead {
		return nil
	}
	return env.dealloc(object)
}

func (env *Env) isStatic(object objc.ID) bool {
	info, ok := env.rt.Lookup(object)
	return ok && info.Lifetime == objc.LifetimeStatic
}

// dealloc implements -[NSObject dealloc]: every class from the object's
// own up to the root gets to tear down its state, then the object is
// freed. If a hook fails the object is left deallocating.
func (env *Env) dealloc(object objc.ID) error {
	class, err := env.rt.ReadIsa(object)
	if err != nil {
		return err
	}
	for class != objc.Nil {
		info, err := env.classInfo(errors.PhaseDealloc, class)
		if err != nil {
			return err
		}
		if info.Dealloc != nil {
			if err := info.Dealloc(env, object); err != nil {
				env.logger.Error("dealloc hook failed",
					zap.String("class", info.Name),
					zap.Stringer("object", object),
					zap.Error(err))
				return err
			}
		}
		class = info.Superclass
	}
	return env.rt.DeallocObject(object)
}

// PushPool implements -[NSAutoreleasePool init]: later Autorelease calls
// go to the new innermost pool. Returns the new depth.
func (env *Env) PushPool() int {
	env.pools = append(env.pools, nil)
	return len(env.pools)
}

// Autorelease implements -[NSObject autorelease]: object is released when
// the innermost pool is popped. Returns object.
func (env *Env) Autorelease(object objc.ID) (objc.ID, error) {
	if object == objc.Nil || env.isStatic(object) {
		return object, nil
	}
	if len(env.pools) == 0 {
		return objc.Nil, errors.New(errors.PhaseRelease, errors.KindNotFound).
			Handle(uint32(object)).
			Detail("autorelease with no pool in place, object would leak").
			Build()
	}
	if _, ok := env.rt.Lookup(object); !ok {
		return objc.Nil, errors.UnknownObject(errors.PhaseRelease, uint32(object))
	}
	top := len(env.pools) - 1
	env.pools[top] = append(env.pools[top], object)
	return object, nil
}

// PopPool drains the innermost pool, releasing its objects newest first.
// Objects autoreleased while draining go to the same pool and are
// released too. Every release is attempted; the first error is returned.
func (env *Env) PopPool() error {
	if len(env.pools) == 0 {
		return errors.New(errors.PhaseRelease, errors.KindNotFound).
			Detail("no autorelease pool to pop").
			Build()
	}
	top := len(env.pools) - 1

	var first error
	for len(env.pools[top]) > 0 {
		pool := env.pools[top]
		object := pool[len(pool)-1]
		env.pools[top] = pool[:len(pool)-1]
		if err := env.Release(object); err != nil && first == nil {
			first = err
		}
	}
	env.pools = env.pools[:top]
	return first
}

// PoolDepth returns the number of pools in place.
func (env *Env) PoolDepth() int {
	return len(env.pools)
}
