// Package foundation implements the NSObject layer of the emulated
// runtime on top of package objc.
//
// objc only knows refcounts. This package adds what [NSObject alloc],
// -retain, -release and -dealloc do on a real device: class objects with
// metaclasses, per-class teardown run from subclass to root before the
// memory goes away, retain and release of nil and of classes being
// no-ops, and autorelease pools.
//
//	env, err := foundation.New(rt, nil)
//	cls, err := env.DefineClass("MyView", env.NSObject(), func(env *foundation.Env, self objc.ID) error {
//		v, err := objc.Borrow[myView](env.Runtime(), self)
//		if err != nil {
//			return err
//		}
//		return env.Release(v.layer)
//	})
//	obj, err := env.AllocWithHost(cls, &myView{})
//	env.Release(obj) // runs the hook, then frees obj
//
// Classes found in a loaded image are attached with RegisterImageClasses.
package foundation
