package foundation

import (
	"context"
	"errors"
	"testing"

	objerrors "github.com/wippyai/objc-runtime/errors"
	"github.com/wippyai/objc-runtime/guestmem"
	"github.com/wippyai/objc-runtime/objc"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	ctx := context.Background()
	space, err := guestmem.New(ctx, &guestmem.Config{InitialPages: 1})
	if err != nil {
		t.Fatalf("guestmem.New failed: %v", err)
	}
	t.Cleanup(func() { space.Close(ctx) })

	env, err := New(objc.New(space, nil), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return env
}

func wantKind(t *testing.T, err error, kind objerrors.Kind) {
	t.Helper()
	if !errors.Is(err, &objerrors.Error{Kind: kind}) {
		t.Fatalf("err = %v, want kind %s", err, kind)
	}
}

func TestNew_RootClass(t *testing.T) {
	env := newTestEnv(t)
	rt := env.Runtime()
	nsobject := env.NSObject()

	if cls, ok := env.LookupClass("NSObject"); !ok || cls != nsobject {
		t.Fatalf("LookupClass(NSObject) = %v, %v", cls, ok)
	}
	info, err := objc.Borrow[ClassInfo](rt, nsobject)
	if err != nil {
		t.Fatalf("Borrow failed: %v", err)
	}
	if info.Superclass != objc.Nil || info.IsMeta {
		t.Errorf("NSObject info = %+v", info)
	}

	meta, _ := rt.ReadIsa(nsobject)
	if meta != info.Metaclass {
		t.Errorf("isa = %v, want metaclass %v", meta, info.Metaclass)
	}
	// the root metaclass is its own class and inherits from the root class
	if isa, _ := rt.ReadIsa(meta); isa != meta {
		t.Errorf("root metaclass isa = %v, want itself", isa)
	}
	metaInfo, _ := objc.Borrow[ClassInfo](rt, meta)
	if !metaInfo.IsMeta || metaInfo.Superclass != nsobject {
		t.Errorf("root metaclass info = %+v", metaInfo)
	}
}

func TestDefineClass(t *testing.T) {
	env := newTestEnv(t)
	rt := env.Runtime()

	view, err := env.DefineClass("UIView", env.NSObject(), nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	button, err := env.DefineClass("UIButton", view, nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}

	nsInfo, _ := objc.Borrow[ClassInfo](rt, env.NSObject())
	info, _ := objc.Borrow[ClassInfo](rt, button)
	if info.Superclass != view {
		t.Errorf("UIButton superclass = %v, want %v", info.Superclass, view)
	}
	// every metaclass is an instance of the root metaclass
	if isa, _ := rt.ReadIsa(info.Metaclass); isa != nsInfo.Metaclass {
		t.Errorf("metaclass isa = %v, want %v", isa, nsInfo.Metaclass)
	}
	viewInfo, _ := objc.Borrow[ClassInfo](rt, view)
	metaInfo, _ := objc.Borrow[ClassInfo](rt, info.Metaclass)
	if metaInfo.Superclass != viewInfo.Metaclass {
		t.Errorf("metaclass superclass = %v, want %v", metaInfo.Superclass, viewInfo.Metaclass)
	}

	// the guest structure carries the superclass in its second word
	if super, _ := rt.Memory().ReadU32(uint32(button) + 4); objc.Class(super) != view {
		t.Errorf("guest superclass = %#x, want %v", super, view)
	}

	if name, _ := env.ClassName(button); name != "UIButton" {
		t.Errorf("ClassName = %q", name)
	}
}

func TestDefineClass_Invalid(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.DefineClass("NSObject", objc.Nil, nil)
	wantKind(t, err, objerrors.KindDuplicateRegistration)

	_, err = env.DefineClass("", env.NSObject(), nil)
	wantKind(t, err, objerrors.KindInvalidInput)

	obj, _ := env.Alloc(env.NSObject())
	_, err = env.DefineClass("Bad", obj, nil)
	wantKind(t, err, objerrors.KindTypeMismatch)

	meta, _ := env.Runtime().ReadIsa(env.NSObject())
	_, err = env.DefineClass("AlsoBad", meta, nil)
	wantKind(t, err, objerrors.KindInvalidInput)
}

func TestAllocRetainRelease(t *testing.T) {
	env := newTestEnv(t)
	rt := env.Runtime()

	obj, err := env.Alloc(env.NSObject())
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if got, err := env.Retain(obj); err != nil || got != obj {
		t.Fatalf("Retain = %v, %v", got, err)
	}
	if err := env.Release(obj); err != nil {
		t.Fatal(err)
	}
	if _, ok := rt.Lookup(obj); !ok {
		t.Fatal("object freed while still owned")
	}
	if err := env.Release(obj); err != nil {
		t.Fatal(err)
	}
	if _, ok := rt.Lookup(obj); ok {
		t.Error("object survived its last release")
	}

	wantKind(t, env.Release(obj), objerrors.KindUnknownObject)
}

func TestRetainRelease_NilAndClasses(t *testing.T) {
	env := newTestEnv(t)

	if got, err := env.Retain(objc.Nil); err != nil || got != objc.Nil {
		t.Errorf("Retain(nil) = %v, %v", got, err)
	}
	if err := env.Release(objc.Nil); err != nil {
		t.Errorf("Release(nil) = %v", err)
	}
	if _, err := env.Retain(env.NSObject()); err != nil {
		t.Errorf("Retain(class) = %v", err)
	}
	if err := env.Release(env.NSObject()); err != nil {
		t.Errorf("Release(class) = %v", err)
	}
}

func TestAlloc_NotAClass(t *testing.T) {
	env := newTestEnv(t)
	obj, _ := env.Alloc(env.NSObject())

	_, err := env.Alloc(obj)
	wantKind(t, err, objerrors.KindTypeMismatch)
	_, err = env.Alloc(objc.ID(0x9000))
	wantKind(t, err, objerrors.KindUnknownObject)
}

type holder struct {
	child objc.ID
}

func TestDealloc_HooksRunSubclassFirst(t *testing.T) {
	env := newTestEnv(t)
	rt := env.Runtime()

	var order []string
	base, _ := env.DefineClass("Base", env.NSObject(), func(env *Env, self objc.ID) error {
		order = append(order, "Base")
		// memory is still there
		if _, ok := env.Runtime().Lookup(self); !ok {
			t.Error("object gone during teardown")
		}
		return nil
	})
	derived, _ := env.DefineClass("Derived", base, func(env *Env, self objc.ID) error {
		order = append(order, "Derived")
		h, err := objc.Borrow[holder](env.Runtime(), self)
		if err != nil {
			return err
		}
		return env.Release(h.child)
	})

	child, _ := env.Alloc(env.NSObject())
	obj, err := env.AllocWithHost(derived, &holder{child: child})
	if err != nil {
		t.Fatalf("AllocWithHost failed: %v", err)
	}

	if err := env.Release(obj); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if len(order) != 2 || order[0] != "Derived" || order[1] != "Base" {
		t.Errorf("hook order = %v", order)
	}
	if _, ok := rt.Lookup(child); ok {
		t.Error("child not released by teardown")
	}
	if _, ok := rt.Lookup(obj); ok {
		t.Error("object not freed")
	}
}

func TestDealloc_HookFailure(t *testing.T) {
	env := newTestEnv(t)
	rt := env.Runtime()
	boom := errors.New("boom")

	cls, _ := env.DefineClass("Fragile", env.NSObject(), func(*Env, objc.ID) error {
		return boom
	})
	obj, _ := env.Alloc(cls)

	if err := env.Release(obj); !errors.Is(err, boom) {
		t.Fatalf("Release = %v, want boom", err)
	}
	info, ok := rt.Lookup(obj)
	if !ok || info.Lifetime != objc.LifetimeDeallocating {
		t.Errorf("object after failed teardown: %+v, %v", info, ok)
	}
}

func TestIsKindOfClass(t *testing.T) {
	env := newTestEnv(t)
	view, _ := env.DefineClass("UIView", env.NSObject(), nil)
	label, _ := env.DefineClass("UILabel", view, nil)
	other, _ := env.DefineClass("NSString", env.NSObject(), nil)

	obj, _ := env.Alloc(label)
	for _, tt := range []struct {
		class objc.Class
		want  bool
	}{
		{label, true},
		{view, true},
		{env.NSObject(), true},
		{other, false},
	} {
		if got := env.IsKindOfClass(obj, tt.class); got != tt.want {
			t.Errorf("IsKindOfClass(%v) = %v, want %v", tt.class, got, tt.want)
		}
	}
	if name, _ := env.ClassName(obj); name != "UILabel" {
		t.Errorf("ClassName = %q", name)
	}
}

func TestDefineClass_AllocationFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	space, err := guestmem.New(ctx, &guestmem.Config{InitialPages: 1, MaxPages: 1})
	if err != nil {
		t.Fatalf("guestmem.New failed: %v", err)
	}
	t.Cleanup(func() { space.Close(ctx) })
	env, err := New(objc.New(space, nil), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rt := env.Runtime()

	// fill the heap, then leave room for exactly one class structure
	var last uint32
	for {
		ptr, err := space.Alloc(classSize, 4)
		if err != nil {
			break
		}
		last = ptr
	}
	_ = space.Free(last)
	objects, blocks := rt.Len(), space.Heap().Blocks()

	_, err = env.DefineClass("UIView", env.NSObject(), nil)
	wantKind(t, err, objerrors.KindAllocation)
	if rt.Len() != objects {
		t.Errorf("Len() = %d, want %d", rt.Len(), objects)
	}
	if space.Heap().Blocks() != blocks {
		t.Errorf("heap blocks = %d, want %d", space.Heap().Blocks(), blocks)
	}
	if _, ok := env.LookupClass("UIView"); ok {
		t.Error("LookupClass found a failed class")
	}

	_ = space.Free(last - classSize)
	if _, err := env.DefineClass("UIView", env.NSObject(), nil); err != nil {
		t.Fatalf("DefineClass after freeing room failed: %v", err)
	}
}
