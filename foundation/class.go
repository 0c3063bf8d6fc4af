package foundation

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/wippyai/objc-runtime/errors"
	"github.com/wippyai/objc-runtime/guestmem"
	"github.com/wippyai/objc-runtime/loader"
	"github.com/wippyai/objc-runtime/objc"
)

// DeallocFunc is a class's -dealloc override. It runs with the object
// already deallocating and must not free it; the memory is released after
// every class in the chain has run its hook.
type DeallocFunc func(env *Env, self objc.ID) error

// ClassInfo is the host object of a class or metaclass.
type ClassInfo struct {
	Name       string
	Superclass objc.Class
	// Metaclass is the class's metaclass; Nil for metaclasses.
	Metaclass objc.Class
	IsMeta    bool
	Dealloc   DeallocFunc
}

// classInfo returns the host object of a class, failing for metaclasses
// and for objects that are not classes at all.
func (env *Env) classInfo(phase errors.Phase, class objc.Class) (*ClassInfo, error) {
	info, err := objc.Borrow[ClassInfo](env.rt, class)
	if err != nil {
		return nil, err
	}
	if info.IsMeta {
		return nil, errors.New(phase, errors.KindInvalidInput).
			Handle(uint32(class)).
			Detail("metaclass of %s used as a class", info.Name).
			Build()
	}
	return info, nil
}

// classSize is the guest size of a class structure: isa, superclass, cache,
// vtable and data. The runtime only reads the first two words.
const classSize = 20

// DefineClass creates a class and its metaclass as static objects.
// superclass Nil makes a new root class. dealloc may be nil.
func (env *Env) DefineClass(name string, superclass objc.Class, dealloc DeallocFunc) (objc.Class, error) {
	if name == "" {
		return objc.Nil, errors.InvalidInput(errors.PhaseAlloc, "empty class name")
	}
	if existing, ok := env.classes[name]; ok {
		return objc.Nil, errors.New(errors.PhaseAlloc, errors.KindDuplicateRegistration).
			Handle(uint32(existing)).
			Detail("class %s already defined", name).
			Build()
	}

	var metaIsa, metaSuper objc.Class
	if superclass != objc.Nil {
		super, err := env.classInfo(errors.PhaseAlloc, superclass)
		if err != nil {
			return objc.Nil, err
		}
		// every metaclass is an instance of the root metaclass
		metaIsa, err = env.rt.ReadIsa(super.Metaclass)
		if err != nil {
			return objc.Nil, err
		}
		metaSuper = super.Metaclass
	}

	mem := env.rt.Memory()
	metaPtr, err := mem.Alloc(classSize, 4)
	if err != nil {
		return objc.Nil, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "allocate metaclass of "+name)
	}
	classPtr, err := mem.Alloc(classSize, 4)
	if err != nil {
		_ = mem.Free(metaPtr)
		return objc.Nil, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "allocate class "+name)
	}
	metaclass, class := objc.Class(metaPtr), objc.Class(classPtr)
	if superclass == objc.Nil {
		// a root metaclass is its own class and inherits from its class
		metaIsa, metaSuper = metaclass, class
	}

	meta := &ClassInfo{Name: name, Superclass: metaSuper, IsMeta: true}
	info := &ClassInfo{Name: name, Superclass: superclass, Metaclass: metaclass, Dealloc: dealloc}
	if err := env.writeClass(class, info, metaIsa, meta); err != nil {
		_ = mem.Free(classPtr)
		_ = mem.Free(metaPtr)
		return objc.Nil, err
	}

	env.classes[name] = class
	env.logger.Debug("class defined",
		zap.String("name", name),
		zap.Stringer("class", class),
		zap.Stringer("metaclass", metaclass),
		zap.Stringer("superclass", superclass))
	return class, nil
}

// writeClass lays out the headers of a freshly allocated class pair and
// registers both objects.
func (env *Env) writeClass(class objc.Class, info *ClassInfo, metaIsa objc.Class, meta *ClassInfo) error {
	mem := env.rt.Memory()
	metaclass := info.Metaclass
	if err := guestmem.WriteRecord(mem, uint32(metaclass), &classHeader{isa: metaIsa, superclass: meta.Superclass}); err != nil {
		return errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "write metaclass of "+info.Name)
	}
	if err := guestmem.WriteRecord(mem, uint32(class), &classHeader{isa: metaclass, superclass: info.Superclass}); err != nil {
		return errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "write class "+info.Name)
	}
	return env.rt.RegisterStaticObjects(
		objc.StaticObject{Object: metaclass, Host: meta},
		objc.StaticObject{Object: class, Host: info},
	)
}

// RegisterClass attaches host state to a class object that already
// exists in guest memory, such as one from a loaded image. Its metaclass
// is the class's isa and is registered too if it is not yet known. On
// error neither object is registered.
func (env *Env) RegisterClass(class objc.Class, name string, superclass objc.Class, dealloc DeallocFunc) error {
	if existing, ok := env.classes[name]; ok {
		return errors.New(errors.PhaseRegister, errors.KindDuplicateRegistration).
			Handle(uint32(existing)).
			Detail("class %s already defined", name).
			Build()
	}
	var metaSuper objc.Class
	if superclass != objc.Nil {
		super, err := env.classInfo(errors.PhaseRegister, superclass)
		if err != nil {
			return err
		}
		metaSuper = super.Metaclass
	}
	metaclass, err := env.rt.ReadIsa(class)
	if err != nil {
		return err
	}

	objs := []objc.StaticObject{{Object: class, Host: &ClassInfo{
		Name:       name,
		Superclass: superclass,
		Metaclass:  metaclass,
		Dealloc:    dealloc,
	}}}
	if metaclass != objc.Nil && metaclass != class {
		if _, known := env.rt.Lookup(metaclass); !known {
			objs = append(objs, objc.StaticObject{Object: metaclass, Host: &ClassInfo{
				Name:       name,
				Superclass: metaSuper,
				IsMeta:     true,
			}})
		}
	}
	if err := env.rt.RegisterStaticObjects(objs...); err != nil {
		return err
	}

	env.classes[name] = class
	env.logger.Debug("class registered",
		zap.String("name", name),
		zap.Stringer("class", class),
		zap.Stringer("metaclass", metaclass))
	return nil
}

// classHeader is the start of a guest class structure.
type classHeader struct {
	isa        objc.Class
	superclass objc.Class
}

func (h *classHeader) GuestSize() uint32  { return 8 }
func (h *classHeader) GuestAlign() uint32 { return 4 }

func (h *classHeader) MarshalGuest(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.isa))
	binary.LittleEndian.PutUint32(b[4:8], uint32(h.superclass))
}

func (h *classHeader) UnmarshalGuest(b []byte) {
	h.isa = objc.Class(binary.LittleEndian.Uint32(b[0:4]))
	h.superclass = objc.Class(binary.LittleEndian.Uint32(b[4:8]))
}

// RegisterImageClasses registers every class an image defines. Its
// segments must already be mapped. A superclass pointer that does not name
// a known class, e.g. one still waiting for dyld binding, is replaced by
// NSObject. Classes are registered superclass first where the image allows.
func (env *Env) RegisterImageClasses(img *loader.Image) (int, error) {
	pending := img.Classes()
	byAddr := make(map[uint32]string, len(pending))
	for _, c := range pending {
		byAddr[c.Class] = c.Name
	}

	registered := 0
	for len(pending) > 0 {
		var deferred []loader.ClassSymbol
		for _, c := range pending {
			var hdr classHeader
			if err := guestmem.ReadRecord(env.rt.Memory(), c.Class, &hdr); err != nil {
				return registered, errors.Wrap(errors.PhaseLoad, errors.KindOutOfBounds, err, "read class "+c.Name)
			}
			super := hdr.superclass
			if _, inImage := byAddr[uint32(super)]; inImage && !env.isClass(super) {
				deferred = append(deferred, c)
				continue
			}
			if !env.isClass(super) {
				super = env.nsobject
			}
			if err := env.RegisterClass(objc.Class(c.Class), c.Name, super, nil); err != nil {
				return registered, err
			}
			registered++
		}
		if len(deferred) == len(pending) {
			return registered, errors.InvalidImage("class hierarchy has a cycle", nil)
		}
		pending = deferred
	}
	return registered, nil
}

// peekClass is a Borrow that does not report a miss as a violation.
func (env *Env) peekClass(object objc.ID) (*ClassInfo, bool) {
	host, ok := env.rt.HostObjectOf(object)
	if !ok {
		return nil, false
	}
	info, ok := host.(*ClassInfo)
	return info, ok
}

func (env *Env) isClass(class objc.Class) bool {
	info, ok := env.peekClass(class)
	return ok && !info.IsMeta
}

// LookupClass returns the class with the given name.
func (env *Env) LookupClass(name string) (objc.Class, bool) {
	class, ok := env.classes[name]
	return class, ok
}

// ClassName returns the name of a class, or of the class of an instance.
func (env *Env) ClassName(object objc.ID) (string, error) {
	if info, ok := env.peekClass(object); ok {
		return info.Name, nil
	}
	class, err := env.rt.ReadIsa(object)
	if err != nil {
		return "", err
	}
	info, err := objc.Borrow[ClassInfo](env.rt, class)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

// IsKindOfClass reports whether object is an instance of class or of one
// of its subclasses.
func (env *Env) IsKindOfClass(object objc.ID, class objc.Class) bool {
	cls, err := env.rt.ReadIsa(object)
	if err != nil {
		return false
	}
	for cls != objc.Nil {
		if cls == class {
			return true
		}
		info, ok := env.peekClass(cls)
		if !ok {
			return false
		}
		cls = info.Superclass
	}
	return false
}
