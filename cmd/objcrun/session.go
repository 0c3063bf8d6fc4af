package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/objc-runtime/foundation"
	"github.com/wippyai/objc-runtime/guestmem"
	"github.com/wippyai/objc-runtime/loader"
	"github.com/wippyai/objc-runtime/objc"
)

// session is one emulated process: memory, object runtime and NSObject
// layer, plus the image it was started from, if any.
type session struct {
	space *guestmem.Space
	rt    *objc.Runtime
	env   *foundation.Env
	image *loader.Image
	log   *zap.Logger
}

func newSession(ctx context.Context, cfg *fileConfig, imagePath string, log *zap.Logger) (*session, error) {
	var img *loader.Image
	memCfg := &guestmem.Config{
		Logger:       log.Named("mem"),
		InitialPages: cfg.Memory.InitialPages,
		MaxPages:     cfg.Memory.MaxPages,
	}
	if imagePath != "" {
		var err error
		if img, err = loader.Open(imagePath); err != nil {
			return nil, err
		}
		log.Info("image loaded",
			zap.String("path", imagePath),
			zap.Int("segments", len(img.Segments)),
			zap.Int("symbols", len(img.Symbols)),
			zap.Strings("dylibs", img.Dylibs))
		if end := img.End(); end > guestmem.DefaultHeapBase {
			memCfg.HeapBase = end
		}
	}

	space, err := guestmem.New(ctx, memCfg)
	if err != nil {
		return nil, err
	}
	s := &session{
		space: space,
		image: img,
		log:   log,
		rt: objc.New(space, &objc.Config{
			Logger:               log.Named("objc"),
			PanicOnViolation:     cfg.Runtime.PanicOnViolation,
			DisableFreedTracking: cfg.Runtime.DisableFreedTracking,
		}),
	}
	if s.env, err = foundation.New(s.rt, &foundation.Config{Logger: log.Named("foundation")}); err != nil {
		s.close(ctx)
		return nil, err
	}

	if img != nil {
		if err := img.MapInto(space); err != nil {
			s.close(ctx)
			return nil, err
		}
		n, err := s.env.RegisterImageClasses(img)
		if err != nil {
			s.close(ctx)
			return nil, err
		}
		log.Info("image classes registered", zap.Int("classes", n))
	}
	return s, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.space.Close(ctx); err != nil {
		s.log.Warn("close guest memory", zap.Error(err))
	}
}

// demoOwner is the host state of a DemoOwner: the DemoItem it releases
// from its teardown hook.
type demoOwner struct {
	item objc.ID
}

// runDemo populates the runtime with a few classes and objects in
// different states.
func (s *session) runDemo() error {
	env := s.env
	item, err := env.DefineClass("DemoItem", env.NSObject(), nil)
	if err != nil {
		return err
	}
	owner, err := env.DefineClass("DemoOwner", env.NSObject(), func(env *foundation.Env, self objc.ID) error {
		o, err := objc.Borrow[demoOwner](env.Runtime(), self)
		if err != nil {
			return err
		}
		return env.Release(o.item)
	})
	if err != nil {
		return err
	}

	var items []objc.ID
	for i := 0; i < 3; i++ {
		obj, err := env.Alloc(item)
		if err != nil {
			return err
		}
		items = append(items, obj)
	}
	if _, err := env.Retain(items[0]); err != nil {
		return err
	}

	o, err := env.AllocWithHost(owner, &demoOwner{item: items[1]})
	if err != nil {
		return err
	}
	if _, err := env.Retain(items[1]); err != nil {
		return err
	}
	// the owner's teardown drops its reference to items[1]
	env.PushPool()
	if _, err := env.Autorelease(o); err != nil {
		return err
	}
	if err := env.PopPool(); err != nil {
		return err
	}

	s.log.Info("demo objects created", zap.Int("objects", s.rt.Len()))
	return nil
}

// row is one object with its class name resolved.
type row struct {
	objc.ObjectInfo
	Class string
}

func (s *session) rows() []row {
	infos := s.rt.Snapshot()
	out := make([]row, 0, len(infos))
	for _, info := range infos {
		name, err := s.env.ClassName(info.Object)
		if err != nil {
			name = "?"
		}
		out = append(out, row{ObjectInfo: info, Class: name})
	}
	return out
}

func (r row) String() string {
	kind := "instance"
	if r.HostType == "*foundation.ClassInfo" {
		kind = "class"
	}
	refcount := "-"
	if r.Lifetime == objc.LifetimeCounted {
		refcount = fmt.Sprint(r.Refcount)
	}
	return fmt.Sprintf("%s  %-8s %-20s isa=%s rc=%-3s %s", r.Object, kind, r.Class, r.Isa, refcount, r.Lifetime)
}
