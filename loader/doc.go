// Package loader reads Mach-O executables, the image format of iPhone OS.
//
// Only thin 32-bit little-endian ARM images are accepted. Fat binaries,
// static archives and images that are still encrypted are rejected with
// errors.KindInvalidImage or errors.KindUnsupported.
//
//	img, err := loader.Open("MyApp.app/MyApp")
//	if err != nil {
//		return err
//	}
//	space, err := guestmem.New(ctx, &guestmem.Config{HeapBase: img.End()})
//	err = img.MapInto(space)
//
// Segments are mapped at their preferred addresses; there is no
// relocation. Class objects named by the _OBJC_CLASS_$_ symbols can then be
// handed to foundation.Env.RegisterImageClasses.
package loader
