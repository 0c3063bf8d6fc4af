package loader

import (
	"fmt"

	"go.uber.org/zap"

	objcruntime "github.com/wippyai/objc-runtime"
	"github.com/wippyai/objc-runtime/errors"
)

// Mapper is a guest memory that can host fixed mappings below its heap.
// guestmem.Space implements it.
type Mapper interface {
	objcruntime.Memory
	EnsureSize(size uint64) error
	HeapBase() uint32
}

// MapInto copies every segment to its preferred address. Bytes past a
// segment's file data are zero-filled. Segments without memory, such as
// __PAGEZERO, are skipped. Every segment must end at or below the heap base.
func (img *Image) MapInto(mem Mapper) error {
	log := Logger()
	for i := range img.Segments {
		seg := &img.Segments[i]
		if seg.Size == 0 || (seg.Addr == 0 && seg.FileSize == 0) {
			continue
		}
		if seg.End() > uint64(mem.HeapBase()) {
			return errors.InvalidImage(fmt.Sprintf("segment %s ends at %#x, above heap base %#x",
				seg.Name, seg.End(), mem.HeapBase()), nil)
		}
		if err := mem.EnsureSize(seg.End()); err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindAllocation, err, "map segment "+seg.Name)
		}
		if len(seg.data) > 0 {
			if err := mem.Write(seg.Addr, seg.data); err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindOutOfBounds, err, "map segment "+seg.Name)
			}
		}
		if rest := seg.Size - uint32(len(seg.data)); rest > 0 {
			if err := mem.Write(seg.Addr+uint32(len(seg.data)), make([]byte, rest)); err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindOutOfBounds, err, "map segment "+seg.Name)
			}
		}
		log.Debug("segment mapped",
			zap.String("name", seg.Name),
			zap.Uint32("addr", seg.Addr),
			zap.Uint32("size", seg.Size))
	}
	return nil
}
