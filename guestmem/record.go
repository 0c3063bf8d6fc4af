package guestmem

import (
	objcruntime "github.com/wippyai/objc-runtime"
)

// AllocAndWrite allocates a block sized and aligned for rec and writes rec
// into it.
func AllocAndWrite(mem objcruntime.GuestMemory, rec objcruntime.Record) (uint32, error) {
	ptr, err := mem.Alloc(rec.GuestSize(), rec.GuestAlign())
	if err != nil {
		return 0, err
	}
	if err := WriteRecord(mem, ptr, rec); err != nil {
		_ = mem.Free(ptr)
		return 0, err
	}
	return ptr, nil
}

// ReadRecord decodes rec from guest memory at ptr.
func ReadRecord(mem objcruntime.Memory, ptr uint32, rec objcruntime.Record) error {
	data, err := mem.Read(ptr, rec.GuestSize())
	if err != nil {
		return err
	}
	rec.UnmarshalGuest(data)
	return nil
}

// WriteRecord encodes rec into guest memory at ptr.
func WriteRecord(mem objcruntime.Memory, ptr uint32, rec objcruntime.Record) error {
	buf := make([]byte, rec.GuestSize())
	rec.MarshalGuest(buf)
	return mem.Write(ptr, buf)
}
