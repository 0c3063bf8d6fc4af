package guestmem

import (
	"bytes"
	"testing"
)

func TestMemoryModule_Unbounded(t *testing.T) {
	want := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
		0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
		0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
		0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
		0x02, 0x00, // kind: memory, index 0
	}
	got := memoryModule(1, 0)
	if !bytes.Equal(got, want) {
		t.Errorf("memoryModule(1, 0) = % x, want % x", got, want)
	}
}

func TestMemoryModule_Bounded(t *testing.T) {
	got := memoryModule(16, 4096)
	// section 5: count, flag 1, min 16, max 4096 (0x80 0x20)
	want := []byte{0x05, 0x05, 0x01, 0x01, 0x10, 0x80, 0x20}
	if !bytes.Equal(got[8:15], want) {
		t.Errorf("memory section = % x, want % x", got[8:15], want)
	}
}

func TestAppendLEB128u(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{65535, []byte{0xff, 0xff, 0x03}},
	}
	for _, tt := range tests {
		got := appendLEB128u(nil, tt.v)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("appendLEB128u(%d) = % x, want % x", tt.v, got, tt.want)
		}
	}
}
