package guestmem

import (
	"errors"
	"testing"

	objerrors "github.com/wippyai/objc-runtime/errors"
)

type fakePager struct {
	pages    uint32
	maxPages uint32
}

func (p *fakePager) Size() uint32 { return p.pages * PageSize }

func (p *fakePager) Grow(delta uint32) (uint32, bool) {
	if p.pages+delta > p.maxPages {
		return 0, false
	}
	prev := p.pages
	p.pages += delta
	return prev, true
}

func TestHeap_AllocAboveBase(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	ptr, err := h.Alloc(4, 4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if ptr < DefaultHeapBase {
		t.Errorf("ptr = %#x, below heap base %#x", ptr, DefaultHeapBase)
	}
	if ptr == 0 {
		t.Error("heap handed out the null address")
	}
}

func TestHeap_UniqueLiveBlocks(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		ptr, err := h.Alloc(12, 4)
		if err != nil {
			t.Fatalf("Alloc %d failed: %v", i, err)
		}
		if seen[ptr] {
			t.Fatalf("address %#x handed out twice", ptr)
		}
		if ptr%4 != 0 {
			t.Errorf("address %#x not 4-byte aligned", ptr)
		}
		seen[ptr] = true
	}
	if h.Blocks() != 100 {
		t.Errorf("Blocks() = %d, want 100", h.Blocks())
	}
	if h.InUse() != 1200 {
		t.Errorf("InUse() = %d, want 1200", h.InUse())
	}
}

func TestHeap_Alignment(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	_, _ = h.Alloc(4, 4)
	ptr, err := h.Alloc(8, 64)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if ptr%64 != 0 {
		t.Errorf("ptr = %#x, want 64-byte aligned", ptr)
	}
}

func TestHeap_InvalidRequests(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	if _, err := h.Alloc(0, 4); err == nil {
		t.Error("expected error for zero-sized allocation")
	}
	if _, err := h.Alloc(4, 3); err == nil {
		t.Error("expected error for non power of two alignment")
	}
}

func TestHeap_FreeReuseAndCoalesce(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)
	initial := h.FreeBytes()

	a, _ := h.Alloc(16, 4)
	b, _ := h.Alloc(16, 4)
	c, _ := h.Alloc(16, 4)

	if err := h.Free(b); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	// first fit reuses the hole left by b
	d, _ := h.Alloc(16, 4)
	if d != b {
		t.Errorf("reused address = %#x, want %#x", d, b)
	}

	for _, p := range []uint32{a, c, d} {
		if err := h.Free(p); err != nil {
			t.Fatalf("Free(%#x) failed: %v", p, err)
		}
	}
	if h.FreeBytes() != initial {
		t.Errorf("FreeBytes() = %d, want %d", h.FreeBytes(), initial)
	}
	if len(h.free) != 1 {
		t.Errorf("free spans = %d, want 1 after coalescing", len(h.free))
	}
	if h.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", h.InUse())
	}
}

func TestHeap_DoubleFree(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	ptr, _ := h.Alloc(8, 4)
	if err := h.Free(ptr); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	err := h.Free(ptr)
	if !errors.Is(err, objerrors.ErrDoubleFree) {
		t.Errorf("second Free err = %v, want double_free", err)
	}
	if err := h.Free(0x12345); !errors.Is(err, objerrors.ErrDoubleFree) {
		t.Errorf("Free of unknown pointer err = %v, want double_free", err)
	}
}

func TestHeap_Unallocated(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	a, _ := h.Alloc(8, 4)
	b, _ := h.Alloc(8, 4)
	_ = h.Free(a)

	tests := []struct {
		name string
		ptr  uint32
		size uint32
		want bool
	}{
		{"freed block", a, 4, true},
		{"live block", b, 8, false},
		{"below base", 0x100, 4, false},
		{"straddles freed and live", a + 4, 8, true},
		{"past live block", b + 8, 4, true},
		{"end of memory", PageSize, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Unallocated(tt.ptr, tt.size); got != tt.want {
				t.Errorf("Unallocated(%#x, %d) = %v, want %v", tt.ptr, tt.size, got, tt.want)
			}
		})
	}
}

func TestHeap_Grow(t *testing.T) {
	p := &fakePager{pages: 1, maxPages: 4}
	h := NewHeap(p, 0)

	ptr, err := h.Alloc(2*PageSize, 4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if p.pages < 3 {
		t.Errorf("pages = %d, expected growth to at least 3", p.pages)
	}
	if uint64(ptr)+2*PageSize > uint64(p.Size()) {
		t.Errorf("block %#x extends past memory end %#x", ptr, p.Size())
	}
}

func TestHeap_GrowRefused(t *testing.T) {
	h := NewHeap(&fakePager{pages: 1, maxPages: 1}, 0)

	_, err := h.Alloc(2*PageSize, 4)
	if !errors.Is(err, &objerrors.Error{Kind: objerrors.KindAllocation}) {
		t.Errorf("err = %v, want allocation error", err)
	}
}

func TestHeap_BaseAboveMemory(t *testing.T) {
	p := &fakePager{pages: 1, maxPages: 8}
	h := NewHeap(p, 3*PageSize)

	ptr, err := h.Alloc(4, 4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if ptr < 3*PageSize {
		t.Errorf("ptr = %#x, below base %#x", ptr, 3*PageSize)
	}
}
