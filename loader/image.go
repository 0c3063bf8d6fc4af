package loader

import (
	"strings"

	"github.com/blacktop/go-macho/types"
)

// Segment is one LC_SEGMENT of an image.
type Segment struct {
	Name     string
	Addr     uint32
	Size     uint32
	Offset   uint32
	FileSize uint32
	Prot     uint32
	Sections []Section

	data []byte
}

// End returns the first address past the segment.
func (s *Segment) End() uint64 {
	return uint64(s.Addr) + uint64(s.Size)
}

// Section is one section of a segment.
type Section struct {
	Name string
	Addr uint32
	Size uint32
}

// Symbol is one entry of the symbol table.
type Symbol struct {
	Name string
	Addr uint32
	Type types.NType
	Sect uint8
}

// Defined reports whether the symbol has an address in this image.
func (s Symbol) Defined() bool {
	return s.Type&types.N_STAB == 0 && s.Type&types.N_TYPE == types.N_SECT && s.Sect != 0
}

// Image is a parsed executable.
type Image struct {
	CPUSubtype uint32
	Segments   []Segment
	Symbols    []Symbol
	Dylibs     []string
}

// End returns the page-aligned first address past every segment: the
// lowest usable heap base for this image.
func (img *Image) End() uint32 {
	var end uint64
	for i := range img.Segments {
		if e := img.Segments[i].End(); e > end {
			end = e
		}
	}
	const page = 0x1000
	end = (end + page - 1) &^ (page - 1)
	if end > 0xffffffff {
		return 0xfffff000
	}
	return uint32(end)
}

// Segment returns the segment with the given name.
func (img *Image) Segment(name string) (*Segment, bool) {
	for i := range img.Segments {
		if img.Segments[i].Name == name {
			return &img.Segments[i], true
		}
	}
	return nil, false
}

// Lookup returns the defined symbol with the given name.
func (img *Image) Lookup(name string) (Symbol, bool) {
	for _, s := range img.Symbols {
		if s.Name == name && s.Defined() {
			return s, true
		}
	}
	return Symbol{}, false
}

const (
	classPrefix     = "_OBJC_CLASS_$_"
	metaclassPrefix = "_OBJC_METACLASS_$_"
)

// ClassSymbol names a class defined by the image and the guest addresses
// of its class and metaclass objects. Metaclass is 0 if the image has no
// matching metaclass symbol.
type ClassSymbol struct {
	Name      string
	Class     uint32
	Metaclass uint32
}

// Classes returns the classes the image defines, in symbol table order.
// Classes that are only referenced, e.g. from UIKit, are not included.
func (img *Image) Classes() []ClassSymbol {
	metas := make(map[string]uint32)
	for _, s := range img.Symbols {
		if name, ok := strings.CutPrefix(s.Name, metaclassPrefix); ok && s.Defined() {
			metas[name] = s.Addr
		}
	}
	var out []ClassSymbol
	for _, s := range img.Symbols {
		name, ok := strings.CutPrefix(s.Name, classPrefix)
		if !ok || !s.Defined() {
			continue
		}
		out = append(out, ClassSymbol{Name: name, Class: s.Addr, Metaclass: metas[name]})
	}
	return out
}
