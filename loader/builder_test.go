package loader

import (
	"encoding/binary"

	"github.com/blacktop/go-macho/types"
)

// Mach-O images for tests, laid out as header, load commands, segment
// data, nlist entries and string table.

type testSegment struct {
	name     string
	addr     uint32
	size     uint32
	data     []byte
	sections []string
}

type testSymbol struct {
	name  string
	typ   uint8
	sect  uint8
	value uint32
}

type testImage struct {
	magic     types.Magic
	cpu       types.CPU
	bigEndian bool
	segments  []testSegment
	symbols   []testSymbol
	dylibs    []string
	cryptid   *uint32
}

const (
	headerSize32  = 28
	segmentCmd32  = 56
	sectionSize32 = 68
	symtabCmdSize = 24
	nlistSize32   = 12
)

func armImage() testImage {
	return testImage{magic: types.Magic32, cpu: types.CPUArm}
}

func (ti testImage) build() []byte {
	var bo binary.ByteOrder = binary.LittleEndian
	if ti.bigEndian {
		bo = binary.BigEndian
	}
	headerSize := headerSize32
	if ti.magic == types.Magic64 {
		headerSize += 4
	}

	var cmds [][]byte

	cmdsSize := 0
	for _, s := range ti.segments {
		cmdsSize += segmentCmd32 + sectionSize32*len(s.sections)
	}
	if len(ti.symbols) > 0 {
		cmdsSize += symtabCmdSize
	}
	for _, d := range ti.dylibs {
		cmdsSize += dylibCmdSize(d)
	}
	if ti.cryptid != nil {
		cmdsSize += 20
	}

	// segment data follows the load commands
	var body []byte
	off := uint32(headerSize + cmdsSize)
	for _, s := range ti.segments {
		c := make([]byte, segmentCmd32+sectionSize32*len(s.sections))
		bo.PutUint32(c[0:], uint32(types.LC_SEGMENT))
		bo.PutUint32(c[4:], uint32(len(c)))
		copy(c[8:24], s.name)
		bo.PutUint32(c[24:], s.addr)
		bo.PutUint32(c[28:], s.size)
		fileOff := uint32(0)
		if len(s.data) > 0 {
			fileOff = off + uint32(len(body))
		}
		bo.PutUint32(c[32:], fileOff)
		bo.PutUint32(c[36:], uint32(len(s.data)))
		bo.PutUint32(c[40:], 7)
		bo.PutUint32(c[44:], 5)
		bo.PutUint32(c[48:], uint32(len(s.sections)))
		for i, name := range s.sections {
			sc := c[segmentCmd32+i*sectionSize32:]
			copy(sc[0:16], name)
			copy(sc[16:32], s.name)
			bo.PutUint32(sc[32:], s.addr)
		}
		cmds = append(cmds, c)
		body = append(body, s.data...)
	}

	if len(ti.symbols) > 0 {
		strtab := []byte{0}
		syms := make([]byte, 0, nlistSize32*len(ti.symbols))
		for _, s := range ti.symbols {
			n := make([]byte, nlistSize32)
			bo.PutUint32(n[0:], uint32(len(strtab)))
			n[4] = s.typ
			n[5] = s.sect
			bo.PutUint32(n[8:], s.value)
			syms = append(syms, n...)
			strtab = append(strtab, s.name...)
			strtab = append(strtab, 0)
		}
		symoff := off + uint32(len(body))
		body = append(body, syms...)
		stroff := off + uint32(len(body))
		body = append(body, strtab...)

		c := make([]byte, symtabCmdSize)
		bo.PutUint32(c[0:], uint32(types.LC_SYMTAB))
		bo.PutUint32(c[4:], symtabCmdSize)
		bo.PutUint32(c[8:], symoff)
		bo.PutUint32(c[12:], uint32(len(ti.symbols)))
		bo.PutUint32(c[16:], stroff)
		bo.PutUint32(c[20:], uint32(len(strtab)))
		cmds = append(cmds, c)
	}

	for _, d := range ti.dylibs {
		c := make([]byte, dylibCmdSize(d))
		bo.PutUint32(c[0:], uint32(types.LC_LOAD_DYLIB))
		bo.PutUint32(c[4:], uint32(len(c)))
		bo.PutUint32(c[8:], 24)
		copy(c[24:], d)
		cmds = append(cmds, c)
	}

	if ti.cryptid != nil {
		c := make([]byte, 20)
		bo.PutUint32(c[0:], uint32(types.LC_ENCRYPTION_INFO))
		bo.PutUint32(c[4:], 20)
		bo.PutUint32(c[16:], *ti.cryptid)
		cmds = append(cmds, c)
	}

	out := make([]byte, headerSize)
	bo.PutUint32(out[0:], uint32(ti.magic))
	bo.PutUint32(out[4:], uint32(ti.cpu))
	bo.PutUint32(out[8:], 9)
	bo.PutUint32(out[12:], uint32(types.MH_EXECUTE))
	bo.PutUint32(out[16:], uint32(len(cmds)))
	bo.PutUint32(out[20:], uint32(cmdsSize))
	for _, c := range cmds {
		out = append(out, c...)
	}
	return append(out, body...)
}

func dylibCmdSize(name string) int {
	return (24 + len(name) + 1 + 3) &^ 3
}
