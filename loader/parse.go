package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
	"go.uber.org/zap"

	"github.com/wippyai/objc-runtime/errors"
)

var archiveMagic = []byte("!<arch>\n")

// Open reads and parses the executable at path.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidImage("could not read executable file", err)
	}
	return Parse(data)
}

// Parse parses a Mach-O executable from memory.
func Parse(data []byte) (*Image, error) {
	if err := checkHeader(data); err != nil {
		return nil, err
	}

	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.InvalidImage("could not parse Mach-O file", err)
	}
	defer f.Close()

	if f.CPU != types.CPUArm {
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("executable is for %v, not an ARM CPU", f.CPU))
	}

	log := Logger()
	img := &Image{CPUSubtype: uint32(f.SubCPU)}

	for _, l := range f.Loads {
		switch cmd := l.(type) {
		case *macho.Segment:
			seg, err := segmentOf(f, cmd)
			if err != nil {
				return nil, err
			}
			log.Debug("segment",
				zap.String("name", seg.Name),
				zap.String("range", fmt.Sprintf("%#x-%#x", seg.Addr, seg.End())))
			for _, sect := range seg.Sections {
				log.Debug("section", zap.String("segment", seg.Name), zap.String("name", sect.Name))
			}
			img.Segments = append(img.Segments, seg)
		case *macho.EncryptionInfo:
			if cmd.CryptID != 0 {
				return nil, errors.Unsupported(errors.PhaseLoad, "executable is encrypted")
			}
		}
	}

	for _, name := range f.ImportedLibraries() {
		log.Debug("dynamic library", zap.String("name", name))
		img.Dylibs = append(img.Dylibs, name)
	}

	if f.Symtab != nil {
		img.Symbols = make([]Symbol, 0, len(f.Symtab.Syms))
		for _, s := range f.Symtab.Syms {
			img.Symbols = append(img.Symbols, Symbol{
				Name: s.Name,
				Addr: uint32(s.Value),
				Type: s.Type,
				Sect: s.Sect,
			})
		}
		log.Debug("symbol table", zap.Int("symbols", len(img.Symbols)))
	}

	return img, nil
}

// checkHeader rejects file kinds the loader does not handle before the
// full parse: archives, universal binaries, big-endian and 64-bit images.
func checkHeader(data []byte) error {
	if bytes.HasPrefix(data, archiveMagic) {
		return errors.InvalidImage("unexpected Mach-O file kind: not an executable", nil)
	}
	if len(data) < 4 {
		return errors.InvalidImage("file too short for a Mach-O header", nil)
	}
	le := types.Magic(binary.LittleEndian.Uint32(data))
	be := types.Magic(binary.BigEndian.Uint32(data))
	switch {
	case be == types.MagicFat:
		return errors.Unsupported(errors.PhaseLoad, "fat binaries")
	case be == types.Magic32 || be == types.Magic64:
		return errors.Unsupported(errors.PhaseLoad, "executable is not little-endian")
	case le == types.Magic64:
		return errors.Unsupported(errors.PhaseLoad, "executable is not 32-bit")
	}
	return nil
}

func segmentOf(f *macho.File, s *macho.Segment) (Segment, error) {
	if s.Addr+s.Memsz > 1<<32 {
		return Segment{}, errors.InvalidImage(fmt.Sprintf("segment %s does not fit in 32 bits", s.Name), nil)
	}
	if s.Filesz > s.Memsz {
		return Segment{}, errors.InvalidImage(fmt.Sprintf("segment %s has more file data than memory", s.Name), nil)
	}
	seg := Segment{
		Name:     s.Name,
		Addr:     uint32(s.Addr),
		Size:     uint32(s.Memsz),
		Offset:   uint32(s.Offset),
		FileSize: uint32(s.Filesz),
		Prot:     uint32(s.Prot),
	}
	if s.Filesz > 0 {
		data, err := s.Data()
		if err != nil {
			return Segment{}, errors.InvalidImage(fmt.Sprintf("could not read segment %s", s.Name), err)
		}
		seg.data = data
	}
	for _, sect := range f.Sections {
		if sect.Seg != s.Name {
			continue
		}
		seg.Sections = append(seg.Sections, Section{
			Name: sect.Name,
			Addr: uint32(sect.Addr),
			Size: uint32(sect.Size),
		})
	}
	return seg, nil
}
