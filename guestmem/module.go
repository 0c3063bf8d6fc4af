package guestmem

// memoryModule encodes a WebAssembly module whose only content is one
// linear memory exported as "memory". maxPages of 0 leaves it unbounded
// (the runtime limit still applies).
func memoryModule(minPages, maxPages uint32) []byte {
	limits := []byte{0x00}
	if maxPages > 0 {
		limits[0] = 0x01
	}
	limits = appendLEB128u(limits, minPages)
	if maxPages > 0 {
		limits = appendLEB128u(limits, maxPages)
	}

	memSection := append([]byte{0x01}, limits...) // one memory
	exportSection := []byte{
		0x01,                               // one export
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', // name
		0x02, 0x00,                         // kind: memory, index 0
	}

	out := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	out = appendSection(out, 0x05, memSection)
	out = appendSection(out, 0x07, exportSection)
	return out
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = appendLEB128u(out, uint32(len(body)))
	return append(out, body...)
}

func appendLEB128u(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}
