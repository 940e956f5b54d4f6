package zstring

import (
	"bytes"
	"sort"

	"github.com/skeptomai/gruesome/internal/zcore"
)

// Dictionary is a parsed Z-Machine dictionary table: separator characters,
// fixed entry layout, and the sorted entries themselves (spec §3, §4.5).
type Dictionary struct {
	BaseAddr    uint32
	Separators  []byte
	EntryLength uint8
	entries     []dictEntry
}

type dictEntry struct {
	addr    uint32
	encoded []byte
}

// Parse reads a dictionary table starting at baseAddr.
func Parse(mem *zcore.Memory, baseAddr uint32, version uint8) *Dictionary {
	ptr := baseAddr
	numSeparators := mem.ReadByte(ptr)
	ptr++

	seps := make([]byte, numSeparators)
	for i := range seps {
		seps[i] = mem.ReadByte(ptr)
		ptr++
	}

	entryLength := mem.ReadByte(ptr)
	ptr++
	count := int16(mem.ReadWord(ptr))
	ptr += 2

	encodedLen := uint32(4)
	if version >= 4 {
		encodedLen = 6
	}

	d := &Dictionary{
		BaseAddr:    baseAddr,
		Separators:  seps,
		EntryLength: entryLength,
		entries:     make([]dictEntry, 0, count),
	}

	for i := int16(0); i < count; i++ {
		entryAddr := ptr + uint32(i)*uint32(entryLength)
		d.entries = append(d.entries, dictEntry{
			addr:    entryAddr,
			encoded: mem.Slice(entryAddr, entryAddr+encodedLen),
		})
	}

	return d
}

// IsSeparator reports whether b is one of the dictionary's separator
// characters (each of which tokenises as its own one-character token, spec
// §4.5).
func (d *Dictionary) IsSeparator(b byte) bool {
	for _, s := range d.Separators {
		if s == b {
			return true
		}
	}
	return false
}

// Lookup binary-searches the (lexicographically sorted by encoded bytes)
// entry table for an encoded word and returns its byte address, or 0 if
// absent (spec §3 "entries are sorted by the encoded bytes, so lookup is
// binary search").
func (d *Dictionary) Lookup(encoded []byte) uint16 {
	i := sort.Search(len(d.entries), func(i int) bool {
		return bytes.Compare(d.entries[i].encoded, encoded) >= 0
	})
	if i < len(d.entries) && bytes.Equal(d.entries[i].encoded, encoded) {
		return uint16(d.entries[i].addr)
	}
	return 0
}
