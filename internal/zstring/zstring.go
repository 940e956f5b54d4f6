// Package zstring implements the Z-Machine's text system: decoding Z-strings
// (packed streams of 5-bit ZCHARs) to ZSCII/UTF-8, encoding words for
// dictionary lookup, abbreviation expansion and ZSCII escapes (spec.md §3,
// §4.5).
package zstring

import "github.com/skeptomai/gruesome/internal/zcore"

// shiftState tracks the alphabet selected for the *next* ZCHAR only; v3/v4
// shifts are temporary (spec §3, §9 — "no way to permanently latch
// alphabets in v3 via text content").
type shiftState struct {
	next Alphabet
}

// Decode reads a Z-string starting at addr and returns its ZSCII text
// (decoded to a Go string, byte-for-byte since ZSCII's printable range is a
// superset of ASCII) and the number of bytes consumed, including the
// terminating word.
//
// abbrevBase is the abbreviation table's base address (0 to disable
// abbreviation expansion, used when decoding an abbreviation's own text,
// since abbreviations do not recurse per spec §3).
func Decode(mem *zcore.Memory, addr uint32, abbrevBase uint16) (string, uint32) {
	out := make([]byte, 0, 32)
	var bytesRead uint32
	st := shiftState{next: A0}

	ptr := addr
	var lastWord uint16 // the most recent word actually read, for the terminator check below
	for {
		word := mem.ReadWord(ptr)
		lastWord = word
		ptr += 2
		bytesRead += 2

		zchars := [3]byte{
			byte((word >> 10) & 0x1f),
			byte((word >> 5) & 0x1f),
			byte(word & 0x1f),
		}

		for i := 0; i < 3; i++ {
			zc := zchars[i]
			alphabet := st.next
			st.next = A0 // shifts apply to exactly one following zchar

			switch {
			case zc == 0:
				out = append(out, ' ')

			case zc >= 1 && zc <= 3:
				// Abbreviation lead-in: next zchar indexes the table.
				i++
				var x byte
				if i < 3 {
					x = zchars[i]
				} else {
					word2 := mem.ReadWord(ptr)
					lastWord = word2
					ptr += 2
					bytesRead += 2
					x = byte((word2 >> 10) & 0x1f)
					zchars = [3]byte{x, byte((word2 >> 5) & 0x1f), byte(word2 & 0x1f)}
					i = 0
				}
				if abbrevBase != 0 {
					out = append(out, expandAbbreviation(mem, zc, x, abbrevBase)...)
				}

			case zc == 4:
				st.next = A1

			case zc == 5:
				st.next = A2

			case alphabet == A2 && zc == 6:
				// ZSCII escape: next two zchars form a 10-bit code.
				hi, lo := nextTwoZchars(mem, &zchars, &i, &ptr, &bytesRead, &lastWord)
				out = append(out, byte(hi<<5|lo))

			default:
				out = append(out, Default.char(alphabet, zc))
			}
		}

		if lastWord&0x8000 != 0 {
			break
		}
	}

	return string(out), bytesRead
}

// nextTwoZchars pulls the next two ZCHARs out of the current triple,
// reading another 16-bit word if the triple is exhausted, and returns them
// as (hi, lo). lastWord is updated whenever a new word is read so the
// caller's terminator check sees it.
func nextTwoZchars(mem *zcore.Memory, zchars *[3]byte, i *int, ptr *uint32, bytesRead *uint32, lastWord *uint16) (byte, byte) {
	get := func() byte {
		*i++
		if *i < 3 {
			return zchars[*i]
		}
		w := mem.ReadWord(*ptr)
		*lastWord = w
		*ptr += 2
		*bytesRead += 2
		zchars[0] = byte((w >> 10) & 0x1f)
		zchars[1] = byte((w >> 5) & 0x1f)
		zchars[2] = byte(w & 0x1f)
		*i = 0
		return zchars[0]
	}
	hi := get()
	lo := get()
	return hi, lo
}

func expandAbbreviation(mem *zcore.Memory, lead, index byte, abbrevBase uint16) string {
	abbrIx := 32*(uint16(lead)-1) + uint16(index)
	entryAddr := uint32(abbrevBase) + 2*uint32(abbrIx)
	wordAddr := uint32(mem.ReadWord(entryAddr)) * 2
	text, _ := Decode(mem, wordAddr, 0) // abbreviations do not recurse
	return text
}

// Encode produces the fixed-length encoded form of word used for
// dictionary lookup: 4 bytes in v3, 6 in v4, padded with ZCHAR 5 (spec
// §4.5). Input is lowercased by the caller (tokenisation lowercases before
// encoding); any byte with no alphabet entry falls back to a ZSCII escape.
func Encode(word []byte, version uint8) []byte {
	maxChars := 6
	if version <= 3 {
		maxChars = 6 // 3 zchars per word, 2 words = 6 zchars -> 4 bytes
	} else {
		maxChars = 9 // 3 words = 9 zchars -> 6 bytes
	}

	zchars := make([]byte, 0, maxChars)
	for _, b := range word {
		if len(zchars) >= maxChars {
			break
		}
		if alphabet, idx, ok := encodeIndex(b); ok {
			if alphabet != A0 {
				shift := byte(4)
				if alphabet == A2 {
					shift = 5
				}
				zchars = append(zchars, shift)
			}
			zchars = append(zchars, idx)
		} else {
			zchars = append(zchars, 5, 6, (b>>5)&0x1f, b&0x1f)
		}
	}
	for len(zchars) < maxChars {
		zchars = append(zchars, 5)
	}
	zchars = zchars[:maxChars]

	out := make([]byte, 0, maxChars/3*2)
	for i := 0; i < maxChars; i += 3 {
		word := uint16(zchars[i])<<10 | uint16(zchars[i+1])<<5 | uint16(zchars[i+2])
		if i+3 >= maxChars {
			word |= 0x8000
		}
		out = append(out, byte(word>>8), byte(word))
	}
	return out
}

// Lowercase applies ZSCII lowercasing ('A'..'Z' -> 'a'..'z') ahead of
// dictionary encoding (spec §4.5).
func Lowercase(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
