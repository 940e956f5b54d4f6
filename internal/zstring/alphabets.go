package zstring

// Alphabet identifies one of the three 26-entry ZSCII tables a ZCHAR
// (6..31) indexes into.
type Alphabet int

const (
	A0 Alphabet = iota // lowercase
	A1                 // uppercase
	A2                 // punctuation and digits
)

// Tables holds the three alphabet tables in effect for a story. v3 and v4
// never customise these (that's a v5+ feature), so Default is always the
// table in effect for this interpreter's supported versions; it exists so
// callers have one obvious thing to pass around rather than three bare
// slices.
type Tables struct {
	A0, A1, A2 [26]byte
}

// Default is the standard Z-Machine alphabet table (spec §3).
var Default = Tables{
	A0: [26]byte{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'},
	A1: [26]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
		'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'},
	// Position 0 (ZCHAR 6) is reserved for the ZSCII escape, position 1
	// (ZCHAR 7) is newline (spec §3); the rest is punctuation and digits.
	A2: [26]byte{0, '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'},
}

// char looks up ZCHAR z (6..31) in alphabet a.
func (t *Tables) char(a Alphabet, z byte) byte {
	idx := z - 6
	switch a {
	case A0:
		return t.A0[idx]
	case A1:
		return t.A1[idx]
	default:
		return t.A2[idx]
	}
}

// encodeIndex returns the alphabet and ZCHAR index (6..31) for a lowercase
// ZSCII byte, used by the dictionary-word encoder. The A2 table's reserved
// slots (escape, newline) are never produced by this lookup.
func encodeIndex(b byte) (Alphabet, byte, bool) {
	for i, c := range Default.A0 {
		if c == b {
			return A0, byte(i) + 6, true
		}
	}
	for i, c := range Default.A1 {
		if c == b {
			return A1, byte(i) + 6, true
		}
	}
	for i, c := range Default.A2 {
		if i < 2 {
			continue // escape / newline slots are not directly encodable
		}
		if c == b {
			return A2, byte(i) + 6, true
		}
	}
	return 0, 0, false
}
