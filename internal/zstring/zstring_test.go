package zstring

import (
	"testing"

	"github.com/skeptomai/gruesome/internal/zcore"
)

func storyWithBytes(at uint32, data ...byte) *zcore.Memory {
	buf := make([]byte, 256)
	buf[0x00] = 3
	buf[0x0e], buf[0x0f] = 0x00, 0xf0
	buf[0x04], buf[0x05] = 0x00, 0xf0
	buf[0x06], buf[0x07] = 0x00, 0x40
	buf[0x08], buf[0x09] = 0x00, 0x20
	buf[0x0a], buf[0x0b] = 0x00, 0x10
	buf[0x0c], buf[0x0d] = 0x00, 0x08
	copy(buf[at:], data)
	mem, err := zcore.Load(buf)
	if err != nil {
		panic(err)
	}
	return mem
}

func TestDecodeSimpleWord(t *testing.T) {
	// "hi" in A0: h=13, i=14, pad=5; word = 10000 01101 01110 -> with
	// termination bit set.
	hi := uint16(0x8000) | uint16(13)<<10 | uint16(14)<<5 | 5
	mem := storyWithBytes(0x40, byte(hi>>8), byte(hi))

	text, n := Decode(mem, 0x40, 0)
	if text != "hi" {
		t.Fatalf("Decode = %q, want %q", text, "hi")
	}
	if n != 2 {
		t.Fatalf("bytes consumed = %d, want 2", n)
	}
}

func TestDecodeShiftToA1Uppercase(t *testing.T) {
	// shift-4 (A1) then 'H' (index 13 in A1), then pad/pad.
	word := uint16(0x8000) | uint16(4)<<10 | uint16(13)<<5 | 5
	mem := storyWithBytes(0x40, byte(word>>8), byte(word))

	text, _ := Decode(mem, 0x40, 0)
	if text != "H" {
		t.Fatalf("Decode = %q, want %q", text, "H")
	}
}

func TestEncodeDecodeRoundTripASCII(t *testing.T) {
	encoded := Encode([]byte("hello"), 3)
	if len(encoded)%2 != 0 {
		t.Fatalf("encoded length %d not word-aligned", len(encoded))
	}

	mem := storyWithBytes(0x40, encoded...)
	text, _ := Decode(mem, 0x40, 0)
	if text != "hello" {
		t.Fatalf("round trip = %q, want %q", text, "hello")
	}
}

func TestDecodeAbbreviationCrossingWordBoundary(t *testing.T) {
	// Lead-in zchar lands at triple-index 2, so its index zchar lives in
	// the *next* word; that next word is also the string's terminator.
	// This exercises Decode's cross-word read path end to end: if the
	// outer loop's terminator check doesn't see the second word, it reads
	// on past the string.
	buf := make([]byte, 256)
	buf[0x00] = 3
	buf[0x0e], buf[0x0f] = 0x00, 0xf0
	buf[0x04], buf[0x05] = 0x00, 0xf0
	buf[0x06], buf[0x07] = 0x00, 0x40
	buf[0x08], buf[0x09] = 0x00, 0x20
	buf[0x0a], buf[0x0b] = 0x00, 0x10
	buf[0x0c], buf[0x0d] = 0x00, 0x08

	abbrevBase := uint32(0x50)

	// Abbreviation table entry 5 (lead=1, index=5) points at "hi" text.
	hiWord := uint16(0x8000) | uint16(13)<<10 | uint16(14)<<5 | 5
	buf[0x60], buf[0x61] = byte(hiWord>>8), byte(hiWord)
	entryAddr := abbrevBase + 2*5
	buf[entryAddr], buf[entryAddr+1] = 0x00, 0x30 // word address 0x30 -> byte addr 0x60

	// Main string at 0x80: word1 = 'a','a', abbrev lead-in 1 (not
	// terminated); word2 = abbrev index 5, pad, pad (terminated).
	word1 := uint16(6)<<10 | uint16(6)<<5 | 1
	word2 := uint16(0x8000) | uint16(5)<<10 | uint16(5)<<5 | 5
	buf[0x80], buf[0x81] = byte(word1>>8), byte(word1)
	buf[0x82], buf[0x83] = byte(word2>>8), byte(word2)

	mem, err := zcore.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	text, n := Decode(mem, 0x80, uint16(abbrevBase))
	if text != "aahi" {
		t.Fatalf("Decode = %q, want %q", text, "aahi")
	}
	if n != 4 {
		t.Fatalf("bytes consumed = %d, want 4 (stopped at the word actually terminated)", n)
	}
}

func TestDecodeA2DigitsAndPunctuation(t *testing.T) {
	// shift-5 (A2) then a single A2 zchar, then pad; one word, terminated.
	build := func(zc byte) *zcore.Memory {
		word := uint16(0x8000) | uint16(5)<<10 | uint16(zc)<<5 | 5
		return storyWithBytes(0x40, byte(word>>8), byte(word))
	}

	// ZCHAR 8 is A2 index 2, which must be '0' per the standard table.
	if text, _ := Decode(build(8), 0x40, 0); text != "0" {
		t.Fatalf("ZCHAR 8 decoded to %q, want \"0\"", text)
	}
	// ZCHAR 31 is A2 index 25, the table's last slot, which must be ')'.
	if text, _ := Decode(build(31), 0x40, 0); text != ")" {
		t.Fatalf("ZCHAR 31 decoded to %q, want \")\"", text)
	}
}

func TestDictionaryLookupBinarySearch(t *testing.T) {
	// header: 0 separators, entry length 6 (4-byte encoding + 2 data
	// bytes), 2 entries, sorted ascending by encoded bytes.
	header := []byte{0x00, 0x06, 0x00, 0x02}
	e1 := append(Encode([]byte("go"), 3), 0, 0)
	e2 := append(Encode([]byte("zork"), 3), 0, 0)
	body := append(append([]byte{}, header...), append(e1, e2...)...)

	mem := storyWithBytes(0x20, body...)

	dict := Parse(mem, 0x20, 3)
	if len(dict.entries) != 2 {
		t.Fatalf("parsed %d entries, want 2", len(dict.entries))
	}

	addr := dict.Lookup(Encode([]byte("go"), 3))
	if addr == 0 {
		t.Fatal("expected to find \"go\" in the dictionary")
	}
}
