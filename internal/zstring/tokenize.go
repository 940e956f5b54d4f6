package zstring

import "github.com/skeptomai/gruesome/internal/zcore"

// token is one entry of a tokenised input line.
type token struct {
	text   []byte
	offset int // offset of token's first char from the start of the text buffer's character data
}

// tokenise splits raw input text on whitespace and dictionary separators,
// each separator becoming its own one-character token (spec §4.5).
func tokenise(text []byte, dict *Dictionary) []token {
	var toks []token
	start := -1

	flush := func(end int) {
		if start >= 0 && end > start {
			toks = append(toks, token{text: text[start:end], offset: start})
		}
		start = -1
	}

	for i, b := range text {
		switch {
		case b == ' ':
			flush(i)
		case dict.IsSeparator(b):
			flush(i)
			toks = append(toks, token{text: text[i : i+1], offset: i})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))

	return toks
}

// ReadTextBufferChars extracts the characters typed into a text buffer
// (already written by the caller), version-aware: v4 buffers store the
// character count explicitly in byte 1, v3 buffers are 0-terminated
// (spec §4.5).
func ReadTextBufferChars(mem *zcore.Memory, textBufAddr uint32, version uint8) []byte {
	if version >= 4 {
		n := mem.ReadByte(textBufAddr + 1)
		return append([]byte(nil), mem.Slice(textBufAddr+2, textBufAddr+2+uint32(n))...)
	}

	start := textBufAddr + 1
	end := start
	for mem.ReadByte(end) != 0 {
		end++
	}
	return append([]byte(nil), mem.Slice(start, end)...)
}

// Tokenise splits the text already present in the text buffer and writes
// the dictionary lookups into the parse buffer, per spec §4.5/§4.4 (sread,
// tokenise). If parseBufAddr is 0, tokenisation is skipped entirely.
func Tokenise(mem *zcore.Memory, dict *Dictionary, textBufAddr, parseBufAddr uint32, version uint8) {
	if parseBufAddr == 0 {
		return
	}

	chars := ReadTextBufferChars(mem, textBufAddr, version)
	toks := tokenise(chars, dict)

	maxTokens := mem.ReadByte(parseBufAddr)
	if uint8(len(toks)) > maxTokens {
		toks = toks[:maxTokens]
	}

	mem.WriteByte(parseBufAddr+1, uint8(len(toks)))

	entryPtr := parseBufAddr + 2
	for _, t := range toks {
		lower := make([]byte, len(t.text))
		for i, b := range t.text {
			lower[i] = Lowercase(b)
		}
		encoded := Encode(lower, version)
		dictAddr := dict.Lookup(encoded)

		mem.WriteWord(entryPtr, dictAddr)
		mem.WriteByte(entryPtr+2, uint8(len(t.text)))
		// Offset is from the start of the whole text buffer (including the
		// length byte(s)), matching the convention both v3 and v4 readers
		// expect when highlighting the matched substring.
		headerLen := uint32(1)
		if version >= 4 {
			headerLen = 2
		}
		mem.WriteByte(entryPtr+3, uint8(uint32(t.offset)+headerLen))
		entryPtr += 4
	}
}
