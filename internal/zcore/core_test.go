package zcore

import "testing"

// minimalStory builds a 64-byte-plus header for version v with the given
// base addresses, enough for Load to validate successfully.
func minimalStory(version uint8) []byte {
	b := make([]byte, 128)
	b[0x00] = version
	// high memory / dynamic-static boundary well inside the buffer
	b[0x0e] = 0x00
	b[0x0f] = 0x40
	b[0x04] = 0x00 // high mem base
	b[0x05] = 0x40
	b[0x06] = 0x00 // initial pc
	b[0x07] = 0x40
	b[0x08] = 0x00 // dictionary
	b[0x09] = 0x20
	b[0x0a] = 0x00 // object table
	b[0x0b] = 0x10
	b[0x0c] = 0x00 // globals
	b[0x0d] = 0x08
	return b
}

func TestLoadRejectsShortFile(t *testing.T) {
	_, err := Load([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error loading a file shorter than the header")
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	story := minimalStory(5)
	if _, err := Load(story); err == nil {
		t.Fatal("expected error loading a v5 story (only v3/v4 supported)")
	}
}

func TestLoadParsesHeaderFields(t *testing.T) {
	story := minimalStory(3)
	mem, err := Load(story)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mem.Version != 3 {
		t.Fatalf("Version = %d, want 3", mem.Version)
	}
	if mem.InitialPC != 0x40 {
		t.Fatalf("InitialPC = 0x%x, want 0x40", mem.InitialPC)
	}
	if mem.DictionaryBase != 0x20 {
		t.Fatalf("DictionaryBase = 0x%x, want 0x20", mem.DictionaryBase)
	}
}

func TestReadWriteByteRespectsStaticBoundary(t *testing.T) {
	story := minimalStory(3)
	mem, err := Load(story)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := mem.WriteByte(0x10, 0x42); err != nil {
		t.Fatalf("write into dynamic memory should succeed: %v", err)
	}
	if got := mem.ReadByte(0x10); got != 0x42 {
		t.Fatalf("ReadByte = 0x%x, want 0x42", got)
	}

	if err := mem.WriteByte(uint32(mem.BaseStaticMem), 0x01); err == nil {
		t.Fatal("expected a write into static memory to fail")
	}
}

func TestReadByteOutOfBoundsReturnsZero(t *testing.T) {
	story := minimalStory(3)
	mem, err := Load(story)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := mem.ReadByte(mem.Len() + 1000); got != 0 {
		t.Fatalf("out-of-bounds ReadByte = %d, want 0", got)
	}
}
