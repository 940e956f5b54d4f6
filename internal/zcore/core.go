// Package zcore holds the byte-addressable memory image of a loaded story
// file and the header fields that partition it into dynamic, static and
// high memory.
package zcore

import (
	"encoding/binary"
	"fmt"
)

// ErrKind classifies a memory-image error per the interpreter's error
// taxonomy: InvalidStoryFile when loading fails, ReadOnlyViolation for a
// write at or above BaseStaticMem.
type ErrKind int

const (
	InvalidStoryFile ErrKind = iota
	ReadOnlyViolation
)

func (k ErrKind) String() string {
	switch k {
	case InvalidStoryFile:
		return "InvalidStoryFile"
	case ReadOnlyViolation:
		return "ReadOnlyViolation"
	default:
		return "Unknown"
	}
}

// Error is a typed engine error carrying the failing address where one
// applies.
type Error struct {
	Kind ErrKind
	Addr uint32
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s (addr=0x%x)", e.Kind, e.Msg, e.Addr)
	}
	return fmt.Sprintf("%s (addr=0x%x)", e.Kind, e.Addr)
}

// Memory is the byte-indexed story-file image plus the header fields fixed
// at load time (spec.md §3, §4.1).
type Memory struct {
	bytes []uint8

	Version               uint8
	ReleaseNumber         uint16
	BaseHighMem           uint16 // byte 0x04-0x05
	InitialPC             uint16 // byte 0x06-0x07
	DictionaryBase        uint16 // byte 0x08-0x09
	ObjectTableBase       uint16 // byte 0x0a-0x0b
	GlobalVariableBase    uint16 // byte 0x0c-0x0d
	BaseStaticMem         uint16 // byte 0x0e-0x0f
	SerialNumber          [6]byte
	AbbreviationTableBase uint16 // byte 0x18-0x19
	FileLengthField       uint16 // byte 0x1a-0x1b (scaled)
	FileChecksum          uint16 // byte 0x1c-0x1d
}

// Load parses the header of a story file and wraps it with the dynamic
// region gating required by the ReadOnlyViolation invariant. The version
// byte must be 3 or 4; anything else is an InvalidStoryFile error, as is a
// file shorter than the 64-byte header.
func Load(storyBytes []uint8) (*Memory, error) {
	if len(storyBytes) < 64 {
		return nil, &Error{Kind: InvalidStoryFile, Msg: "file shorter than header"}
	}

	version := storyBytes[0x00]
	if version != 3 && version != 4 {
		return nil, &Error{Kind: InvalidStoryFile, Msg: fmt.Sprintf("unsupported version %d (only 3 and 4 are supported)", version)}
	}

	m := &Memory{
		bytes:                 storyBytes,
		Version:               version,
		ReleaseNumber:         binary.BigEndian.Uint16(storyBytes[0x02:0x04]),
		BaseHighMem:           binary.BigEndian.Uint16(storyBytes[0x04:0x06]),
		InitialPC:             binary.BigEndian.Uint16(storyBytes[0x06:0x08]),
		DictionaryBase:        binary.BigEndian.Uint16(storyBytes[0x08:0x0a]),
		ObjectTableBase:       binary.BigEndian.Uint16(storyBytes[0x0a:0x0c]),
		GlobalVariableBase:    binary.BigEndian.Uint16(storyBytes[0x0c:0x0e]),
		BaseStaticMem:         binary.BigEndian.Uint16(storyBytes[0x0e:0x10]),
		AbbreviationTableBase: binary.BigEndian.Uint16(storyBytes[0x18:0x1a]),
		FileLengthField:       binary.BigEndian.Uint16(storyBytes[0x1a:0x1c]),
		FileChecksum:          binary.BigEndian.Uint16(storyBytes[0x1c:0x1e]),
	}
	copy(m.SerialNumber[:], storyBytes[0x12:0x18])

	if uint32(m.BaseStaticMem) > uint32(len(storyBytes)) {
		return nil, &Error{Kind: InvalidStoryFile, Msg: "base_static_mem beyond end of file"}
	}

	// Interpreter identity bytes (0x1e/0x1f): mutated at load per spec §4.1,
	// not re-derived on every read.
	m.bytes[0x1e] = 6 // "IBM PC" — close enough and widely accepted
	m.bytes[0x1f] = 1
	// Flags byte 0x10: bit 4 (status line type) only matters on v3; leave
	// as the story file set it. Screen dimensions, 0x20-0x21, are likewise
	// left as the story file set them; SetScreenSize writes them.

	return m, nil
}

// FileLength returns the story file's length in bytes as declared by the
// header, scaled by the version-specific divisor (spec §4.1 / §6).
func (m *Memory) FileLength() uint32 {
	if m.Version >= 4 {
		return uint32(m.FileLengthField) * 4
	}
	return uint32(m.FileLengthField) * 2
}

// Len returns the number of bytes backing the image (which may exceed the
// header's declared file length; never less).
func (m *Memory) Len() uint32 {
	return uint32(len(m.bytes))
}

// PackAddress expands a packed routine or string address to an absolute
// byte address. v3 and v4 both use a multiplier of 2 (spec §3, §4.1).
func (m *Memory) PackAddress(packed uint16) uint32 {
	return 2 * uint32(packed)
}

// ReadByte reads a single byte. Addresses beyond the backing buffer read as
// zero (spec §6).
func (m *Memory) ReadByte(addr uint32) uint8 {
	if addr >= uint32(len(m.bytes)) {
		return 0
	}
	return m.bytes[addr]
}

// ReadWord reads a big-endian 16-bit word.
func (m *Memory) ReadWord(addr uint32) uint16 {
	return uint16(m.ReadByte(addr))<<8 | uint16(m.ReadByte(addr+1))
}

// WriteByte writes a single byte. Addresses at or above BaseStaticMem are
// rejected with a ReadOnlyViolation and leave memory unchanged (spec §4.1
// invariant, testable property 3).
func (m *Memory) WriteByte(addr uint32, value uint8) error {
	if addr >= uint32(m.BaseStaticMem) {
		return &Error{Kind: ReadOnlyViolation, Addr: addr}
	}
	if addr >= uint32(len(m.bytes)) {
		return &Error{Kind: ReadOnlyViolation, Addr: addr, Msg: "beyond end of image"}
	}
	m.bytes[addr] = value
	return nil
}

// WriteWord writes a big-endian 16-bit word, rejected under the same rule
// as WriteByte if either byte falls in the protected region.
func (m *Memory) WriteWord(addr uint32, value uint16) error {
	if err := m.WriteByte(addr, uint8(value>>8)); err != nil {
		return err
	}
	return m.WriteByte(addr+1, uint8(value))
}

// Slice returns a read-only view of bytes [start, end). Callers must not
// retain it past the next write to the same region.
func (m *Memory) Slice(start, end uint32) []uint8 {
	if end > uint32(len(m.bytes)) {
		end = uint32(len(m.bytes))
	}
	if start >= end {
		return nil
	}
	return m.bytes[start:end]
}

// DynamicMemory returns the mutable region [0, BaseStaticMem) used as the
// Quetzal save delta base.
func (m *Memory) DynamicMemory() []uint8 {
	return m.bytes[:m.BaseStaticMem]
}

// RestoreDynamicMemory overwrites dynamic memory in place; static and high
// memory are left untouched, per spec §4.8 restore semantics.
func (m *Memory) RestoreDynamicMemory(data []uint8) {
	n := copy(m.bytes[:m.BaseStaticMem], data)
	// A save made by a shorter dynamic region (shouldn't happen for the
	// same story file, but Quetzal readers must not panic on a mismatch
	// they can still partially apply) zero-fills the remainder.
	for i := n; i < int(m.BaseStaticMem); i++ {
		m.bytes[i] = 0
	}
}

// SetScreenSize writes the header's screen geometry fields (0x20-0x25) plus
// font dimensions, mutated at runtime when the terminal reports its size.
func (m *Memory) SetScreenSize(widthChars, heightLines uint8) {
	m.bytes[0x20] = heightLines
	m.bytes[0x21] = widthChars
	binary.BigEndian.PutUint16(m.bytes[0x22:0x24], uint16(widthChars))
	binary.BigEndian.PutUint16(m.bytes[0x24:0x26], uint16(heightLines))
	m.bytes[0x26] = 1 // font height in units
	m.bytes[0x27] = 1 // font width in units
}

// SetCapabilityFlags sets bits in Flags 1 (header byte 0x01) reflecting what
// this interpreter supports: split-screen windows always, plus (v4+) bold,
// italic and variable-pitch fonts.
func (m *Memory) SetCapabilityFlags() {
	if m.Version <= 3 {
		m.bytes[0x01] |= 0b0010_0000 // status line + split screen available
	} else {
		m.bytes[0x01] |= 0b0010_1101 // bold, italic, split screen, and a non-fixed default font
	}
}
