package zmachine

import "context"

// TextStyle is a bitmask matching the set_text_style opcode's argument
// (spec §5.2: roman, reverse, bold, italic, fixed-pitch).
type TextStyle uint8

const (
	StyleRoman     TextStyle = 0
	StyleReverse   TextStyle = 1 << 0
	StyleBold      TextStyle = 1 << 1
	StyleItalic    TextStyle = 1 << 2
	StyleFixedPitch TextStyle = 1 << 3
)

// Window identifies the upper (status/split) or lower (main) window (spec
// §5.2; v3 has only an implicit status line, not a true split_window).
type Window uint8

const (
	LowerWindow Window = 0
	UpperWindow Window = 1
)

// Display is the narrow capability surface the engine needs from a host UI.
// zdisplay implements this structurally; zmachine never imports zdisplay,
// avoiding an import cycle.
type Display interface {
	// Print writes text to the currently selected window, word-wrapping
	// and buffering per spec §5.2 (lower window in v4 is buffered; v3's
	// single window is not).
	Print(text string)

	// ShowStatus redraws the v3 status line (location name, score/moves or
	// time, spec §5.1). No-op on v4 games that use split_window instead.
	ShowStatus(location string, scoreOrHours, movesOrMins int, timeFormat bool)

	// SplitWindow sets the upper window's height in lines (v4 only).
	SplitWindow(lines uint16)

	// SetWindow selects the window subsequent Print calls target.
	SetWindow(w Window)

	// SetCursor moves the cursor within the upper window (v4 only; 1-based
	// row/column per spec §5.2).
	SetCursor(row, col uint16)

	// SetTextStyle changes the active style bitmask for subsequent Print
	// calls.
	SetTextStyle(style TextStyle)

	// EraseWindow clears a window (-1 means both, per spec's erase_window
	// conventions).
	EraseWindow(w int16)

	// BufferMode toggles word-wrap buffering of the lower window.
	BufferMode(on bool)
}

// InputSource is the narrow capability surface for reading player input.
// zinput implements this structurally; zmachine never imports zinput.
type InputSource interface {
	// ReadLine blocks for a full line of input (v3 sread with no timeout,
	// or v4 sread with time==0). maxLen is the text-buffer capacity.
	ReadLine(ctx context.Context, maxLen int) (string, error)

	// ReadLineTimed behaves like ReadLine but returns early with ok=false
	// if no line was completed within the given number of tenths of a
	// second (v4 sread with a nonzero time argument, spec §5.3). The
	// engine is responsible for invoking the interrupt routine and
	// deciding whether to resume or abandon the read; ReadLineTimed
	// returns control to the engine at each tick boundary.
	ReadLineTimed(ctx context.Context, maxLen int, tenthsPerTick int) (line string, ok bool, err error)

	// ReadChar reads a single ZSCII character (v4 read_char).
	ReadChar(ctx context.Context) (byte, error)

	// ReadCharTimed is ReadChar's timed variant (spec §5.3).
	ReadCharTimed(ctx context.Context, tenthsPerTick int) (ch byte, ok bool, err error)
}
