// Package zdisplay implements zmachine.Display by forwarding every screen
// operation as a message over a channel, so the Bubble Tea program (which
// owns the terminal and must run its own event loop) can render them
// without the engine blocking on any UI call (spec §5.2).
package zdisplay

import "github.com/skeptomai/gruesome/internal/zmachine"

// TextMsg is emitted by Print: text destined for whichever window was
// selected at the time of the call. ChannelDisplay leaves Window unset; the
// receiver tracks the selected window from SetWindowMsg.
type TextMsg struct {
	Window zmachine.Window
	Text   string
}

// StatusMsg carries a redrawn v3 status line.
type StatusMsg struct {
	Location      string
	First         int
	Second        int
	IsTimeBased   bool
}

// SplitWindowMsg requests the upper window be resized to Lines rows.
type SplitWindowMsg struct{ Lines uint16 }

// SetWindowMsg selects the active window for subsequent TextMsg values.
type SetWindowMsg struct{ Window zmachine.Window }

// SetCursorMsg moves the upper-window cursor.
type SetCursorMsg struct{ Row, Col uint16 }

// SetStyleMsg changes the active text style.
type SetStyleMsg struct{ Style zmachine.TextStyle }

// EraseWindowMsg clears a window; -1 means both (spec's erase_window).
type EraseWindowMsg struct{ Window int16 }

// BufferModeMsg toggles lower-window word-wrap buffering.
type BufferModeMsg struct{ On bool }
