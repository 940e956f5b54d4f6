package zdisplay

import "github.com/skeptomai/gruesome/internal/zmachine"

// ChannelDisplay implements zmachine.Display by pushing each call as a
// typed message onto Out. It never blocks the engine for longer than it
// takes the consumer (the Bubble Tea program's receive loop) to read one
// message, matching how the original interpreter kept its own goroutine
// free of terminal I/O concerns.
type ChannelDisplay struct {
	Out chan<- any
}

func NewChannelDisplay(out chan<- any) *ChannelDisplay {
	return &ChannelDisplay{Out: out}
}

func (d *ChannelDisplay) Print(text string) {
	d.Out <- TextMsg{Text: text}
}

func (d *ChannelDisplay) ShowStatus(location string, first, second int, timeFormat bool) {
	d.Out <- StatusMsg{Location: location, First: first, Second: second, IsTimeBased: timeFormat}
}

func (d *ChannelDisplay) SplitWindow(lines uint16) {
	d.Out <- SplitWindowMsg{Lines: lines}
}

func (d *ChannelDisplay) SetWindow(w zmachine.Window) {
	d.Out <- SetWindowMsg{Window: w}
}

func (d *ChannelDisplay) SetCursor(row, col uint16) {
	d.Out <- SetCursorMsg{Row: row, Col: col}
}

func (d *ChannelDisplay) SetTextStyle(style zmachine.TextStyle) {
	d.Out <- SetStyleMsg{Style: style}
}

func (d *ChannelDisplay) EraseWindow(w int16) {
	d.Out <- EraseWindowMsg{Window: w}
}

func (d *ChannelDisplay) BufferMode(on bool) {
	d.Out <- BufferModeMsg{On: on}
}
