// Package zinput implements zmachine.InputSource by requesting a line or
// character over a channel and waiting on a response channel, so the
// Bubble Tea program supplies keystrokes the same way it supplies them to
// any other textinput-driven view (spec §5.3).
package zinput

import (
	"context"
	"time"
)

// Request is sent on Out when the engine needs a line or a single
// character. CharOnly distinguishes read_char from sread.
type Request struct {
	CharOnly bool
	MaxLen   int
}

// Response is sent back on In once the host has a line or character ready.
type Response struct {
	Line string
	Char byte
}

// ChannelInput implements zmachine.InputSource over a pair of channels. A
// timed read's request is only sent once; repeated ReadLineTimed/
// ReadCharTimed calls for the same read (the engine polls once per tick)
// reuse the pending flag instead of re-requesting.
type ChannelInput struct {
	Out chan<- any
	In  <-chan Response

	pending bool
}

func NewChannelInput(out chan<- any, in <-chan Response) *ChannelInput {
	return &ChannelInput{Out: out, In: in}
}

func (c *ChannelInput) ReadLine(ctx context.Context, maxLen int) (string, error) {
	c.Out <- Request{MaxLen: maxLen}
	select {
	case r := <-c.In:
		return r.Line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ReadLineTimed waits for a response or a tick, whichever comes first; a
// tick firing with no response yet means the caller should run its
// interrupt routine and call back in (spec §5.3's per-tick protocol).
func (c *ChannelInput) ReadLineTimed(ctx context.Context, maxLen int, tenthsPerTick int) (string, bool, error) {
	if !c.pending {
		c.Out <- Request{MaxLen: maxLen}
		c.pending = true
	}
	timer := time.NewTimer(time.Duration(tenthsPerTick) * 100 * time.Millisecond)
	defer timer.Stop()
	select {
	case r := <-c.In:
		c.pending = false
		return r.Line, true, nil
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		c.pending = false
		return "", false, ctx.Err()
	}
}

func (c *ChannelInput) ReadChar(ctx context.Context) (byte, error) {
	c.Out <- Request{CharOnly: true}
	select {
	case r := <-c.In:
		return r.Char, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *ChannelInput) ReadCharTimed(ctx context.Context, tenthsPerTick int) (byte, bool, error) {
	if !c.pending {
		c.Out <- Request{CharOnly: true}
		c.pending = true
	}
	timer := time.NewTimer(time.Duration(tenthsPerTick) * 100 * time.Millisecond)
	defer timer.Stop()
	select {
	case r := <-c.In:
		c.pending = false
		return r.Char, true, nil
	case <-timer.C:
		return 0, false, nil
	case <-ctx.Done():
		c.pending = false
		return 0, false, ctx.Err()
	}
}
