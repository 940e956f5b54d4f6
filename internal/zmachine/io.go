package zmachine

import (
	"context"

	"github.com/skeptomai/gruesome/internal/zstring"
)

// opRead implements sread/read (VAR:4): read a line into the text buffer,
// tokenize it into the parse buffer against the story's dictionary, and —
// on v4 with a nonzero time argument — drive the timed-interrupt protocol
// of spec §5.3.
func (e *Engine) opRead(ctx context.Context, inst *Instruction, ops []uint16) error {
	textBufAddr := uint32(ops[0])
	var parseBufAddr uint32
	if len(ops) > 1 {
		parseBufAddr = uint32(ops[1])
	}

	maxLen := int(e.Mem.ReadByte(textBufAddr))

	var line string
	var err error

	if e.Mem.Version >= 4 && len(ops) >= 3 && ops[2] != 0 {
		line, err = e.timedRead(ctx, maxLen, int(ops[2]), routineArg(ops))
	} else {
		line, err = e.Input.ReadLine(ctx, maxLen)
	}
	if err != nil {
		return e.fatalf(IoError, inst.PC, "sread", "%v", err)
	}

	e.writeTextBuffer(textBufAddr, line)

	if parseBufAddr != 0 {
		zstring.Tokenise(e.Mem, e.Dict, textBufAddr, parseBufAddr, e.Mem.Version)
	}
	return nil
}

func routineArg(ops []uint16) uint16 {
	if len(ops) >= 4 {
		return ops[3]
	}
	return 0
}

// timedRead loops ReadLineTimed, invoking the interrupt routine at every
// elapsed tick; the routine's return value, if nonzero, cancels the read
// (spec §5.3).
func (e *Engine) timedRead(ctx context.Context, maxLen, tenths int, routine uint16) (string, error) {
	for {
		line, ok, err := e.Input.ReadLineTimed(ctx, maxLen, tenths)
		if err != nil {
			return "", err
		}
		if ok {
			return line, nil
		}
		result, err := e.callInterruptRoutine(ctx, routine)
		if err != nil {
			return "", err
		}
		if result != 0 {
			return "", nil
		}
	}
}

// writeTextBuffer lowercases text into the text buffer, matching the layout
// sread expects (spec §3 text-buffer layout): v3 null-terminates it, v4
// records its length in byte 1 instead.
func (e *Engine) writeTextBuffer(addr uint32, text string) {
	maxLen := e.Mem.ReadByte(addr)
	base := addr + 1
	if e.Mem.Version >= 4 {
		base = addr + 2 // byte 1 holds the written length for v4+
	}

	n := len(text)
	if n > int(maxLen) {
		n = int(maxLen)
	}
	for i := 0; i < n; i++ {
		_ = e.Mem.WriteByte(base+uint32(i), zstring.Lowercase(text[i]))
	}
	if e.Mem.Version >= 4 {
		_ = e.Mem.WriteByte(addr+1, uint8(n))
	} else {
		_ = e.Mem.WriteByte(base+uint32(n), 0)
	}
}

// opReadChar implements read_char (VAR:16, v4+), with the same timed-
// interrupt protocol as opRead.
func (e *Engine) opReadChar(ctx context.Context, inst *Instruction, ops []uint16) error {
	var ch byte
	var err error

	if len(ops) >= 2 && ops[1] != 0 {
		var routine uint16
		if len(ops) >= 3 {
			routine = ops[2]
		}
		ch, err = e.timedReadChar(ctx, int(ops[1]), routine)
	} else {
		ch, err = e.Input.ReadChar(ctx)
	}
	if err != nil {
		return e.fatalf(IoError, inst.PC, "read_char", "%v", err)
	}
	e.store(inst, uint16(ch))
	return nil
}

func (e *Engine) timedReadChar(ctx context.Context, tenths int, routine uint16) (byte, error) {
	for {
		ch, ok, err := e.Input.ReadCharTimed(ctx, tenths)
		if err != nil {
			return 0, err
		}
		if ok {
			return ch, nil
		}
		result, err := e.callInterruptRoutine(ctx, routine)
		if err != nil {
			return 0, err
		}
		if result != 0 {
			return 0, nil
		}
	}
}

// callInterruptRoutine runs routine synchronously to completion on the
// same frame stack and returns its result, without disturbing the
// suspended read (spec §5.3: interrupts run as an ordinary call; no
// separate scheduler or coroutine is needed).
func (e *Engine) callInterruptRoutine(ctx context.Context, routine uint16) (uint16, error) {
	if routine == 0 {
		return 0, nil
	}
	if err := e.call(routine, nil, true, 0, true); err != nil {
		return 0, err
	}
	depth := len(e.frames)
	for len(e.frames) >= depth && !e.Quit {
		inst, err := Decode(e.Mem, e.pc, e.Mem.Version)
		if err != nil {
			return 0, e.fatalf(DecodeError, e.pc, "?", "%v", err)
		}
		e.pc += inst.Length
		if err := e.execute(ctx, inst); err != nil {
			return 0, err
		}
	}
	val, _ := e.currentFrame().pop()
	return val, nil
}

// statusLineTimeBit is bit 1 of Flags 1 (header byte 0x01): v3 games set it
// to request the status line show a clock instead of a score/move counter
// (spec §5.1).
const statusLineTimeBit = 0x02

// showStatus redraws the v3 implicit status line from globals 0 (location
// object), 1 and 2 (score/moves or hours/minutes), per spec §5.1.
func (e *Engine) showStatus() {
	if e.Mem.Version > 3 {
		return
	}
	locationObj := e.readGlobal(16) // global 0 is variable number 16
	name := ""
	if obj, err := e.Objects.Get(locationObj); err == nil {
		name = obj.Name()
	}
	first := int(signed16(e.readGlobal(17)))
	second := int(signed16(e.readGlobal(18)))
	timeFormat := e.Mem.ReadByte(0x01)&statusLineTimeBit != 0
	e.Display.ShowStatus(name, first, second, timeFormat)
}

// verifyChecksum implements the verify opcode: sum every byte of the
// story file after the header and compare to the header's recorded
// checksum (spec §4.3 verify, §2 header layout).
func (e *Engine) verifyChecksum() bool {
	length := e.Mem.FileLength()
	if length == 0 || length > e.Mem.Len() {
		return false
	}
	var sum uint16
	data := e.Mem.Slice(0x40, length)
	for _, b := range data {
		sum += uint16(b)
	}
	return sum == e.Mem.FileChecksum
}
