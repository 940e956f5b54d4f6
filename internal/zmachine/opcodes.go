package zmachine

import (
	"context"
	"fmt"

	"github.com/skeptomai/gruesome/internal/zstring"
)

// execute dispatches one decoded instruction. Opcodes are grouped by
// operand count, matching how the official spec and every disassembler
// tables them (spec §4.3).
func (e *Engine) execute(ctx context.Context, inst *Instruction) error {
	switch inst.OperandCount {
	case OP0:
		return e.exec0OP(ctx, inst)
	case OP1:
		return e.exec1OP(ctx, inst)
	case OP2:
		return e.exec2OP(inst)
	case VAR:
		return e.execVAR(ctx, inst)
	}
	return e.fatalf(DecodeError, inst.PC, "?", "unreachable operand count")
}

func opcodeName(inst *Instruction) string {
	return fmt.Sprintf("%v:%d", inst.OperandCount, inst.Opcode)
}

func signed16(v uint16) int16 { return int16(v) }

func boolToU16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// --- 2OP ---------------------------------------------------------------

func (e *Engine) exec2OP(inst *Instruction) error {
	ops := e.operandValues(inst)
	a := func(i int) uint16 {
		if i < len(ops) {
			return ops[i]
		}
		return 0
	}

	switch inst.Opcode {
	case 0x01: // je: equal to any of the following operands
		result := false
		for i := 1; i < len(ops); i++ {
			if ops[0] == ops[i] {
				result = true
				break
			}
		}
		e.branch(inst, result)
	case 0x02: // jl
		e.branch(inst, signed16(a(0)) < signed16(a(1)))
	case 0x03: // jg
		e.branch(inst, signed16(a(0)) > signed16(a(1)))
	case 0x04: // dec_chk
		varnum := uint8(a(0))
		v := int16(e.ReadVariableInPlace(varnum)) - 1
		e.WriteVariableInPlace(varnum, uint16(v))
		e.branch(inst, v < signed16(a(1)))
	case 0x05: // inc_chk
		varnum := uint8(a(0))
		v := int16(e.ReadVariableInPlace(varnum)) + 1
		e.WriteVariableInPlace(varnum, uint16(v))
		e.branch(inst, v > signed16(a(1)))
	case 0x06: // jin: is a(1) the parent of a(0)?
		obj, err := e.Objects.Get(a(0))
		if err != nil {
			e.branch(inst, false)
			return nil
		}
		e.branch(inst, obj.Parent == a(1))
	case 0x07: // test: bitwise, all bits of a(1) set in a(0)?
		e.branch(inst, a(0)&a(1) == a(1))
	case 0x08: // or
		e.store(inst, a(0)|a(1))
	case 0x09: // and
		e.store(inst, a(0)&a(1))
	case 0x0a: // test_attr
		obj, err := e.Objects.Get(a(0))
		if err != nil {
			e.branch(inst, false)
			return nil
		}
		e.branch(inst, obj.TestAttribute(a(1)))
	case 0x0b: // set_attr
		obj, err := e.Objects.Get(a(0))
		if err == nil {
			obj.SetAttribute(a(1))
		}
	case 0x0c: // clear_attr
		obj, err := e.Objects.Get(a(0))
		if err == nil {
			obj.ClearAttribute(a(1))
		}
	case 0x0d: // store (indirect variable write)
		e.WriteVariableInPlace(uint8(a(0)), a(1))
	case 0x0e: // insert_obj
		return e.Objects.Insert(a(0), a(1))
	case 0x0f: // loadw
		addr := uint32(a(0)) + 2*uint32(a(1))
		e.store(inst, e.Mem.ReadWord(addr))
	case 0x10: // loadb
		addr := uint32(a(0)) + uint32(a(1))
		e.store(inst, uint16(e.Mem.ReadByte(addr)))
	case 0x11: // get_prop
		obj, err := e.Objects.Get(a(0))
		if err != nil {
			return e.fatalf(InvalidCall, inst.PC, "get_prop", "%v", err)
		}
		prop := obj.GetProperty(uint8(a(1)))
		if len(prop.Data) == 1 {
			e.store(inst, uint16(prop.Data[0]))
		} else if len(prop.Data) >= 2 {
			e.store(inst, uint16(prop.Data[0])<<8|uint16(prop.Data[1]))
		} else {
			e.store(inst, 0)
		}
	case 0x12: // get_prop_addr
		obj, err := e.Objects.Get(a(0))
		if err != nil {
			return e.fatalf(InvalidCall, inst.PC, "get_prop_addr", "%v", err)
		}
		e.store(inst, uint16(obj.GetPropertyAddr(uint8(a(1)))))
	case 0x13: // get_next_prop
		obj, err := e.Objects.Get(a(0))
		if err != nil {
			return e.fatalf(InvalidCall, inst.PC, "get_next_prop", "%v", err)
		}
		next, err := obj.GetNextProperty(uint8(a(1)))
		if err != nil {
			return e.fatalf(InvalidCall, inst.PC, "get_next_prop", "%v", err)
		}
		e.store(inst, uint16(next))
	case 0x14: // add
		e.store(inst, uint16(signed16(a(0))+signed16(a(1))))
	case 0x15: // sub
		e.store(inst, uint16(signed16(a(0))-signed16(a(1))))
	case 0x16: // mul
		e.store(inst, uint16(signed16(a(0))*signed16(a(1))))
	case 0x17: // div
		if a(1) == 0 {
			return e.fatalf(DivisionByZero, inst.PC, "div", "division by zero")
		}
		e.store(inst, uint16(signed16(a(0))/signed16(a(1))))
	case 0x18: // mod
		if a(1) == 0 {
			return e.fatalf(DivisionByZero, inst.PC, "mod", "division by zero")
		}
		e.store(inst, uint16(signed16(a(0))%signed16(a(1))))
	case 0x19: // call_2s (v4+)
		return e.call(a(0), ops[1:], inst.HasStore, inst.StoreVar, false)
	case 0x1a: // call_2n (v5+, not reachable in v3/4)
		return e.call(a(0), ops[1:], false, 0, false)
	default:
		return e.fatalf(DecodeError, inst.PC, opcodeName(inst), "unimplemented 2OP opcode")
	}
	return nil
}

// --- 1OP -----------------------------------------------------------------

func (e *Engine) exec1OP(ctx context.Context, inst *Instruction) error {
	v := e.resolveOperand(inst.Operands[0])

	switch inst.Opcode {
	case 0x0: // jz
		e.branch(inst, v == 0)
	case 0x1: // get_sibling
		obj, err := e.Objects.Get(v)
		if err != nil {
			e.store(inst, 0)
			e.branch(inst, false)
			return nil
		}
		e.store(inst, obj.Sibling)
		e.branch(inst, obj.Sibling != 0)
	case 0x2: // get_child
		obj, err := e.Objects.Get(v)
		if err != nil {
			e.store(inst, 0)
			e.branch(inst, false)
			return nil
		}
		e.store(inst, obj.Child)
		e.branch(inst, obj.Child != 0)
	case 0x3: // get_parent
		obj, err := e.Objects.Get(v)
		if err != nil {
			e.store(inst, 0)
			return nil
		}
		e.store(inst, obj.Parent)
	case 0x4: // get_prop_len
		e.store(inst, uint16(e.Objects.GetPropertyLen(uint32(v))))
	case 0x5: // inc
		varnum := uint8(v)
		e.WriteVariableInPlace(varnum, uint16(int16(e.ReadVariableInPlace(varnum))+1))
	case 0x6: // dec
		varnum := uint8(v)
		e.WriteVariableInPlace(varnum, uint16(int16(e.ReadVariableInPlace(varnum))-1))
	case 0x7: // print_addr
		text, _ := zstring.Decode(e.Mem, uint32(v), uint16(e.Mem.AbbreviationTableBase))
		e.Display.Print(text)
	case 0x8: // call_1s (v4+)
		return e.call(v, nil, inst.HasStore, inst.StoreVar, false)
	case 0x9: // remove_obj
		return e.Objects.Remove(v)
	case 0xa: // print_obj
		obj, err := e.Objects.Get(v)
		if err == nil {
			e.Display.Print(obj.Name())
		}
	case 0xb: // ret
		e.doReturn(v)
	case 0xc: // jump
		e.pc = uint32(int64(e.pc) + int64(signed16(v)) - 2)
	case 0xd: // print_paddr
		text, _ := zstring.Decode(e.Mem, e.Mem.PackAddress(v), uint16(e.Mem.AbbreviationTableBase))
		e.Display.Print(text)
	case 0xe: // load
		e.store(inst, e.ReadVariableInPlace(uint8(v)))
	case 0xf: // not (v1-4)
		e.store(inst, ^v)
	default:
		return e.fatalf(DecodeError, inst.PC, opcodeName(inst), "unimplemented 1OP opcode")
	}
	return nil
}

// --- 0OP -------------------------------------------------------------------

func (e *Engine) exec0OP(ctx context.Context, inst *Instruction) error {
	switch inst.Opcode {
	case 0x0: // rtrue
		e.doReturn(1)
	case 0x1: // rfalse
		e.doReturn(0)
	case 0x2: // print (inline string)
		text, _ := zstring.Decode(e.Mem, inst.InlineString, uint16(e.Mem.AbbreviationTableBase))
		e.Display.Print(text)
	case 0x3: // print_ret
		text, _ := zstring.Decode(e.Mem, inst.InlineString, uint16(e.Mem.AbbreviationTableBase))
		e.Display.Print(text + "\n")
		e.doReturn(1)
	case 0x4: // nop
	case 0x5: // save
		return e.opSave(inst)
	case 0x6: // restore
		return e.opRestore(inst)
	case 0x7: // restart
		e.Restart = true
		e.Quit = true
	case 0x8: // ret_popped
		val, _ := e.currentFrame().pop()
		e.doReturn(val)
	case 0x9: // pop / catch(v5+): discard top of stack
		e.currentFrame().pop()
	case 0xa: // quit
		e.Quit = true
	case 0xb: // new_line
		e.Display.Print("\n")
	case 0xc: // show_status (v3 only)
		e.showStatus()
	case 0xd: // verify
		e.branch(inst, e.verifyChecksum())
	case 0xf: // piracy: always branch "genuine"
		e.branch(inst, true)
	default:
		return e.fatalf(DecodeError, inst.PC, opcodeName(inst), "unimplemented 0OP opcode")
	}
	return nil
}

// --- VAR ---------------------------------------------------------------

func (e *Engine) execVAR(ctx context.Context, inst *Instruction) error {
	ops := e.operandValues(inst)
	a := func(i int) uint16 {
		if i < len(ops) {
			return ops[i]
		}
		return 0
	}

	switch inst.Opcode {
	case 0x0: // call / call_vs
		return e.call(a(0), ops[1:], inst.HasStore, inst.StoreVar, false)
	case 0x1: // storew
		addr := uint32(a(0)) + 2*uint32(a(1))
		return e.Mem.WriteWord(addr, a(2))
	case 0x2: // storeb
		addr := uint32(a(0)) + uint32(a(1))
		return e.Mem.WriteByte(addr, uint8(a(2)))
	case 0x3: // put_prop
		obj, err := e.Objects.Get(a(0))
		if err != nil {
			return e.fatalf(InvalidCall, inst.PC, "put_prop", "%v", err)
		}
		return obj.SetProperty(uint8(a(1)), a(2))
	case 0x4: // sread / read
		return e.opRead(ctx, inst, ops)
	case 0x5: // print_char
		e.Display.Print(string(rune(a(0))))
	case 0x6: // print_num
		e.Display.Print(fmt.Sprintf("%d", signed16(a(0))))
	case 0x7: // random
		e.store(inst, e.Random(signed16(a(0))))
	case 0x8: // push
		e.currentFrame().push(a(0))
	case 0x9: // pull
		varnum := uint8(a(0))
		val, _ := e.currentFrame().pop()
		e.WriteVariableInPlace(varnum, val)
	case 0xa: // split_window (v4+)
		e.upperWindowLines = a(0)
		e.Display.SplitWindow(a(0))
	case 0xb: // set_window (v4+)
		e.curWindow = Window(a(0))
		e.Display.SetWindow(Window(a(0)))
	case 0xc: // call_vs2 (v4+)
		return e.call(a(0), ops[1:], inst.HasStore, inst.StoreVar, false)
	case 0xd: // erase_window (v4+)
		e.Display.EraseWindow(int16(a(0)))
	case 0x0f: // set_cursor (v4+)
		e.Display.SetCursor(a(0), a(1))
	case 0x11: // set_text_style (v4+)
		e.Display.SetTextStyle(TextStyle(a(0)))
	case 0x12: // buffer_mode (v4+)
		e.Display.BufferMode(a(0) != 0)
	case 0x16: // read_char (v4+)
		return e.opReadChar(ctx, inst, ops)
	case 0x17: // scan_table
		return e.opScanTable(inst, ops)
	default:
		return e.fatalf(DecodeError, inst.PC, opcodeName(inst), "unimplemented VAR opcode")
	}
	return nil
}

// opScanTable implements scan_table (spec §4.1's table-scan helper used by
// many v4 games' parsers): linear search of a word or byte table, branching
// on whether the value was found and storing the matching element's
// address (or 0).
func (e *Engine) opScanTable(inst *Instruction, ops []uint16) error {
	x, table, length := ops[0], ops[1], ops[2]
	form := uint16(0x82)
	if len(ops) > 3 {
		form = ops[3]
	}
	fieldLen := form & 0x7f
	isWord := form&0x80 != 0

	addr := uint32(table)
	for i := uint16(0); i < length; i++ {
		var val uint16
		if isWord {
			val = e.Mem.ReadWord(addr)
		} else {
			val = uint16(e.Mem.ReadByte(addr))
		}
		if val == x {
			e.store(inst, uint16(addr))
			e.branch(inst, true)
			return nil
		}
		addr += uint32(fieldLen)
	}
	e.store(inst, 0)
	e.branch(inst, false)
	return nil
}
