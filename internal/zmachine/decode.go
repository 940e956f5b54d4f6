package zmachine

import "github.com/skeptomai/gruesome/internal/zcore"

// OperandType is the 2-bit tag on a decoded operand (spec §4.2).
type OperandType uint8

const (
	OperandLargeConstant OperandType = 0b00
	OperandSmallConstant OperandType = 0b01
	OperandVariable      OperandType = 0b10
	OperandOmitted       OperandType = 0b11
)

// Form is the instruction's encoding form.
type Form uint8

const (
	LongForm Form = iota
	ShortForm
	VarForm
	ExtForm
)

// OperandCount distinguishes 0OP/1OP/2OP/VAR opcode tables; opcode numbers
// are only unique within one (form, count) pair.
type OperandCount uint8

const (
	OP0 OperandCount = iota
	OP1
	OP2
	VAR
)

// Operand is one decoded operand: its type tag and raw 16-bit value (a
// constant, or a variable number to be resolved against the current
// frame).
type Operand struct {
	Type  OperandType
	Value uint16
}

// Branch describes a decoded branch: whether it fires when the opcode's
// test result equals OnTrue, and where to go (Offset is the raw 14- or
// 6-bit signed/unsigned field; the reserved offsets 0 and 1 mean return
// false and return true).
type Branch struct {
	OnTrue  bool
	Offset  int32
}

// Instruction is one fully-decoded instruction (spec §4.2).
type Instruction struct {
	PC           uint32 // address of the opcode byte
	Form         Form
	OperandCount OperandCount
	Opcode       uint8 // opcode number within its (Form, OperandCount) table; for ExtForm this is the extended opcode byte
	Operands     []Operand
	HasStore     bool
	StoreVar     uint8
	HasBranch    bool
	Branch       Branch
	InlineString uint32 // address of an embedded Z-string (print/print_ret), 0 if none
	Length       uint32 // total bytes consumed, including InlineString's bytes
}

// storesResult and hasBranchField classify opcodes that read a store-variable or
// branch field, version- and form-specific per spec §4.2.
func storesResult(count OperandCount, opcode uint8, form Form, version uint8) bool {
	if form == ExtForm {
		switch opcode {
		case 0x00, 0x01, 0x02, 0x03, 0x04, 0x09, 0x0a, 0x0c:
			return true
		default:
			return false
		}
	}
	switch count {
	case OP0:
		switch opcode {
		case 0x5, 0x6: // save, restore: v4+ store their result, v3 only branches
			return version >= 4
		default:
			return false
		}
	case OP1:
		switch opcode {
		case 0x1, 0x2, 0x3, 0x4, 0x8, 0xe:
			return true
		case 0xf: // not (v1-4) / call_1n (v5+)
			return version < 5
		default:
			return false
		}
	case OP2:
		switch opcode {
		case 0x8, 0x9, 0xf, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19:
			return true
		case 0x1a: // call_2n: v5+ only, no store
			return false
		default:
			return false
		}
	case VAR:
		switch opcode {
		case 0x0, 0x7, 0x8, 0xc, 0x16, 0x17: // call, random, push(no), call_vs2, read_char, scan_table
			return opcode != 0x8
		default:
			return false
		}
	}
	return false
}

func hasBranchField(count OperandCount, opcode uint8, form Form, version uint8) bool {
	if form == ExtForm {
		return opcode == 0x06 // check_unicode... (not used in v3/4 but harmless)
	}
	switch count {
	case OP0:
		switch opcode {
		case 0x5, 0x6: // save, restore: only v3 branches; v4+ stores instead
			return version < 4
		case 0xd, 0xf: // verify, piracy
			return true
		default:
			return false
		}
	case OP1:
		switch opcode {
		case 0x0, 0x1, 0x2:
			return true
		default:
			return false
		}
	case OP2:
		switch opcode {
		case 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7, 0xa:
			return true
		default:
			return false
		}
	case VAR:
		return opcode == 0x17 // scan_table
	}
	return false
}

// Decode decodes the instruction at pc. The only error it returns is for
// the extended-form opcode byte 0xbe, which v3/v4 do not have. Truncated
// instructions are not detected (bytes past the image read as zero), and no
// operand-type combination is rejected.
func Decode(mem *zcore.Memory, pc uint32, version uint8) (*Instruction, error) {
	start := pc
	opByte := mem.ReadByte(pc)
	pc++

	inst := &Instruction{PC: start}

	switch {
	case opByte == 0xbe && version < 5:
		return nil, &DecodeErr{PC: start, Msg: "extended form requires v5+"}

	case opByte>>6 == 0b11: // Variable form
		inst.Form = VarForm
		inst.Opcode = opByte & 0b1_1111
		if (opByte>>5)&1 == 0 {
			inst.OperandCount = OP2
		} else {
			inst.OperandCount = VAR
		}
		var err error
		pc, err = decodeVarOperands(mem, pc, inst)
		if err != nil {
			return nil, err
		}

	case opByte>>6 == 0b10: // Short form
		inst.Form = ShortForm
		inst.Opcode = opByte & 0b1111
		typeBits := (opByte >> 4) & 0b11
		switch OperandType(typeBits) {
		case OperandLargeConstant:
			inst.Operands = []Operand{{Type: OperandLargeConstant, Value: mem.ReadWord(pc)}}
			pc += 2
			inst.OperandCount = OP1
		case OperandSmallConstant, OperandVariable:
			inst.Operands = []Operand{{Type: OperandType(typeBits), Value: uint16(mem.ReadByte(pc))}}
			pc++
			inst.OperandCount = OP1
		case OperandOmitted:
			inst.OperandCount = OP0
		}

	default: // Long form, top bit 0: always 2OP
		inst.Form = LongForm
		inst.Opcode = opByte & 0b1_1111
		inst.OperandCount = OP2

		op1Type := OperandSmallConstant
		if (opByte>>6)&1 == 1 {
			op1Type = OperandVariable
		}
		op2Type := OperandSmallConstant
		if (opByte>>5)&1 == 1 {
			op2Type = OperandVariable
		}
		for _, t := range [2]OperandType{op1Type, op2Type} {
			inst.Operands = append(inst.Operands, Operand{Type: t, Value: uint16(mem.ReadByte(pc))})
			pc++
		}
	}

	if storesResult(inst.OperandCount, inst.Opcode, inst.Form, version) {
		inst.HasStore = true
		inst.StoreVar = mem.ReadByte(pc)
		pc++
	}

	if hasBranchField(inst.OperandCount, inst.Opcode, inst.Form, version) {
		inst.HasBranch = true
		b1 := mem.ReadByte(pc)
		pc++
		inst.Branch.OnTrue = (b1>>7)&1 == 1
		if (b1>>6)&1 == 1 {
			inst.Branch.Offset = int32(b1 & 0b11_1111)
		} else {
			b2 := mem.ReadByte(pc)
			pc++
			raw := uint16(b1&0b11_1111)<<8 | uint16(b2)
			// Sign-extend the 14-bit field.
			inst.Branch.Offset = int32(int16(raw<<2) >> 2)
		}
	}

	if isPrintLiteralOpcode(inst) {
		inst.InlineString = pc
		_, n := decodeInlineLength(mem, pc)
		pc += n
	}

	inst.Length = pc - start
	return inst, nil
}

// isPrintLiteralOpcode reports whether this instruction is print (0OP:2) or
// print_ret (0OP:3), which are followed by an inline Z-string (spec §4.2).
func isPrintLiteralOpcode(inst *Instruction) bool {
	return inst.OperandCount == OP0 && inst.Form != VarForm && (inst.Opcode == 2 || inst.Opcode == 3)
}

// decodeInlineLength scans forward from addr counting 16-bit words until
// the terminator bit is hit, without decoding the text (the text decoder
// in zstring does that); used only to compute how many bytes to skip.
func decodeInlineLength(mem *zcore.Memory, addr uint32) (string, uint32) {
	var n uint32
	for {
		w := mem.ReadWord(addr + n)
		n += 2
		if w&0x8000 != 0 {
			break
		}
	}
	return "", n
}

func decodeVarOperands(mem *zcore.Memory, pc uint32, inst *Instruction) (uint32, error) {
	typeByte := mem.ReadByte(pc)
	pc++

	maxOperands := 4
	var typeByte2 uint8
	if inst.OperandCount == VAR && (inst.Opcode == 0xc || inst.Opcode == 0x1a) {
		// call_vs2 / call_vn2 take a second type byte for up to 8 operands.
		typeByte2 = mem.ReadByte(pc)
		pc++
		maxOperands = 8
	}

	for i := 0; i < maxOperands; i++ {
		var t OperandType
		if i < 4 {
			t = OperandType((typeByte >> (2 * (3 - i))) & 0b11)
		} else {
			t = OperandType((typeByte2 >> (2 * (7 - i))) & 0b11)
		}
		if t == OperandOmitted {
			break
		}
		switch t {
		case OperandLargeConstant:
			inst.Operands = append(inst.Operands, Operand{Type: t, Value: mem.ReadWord(pc)})
			pc += 2
		default:
			inst.Operands = append(inst.Operands, Operand{Type: t, Value: uint16(mem.ReadByte(pc))})
			pc++
		}
	}

	return pc, nil
}

// DecodeErr reports a malformed instruction (spec §4.2, §7 DecodeError).
type DecodeErr struct {
	PC  uint32
	Msg string
}

func (e *DecodeErr) Error() string { return e.Msg }
