package zmachine

import (
	"testing"

	"github.com/skeptomai/gruesome/internal/zcore"
)

func storyWithCode(code ...byte) *zcore.Memory {
	buf := make([]byte, 256)
	buf[0x00] = 3
	buf[0x0e], buf[0x0f] = 0x00, 0xf0
	buf[0x04], buf[0x05] = 0x00, 0xf0
	buf[0x06], buf[0x07] = 0x00, 0x40
	buf[0x08], buf[0x09] = 0x00, 0x20
	buf[0x0a], buf[0x0b] = 0x00, 0x10
	buf[0x0c], buf[0x0d] = 0x00, 0x08
	copy(buf[0x40:], code)
	mem, err := zcore.Load(buf)
	if err != nil {
		panic(err)
	}
	return mem
}

func TestDecodeLongForm2OP(t *testing.T) {
	// add op: opcode 0x14, long form, both operands small constants.
	// top bits 00 -> both small constant, opcode low 5 bits = 0x14.
	mem := storyWithCode(0x14, 0x02, 0x03)

	inst, err := Decode(mem, 0x40, 3)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Form != LongForm || inst.OperandCount != OP2 || inst.Opcode != 0x14 {
		t.Fatalf("got form=%v count=%v opcode=%x", inst.Form, inst.OperandCount, inst.Opcode)
	}
	if len(inst.Operands) != 2 || inst.Operands[0].Value != 2 || inst.Operands[1].Value != 3 {
		t.Fatalf("operands = %+v", inst.Operands)
	}
	if !inst.HasStore {
		t.Fatal("add should have a store variable")
	}
	if inst.Length != 4 { // opcode + 2 operand bytes + store byte
		t.Fatalf("Length = %d, want 4", inst.Length)
	}
}

func TestDecodeShortForm1OPWithBranch(t *testing.T) {
	// jz: 1OP:0x0, short form, large constant operand -> top bits 10 0000.
	// 0x80 | 0x00 = top 2 bits 10 (short form), bits 5-4 = 00 (large const), opcode 0.
	opByte := byte(0b1000_0000)
	mem := storyWithCode(opByte, 0x00, 0x01, 0xc2) // operand=1, branch byte: bit7 set (on true), bit6 set (1-byte offset), offset=0x42&0x3f
	inst, err := Decode(mem, 0x40, 3)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Form != ShortForm || inst.OperandCount != OP1 || inst.Opcode != 0 {
		t.Fatalf("got form=%v count=%v opcode=%x", inst.Form, inst.OperandCount, inst.Opcode)
	}
	if !inst.HasBranch || !inst.Branch.OnTrue {
		t.Fatalf("branch = %+v", inst.Branch)
	}
}

func TestDecodeVarFormCallWithOperandTypes(t *testing.T) {
	// call (VAR:0x0): top bits 11, bit5=0 selects 2OP table per spec, but
	// opcode 0x00 with VAR form bit5=1 is the VAR table's call. Use 0xe0 |
	// 0x00 = 0b1110_0000 for VAR:call.
	opByte := byte(0b1110_0000)
	// operand type byte: large constant, small constant, omitted, omitted
	typeByte := byte(0b00_01_11_11)
	mem := storyWithCode(opByte, typeByte, 0x01, 0x23, 0x05, 0x00) // large const 0x0123, small const 0x05, store var 0x00

	inst, err := Decode(mem, 0x40, 3)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Form != VarForm || inst.OperandCount != VAR || inst.Opcode != 0 {
		t.Fatalf("got form=%v count=%v opcode=%x", inst.Form, inst.OperandCount, inst.Opcode)
	}
	if len(inst.Operands) != 2 {
		t.Fatalf("operands = %+v, want 2", inst.Operands)
	}
	if inst.Operands[0].Value != 0x0123 || inst.Operands[1].Value != 0x05 {
		t.Fatalf("operand values = %+v", inst.Operands)
	}
	if !inst.HasStore {
		t.Fatal("call should store its result")
	}
}

func TestDecodeSaveRestoreVersionDependent(t *testing.T) {
	// 0OP short form: top bits 10, bits 5-4 = 11 (omitted -> OP0), low 4
	// bits = opcode. save=5 (0xb5), restore=6 (0xb6).
	tests := []struct {
		name       string
		opByte     byte
		version    uint8
		code       []byte
		wantStore  bool
		wantBranch bool
	}{
		{"save v3 branches", 0xb5, 3, []byte{0xb5, 0xc5}, false, true},
		{"save v4 stores", 0xb5, 4, []byte{0xb5, 0x02}, true, false},
		{"restore v3 branches", 0xb6, 3, []byte{0xb6, 0xc5}, false, true},
		{"restore v4 stores", 0xb6, 4, []byte{0xb6, 0x02}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storyWithCode(tt.code...)
			inst, err := Decode(mem, 0x40, tt.version)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if inst.HasStore != tt.wantStore {
				t.Fatalf("HasStore = %v, want %v", inst.HasStore, tt.wantStore)
			}
			if inst.HasBranch != tt.wantBranch {
				t.Fatalf("HasBranch = %v, want %v", inst.HasBranch, tt.wantBranch)
			}
			if inst.HasStore && inst.StoreVar != 0x02 {
				t.Fatalf("StoreVar = %d, want 2", inst.StoreVar)
			}
			if inst.Length != 2 {
				t.Fatalf("Length = %d, want 2", inst.Length)
			}
		})
	}
}

func TestDecodeInlinePrintString(t *testing.T) {
	// print (0OP:2): top bits 10, bits 5-4 irrelevant since OP0, opcode 2.
	// Short-form 0OP encoding is 0xb2 (0b10_11_0010 omitted operand type, opcode 2).
	word := uint16(0x8000) // terminator bit set, all-zero zchars (three "space" chars? 0 maps to space via default lookup but fine, just checking length)
	mem := storyWithCode(0xb2, byte(word>>8), byte(word))

	inst, err := Decode(mem, 0x40, 3)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.InlineString != 0x41 {
		t.Fatalf("InlineString addr = 0x%x, want 0x41", inst.InlineString)
	}
	if inst.Length != 3 {
		t.Fatalf("Length = %d, want 3", inst.Length)
	}
}
