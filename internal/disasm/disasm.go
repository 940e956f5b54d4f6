// Package disasm discovers and disassembles Z-Machine routines: forward
// reachability from the initial PC and call targets, plus a TXD-style
// heuristic scan of the remaining high memory for routines no static
// analysis reaches (spec.md §4.9).
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skeptomai/gruesome/internal/zcore"
	"github.com/skeptomai/gruesome/internal/zmachine"
)

// Routine is one discovered routine: its packed-address-resolved byte
// address and the decoded instructions making up its body.
type Routine struct {
	Addr         uint32
	NumLocals    uint8
	Instructions []*zmachine.Instruction
	Heuristic    bool // true if found only by the high-memory scan, not reachability
}

// Discover walks every instruction reachable from the story's initial PC,
// following call operands to find routine entry points, then scans the
// remainder of high memory for additional routine-shaped byte sequences
// (spec §4.9's two-pass discovery).
func Discover(mem *zcore.Memory) ([]*Routine, error) {
	seen := map[uint32]*Routine{}
	var queue []uint32

	visitedInstr := map[uint32]bool{}

	var walkFrom func(pc uint32)
	walkFrom = func(pc uint32) {
		for {
			if visitedInstr[pc] {
				return
			}
			inst, err := zmachine.Decode(mem, pc, mem.Version)
			if err != nil {
				return
			}
			visitedInstr[pc] = true

			if target, ok := callTarget(inst); ok && target != 0 {
				addr := mem.PackAddress(target)
				if _, ok := seen[addr]; !ok {
					if r, err := disassembleAt(mem, addr); err == nil {
						seen[addr] = r
						for _, in := range r.Instructions {
							if t, ok := callTarget(in); ok && t != 0 {
								queue = append(queue, mem.PackAddress(t))
							}
						}
					}
				}
			}

			if isUnconditionalEnd(inst) {
				return
			}
			if isUnconditionalJump(inst) {
				pc = jumpTarget(inst)
				continue
			}
			pc += inst.Length
		}
	}

	walkFrom(uint32(mem.InitialPC))
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		if _, ok := seen[addr]; !ok {
			if r, err := disassembleAt(mem, addr); err == nil {
				seen[addr] = r
			}
		}
	}

	scanHighMemory(mem, seen)

	routines := make([]*Routine, 0, len(seen))
	for _, r := range seen {
		routines = append(routines, r)
	}
	sort.Slice(routines, func(i, j int) bool { return routines[i].Addr < routines[j].Addr })
	return routines, nil
}

// disassembleAt decodes a routine's header (local count, and in v1-4 the
// local defaults) and then its body until a return-family opcode with no
// further fallthrough.
func disassembleAt(mem *zcore.Memory, addr uint32) (*Routine, error) {
	numLocals := mem.ReadByte(addr)
	if numLocals > 15 {
		return nil, fmt.Errorf("disasm: invalid routine header at 0x%05x (%d locals)", addr, numLocals)
	}
	pc := addr + 1
	if mem.Version <= 4 {
		pc += 2 * uint32(numLocals)
	}

	r := &Routine{Addr: addr, NumLocals: numLocals}
	for {
		inst, err := zmachine.Decode(mem, pc, mem.Version)
		if err != nil {
			return r, nil
		}
		r.Instructions = append(r.Instructions, inst)
		if isUnconditionalEnd(inst) {
			break
		}
		if len(r.Instructions) > 1<<16 {
			break // runaway guard; a real routine never runs this long
		}
		pc += inst.Length
	}
	return r, nil
}

func callTarget(inst *zmachine.Instruction) (uint16, bool) {
	name := callOpcodeNames[opKey{inst.OperandCount, inst.Opcode}]
	if name == "" || len(inst.Operands) == 0 {
		return 0, false
	}
	if inst.Operands[0].Type == zmachine.OperandOmitted {
		return 0, false
	}
	return inst.Operands[0].Value, true
}

type opKey struct {
	count  zmachine.OperandCount
	opcode uint8
}

var callOpcodeNames = map[opKey]string{
	{zmachine.VAR, 0x0}: "call",
	{zmachine.VAR, 0xc}: "call_vs2",
	{zmachine.OP1, 0x8}: "call_1s",
	{zmachine.OP2, 0x19}: "call_2s",
}

func isUnconditionalEnd(inst *zmachine.Instruction) bool {
	if inst.OperandCount == zmachine.OP0 {
		switch inst.Opcode {
		case 0x0, 0x1, 0x3, 0x8, 0xa: // rtrue, rfalse, print_ret, ret_popped, quit
			return true
		}
	}
	if inst.OperandCount == zmachine.OP1 && inst.Opcode == 0xb { // ret
		return true
	}
	if inst.OperandCount == zmachine.OP1 && inst.Opcode == 0xc && !inst.HasBranch {
		return true // jump ends a routine body here, so walkFrom stops at it too
	}
	return false
}

func isUnconditionalJump(inst *zmachine.Instruction) bool {
	return inst.OperandCount == zmachine.OP1 && inst.Opcode == 0xc
}

func jumpTarget(inst *zmachine.Instruction) uint32 {
	offset := int32(int16(inst.Operands[0].Value))
	return uint32(int64(inst.PC) + int64(inst.Length) + int64(offset) - 2)
}

// scanHighMemory implements the TXD-style fallback pass: starting just
// after the highest routine found by reachability, scan forward byte by
// byte looking for a plausible routine header (a locals count 0-15
// followed by decodable instructions ending in a return), adding any such
// routine as Heuristic (spec §4.9).
func scanHighMemory(mem *zcore.Memory, seen map[uint32]*Routine) {
	var maxEnd uint32
	for addr, r := range seen {
		end := addr
		for _, in := range r.Instructions {
			if in.PC+in.Length > end {
				end = in.PC + in.Length
			}
		}
		if end > maxEnd {
			maxEnd = end
		}
	}
	if maxEnd == 0 {
		maxEnd = uint32(mem.BaseHighMem)
	}

	limit := mem.Len()
	for addr := maxEnd; addr < limit; addr++ {
		if addr%2 != 0 {
			continue // routines are always at even (word) addresses
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		numLocals := mem.ReadByte(addr)
		if numLocals > 15 {
			continue
		}
		r, err := disassembleAt(mem, addr)
		if err != nil || len(r.Instructions) == 0 {
			continue
		}
		if !isUnconditionalEnd(r.Instructions[len(r.Instructions)-1]) {
			continue
		}
		r.Heuristic = true
		seen[addr] = r
	}
}

// Listing renders a routine's instructions in a gzdump-style textual form:
// address, opcode family/number, and operand values.
func Listing(r *Routine) string {
	var b strings.Builder
	tag := ""
	if r.Heuristic {
		tag = " (heuristic)"
	}
	fmt.Fprintf(&b, "routine 0x%05x, %d locals%s\n", r.Addr, r.NumLocals, tag)
	for _, inst := range r.Instructions {
		fmt.Fprintf(&b, "  %05x: %v:%-2d", inst.PC, inst.OperandCount, inst.Opcode)
		for _, op := range inst.Operands {
			fmt.Fprintf(&b, " %04x", op.Value)
		}
		if inst.HasBranch {
			fmt.Fprintf(&b, " ?%v+%d", inst.Branch.OnTrue, inst.Branch.Offset)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
