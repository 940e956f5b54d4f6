// Package zmachine implements the Z-Machine execution engine: instruction
// decode/dispatch, the call stack, variable access, branching, and the
// random number generator (spec.md §3, §4).
package zmachine

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/skeptomai/gruesome/internal/zcore"
	"github.com/skeptomai/gruesome/internal/zobject"
	"github.com/skeptomai/gruesome/internal/zstring"
)

// Engine is one running story. It owns the memory image, the call stack,
// the object tree and dictionary views onto that memory, and the two host
// capabilities (Display, Input) it drives during execution.
type Engine struct {
	Mem     *zcore.Memory
	Objects *zobject.Tree
	Dict    *zstring.Dictionary

	Display Display
	Input   InputSource
	Log     *log.Logger

	frames []*Frame
	pc     uint32

	rng        *rand.Rand
	rngSeeded  bool
	predictSeq []uint16 // when non-nil, random draws cycle through this deterministically (negative seed, spec §4.4)
	predictIdx int

	Quit    bool
	Restart bool

	upperWindowLines uint16
	curWindow        Window

	SaveIO SaveIO

	originalDynamicMem []byte
}

// SaveIO is the narrow capability surface for persisting and retrieving a
// save-game file, letting the engine stay free of any filesystem
// dependency (spec §4.8 Quetzal save/restore).
type SaveIO interface {
	WriteSave(data []byte) error
	ReadSave() ([]byte, error)
}

// New builds an Engine ready to run from the loaded story image starting at
// its initial program counter (spec §3: "execution begins at the header's
// initial PC").
func New(mem *zcore.Memory, display Display, input InputSource, logger *log.Logger) *Engine {
	objTree := zobject.New(mem, uint32(mem.ObjectTableBase), mem.Version, uint16(mem.AbbreviationTableBase))
	dict := zstring.Parse(mem, uint32(mem.DictionaryBase), mem.Version)

	e := &Engine{
		Mem:     mem,
		Objects: objTree,
		Dict:    dict,
		Display: display,
		Input:   input,
		Log:     logger,
		pc:      uint32(mem.InitialPC),
		rng:     rand.New(rand.NewSource(1)),
	}
	e.frames = []*Frame{{IsRoot: true}}
	e.originalDynamicMem = append([]byte(nil), mem.DynamicMemory()...)
	return e
}

func (e *Engine) currentFrame() *Frame {
	if len(e.frames) == 0 {
		return nil
	}
	return e.frames[len(e.frames)-1]
}

// Run drives the fetch-decode-execute loop until a quit opcode, an
// unrecoverable EngineError, or context cancellation (spec §3: "a host may
// implement the engine as a single function... no fibre or coroutine
// machinery is required").
func (e *Engine) Run(ctx context.Context) error {
	for !e.Quit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		inst, err := Decode(e.Mem, e.pc, e.Mem.Version)
		if err != nil {
			return e.fatalf(DecodeError, e.pc, "?", "%v", err)
		}

		if e.Log != nil {
			e.Log.Debug("exec", "pc", fmt.Sprintf("0x%05x", inst.PC), "opcode", opcodeName(inst))
		}

		e.pc += inst.Length
		if err := e.execute(ctx, inst); err != nil {
			return err
		}
	}
	return nil
}

// resolveOperand reads an operand's effective value: a constant as-is, or
// the named variable's current value (spec §4.1, "variable operand types").
func (e *Engine) resolveOperand(op Operand) uint16 {
	switch op.Type {
	case OperandVariable:
		return e.ReadVariable(uint8(op.Value))
	default:
		return op.Value
	}
}

func (e *Engine) operandValues(inst *Instruction) []uint16 {
	vals := make([]uint16, len(inst.Operands))
	for i, op := range inst.Operands {
		vals[i] = e.resolveOperand(op)
	}
	return vals
}

// ReadVariable reads variable number v: 0 pops the current frame's
// evaluation stack, 1-15 are locals, 16-255 are globals (spec §3). This is
// the "normal" read used when a variable appears as an ordinary operand.
func (e *Engine) ReadVariable(v uint8) uint16 {
	f := e.currentFrame()
	switch {
	case v == 0:
		val, ok := f.pop()
		if !ok {
			if e.Log != nil {
				e.Log.Warn("stack underflow on variable read, returning 0")
			}
			return 0
		}
		return val
	case v < 16:
		idx := int(v) - 1
		if idx >= len(f.Locals) {
			return 0
		}
		return f.Locals[idx]
	default:
		return e.readGlobal(v)
	}
}

// WriteVariable stores to variable number v: 0 pushes, 1-15 sets a local,
// 16-255 sets a global.
func (e *Engine) WriteVariable(v uint8, val uint16) {
	f := e.currentFrame()
	switch {
	case v == 0:
		f.push(val)
	case v < 16:
		idx := int(v) - 1
		if idx < len(f.Locals) {
			f.Locals[idx] = val
		}
	default:
		e.writeGlobal(v, val)
	}
}

// ReadVariableInPlace is the special-cased read used by load, inc, dec,
// inc_chk and dec_chk, all of which the official spec singles out:
// when the variable they operate on is 0 (the stack), they peek rather
// than pop (spec §4.1 note on "indirect variable reference").
func (e *Engine) ReadVariableInPlace(v uint8) uint16 {
	if v == 0 {
		val, _ := e.currentFrame().peek()
		return val
	}
	return e.ReadVariable(v)
}

// WriteVariableInPlace is ReadVariableInPlace's write-side counterpart:
// store, pull and the same indirect-reference opcodes poke the stack top in
// place instead of pushing a new value.
func (e *Engine) WriteVariableInPlace(v uint8, val uint16) {
	if v == 0 {
		f := e.currentFrame()
		if len(f.Eval) == 0 {
			f.push(val)
			return
		}
		f.Eval[len(f.Eval)-1] = val
		return
	}
	e.WriteVariable(v, val)
}

func (e *Engine) globalsTable() uint32 { return uint32(e.Mem.GlobalVariableBase) }

func (e *Engine) readGlobal(v uint8) uint16 {
	addr := e.globalsTable() + 2*uint32(v-16)
	return e.Mem.ReadWord(addr)
}

func (e *Engine) writeGlobal(v uint8, val uint16) {
	addr := e.globalsTable() + 2*uint32(v-16)
	_ = e.Mem.WriteWord(addr, val)
}

// store writes an instruction's result to its store-variable, if it has
// one.
func (e *Engine) store(inst *Instruction, val uint16) {
	if inst.HasStore {
		e.WriteVariable(inst.StoreVar, val)
	}
}

// branch implements the shared branch-taken logic: offsets 0 and 1 are the
// reserved "return false"/"return true" shortcuts (spec §4.2), anything
// else is a relative jump measured from the byte after the branch data.
func (e *Engine) branch(inst *Instruction, test bool) {
	if !inst.HasBranch {
		return
	}
	if test != inst.Branch.OnTrue {
		return
	}
	switch inst.Branch.Offset {
	case 0:
		e.doReturn(0)
	case 1:
		e.doReturn(1)
	default:
		e.pc = uint32(int64(e.pc) + int64(inst.Branch.Offset) - 2)
	}
}

// call invokes a routine at the packed address target with the given
// arguments (spec §3 "call frame", §4.3 call family). storeVar/hasStore
// describe where (if anywhere) the result should land when the routine
// returns; target==0 is the spec's special case where the call
// immediately "returns" false without entering the routine.
func (e *Engine) call(target uint16, args []uint16, hasStore bool, storeVar uint8, isInterrupt bool) error {
	if target == 0 {
		if hasStore {
			e.WriteVariable(storeVar, 0)
		}
		return nil
	}

	addr := e.Mem.PackAddress(target)
	numLocals := e.Mem.ReadByte(addr)
	if numLocals > 15 {
		return e.fatalf(InvalidCall, addr, "call", "routine header declares %d locals, max 15", numLocals)
	}

	locals := make([]uint16, numLocals)
	cursor := addr + 1
	if e.Mem.Version <= 4 {
		for i := uint8(0); i < numLocals; i++ {
			locals[i] = e.Mem.ReadWord(cursor)
			cursor += 2
		}
	}
	for i := range locals {
		if i < len(args) {
			locals[i] = args[i]
		}
	}

	frame := &Frame{
		ReturnPC:    e.pc,
		HasStore:    hasStore,
		StoreVar:    storeVar,
		Locals:      locals,
		ArgCount:    len(args),
		IsInterrupt: isInterrupt,
	}
	e.frames = append(e.frames, frame)
	e.pc = cursor
	return nil
}

// doReturn pops the current frame, resumes at its return address, and
// stores its result if the call site wanted one (spec §3 ret family).
func (e *Engine) doReturn(val uint16) {
	f := e.currentFrame()
	if len(e.frames) <= 1 {
		e.Quit = true
		return
	}
	e.frames = e.frames[:len(e.frames)-1]
	e.pc = f.ReturnPC
	if f.HasStore {
		e.WriteVariable(f.StoreVar, val)
	}
}

// Random implements the random opcode's RNG contract (spec §4.4): a
// positive range draws uniformly from [1, range]; zero reseeds from the
// host's entropy source and returns 0; a negative value returns 0 and
// switches into a predictable mode in which every later positive-range draw
// cycles through 1..-range (the PRNG itself is not reseeded). This
// predictable mode exists for regression/walkthrough testing, as the
// official spec describes.
func (e *Engine) Random(arg int16) uint16 {
	switch {
	case arg > 0:
		if e.predictSeq != nil {
			v := e.predictSeq[e.predictIdx%len(e.predictSeq)]
			e.predictIdx++
			return v
		}
		return uint16(e.rng.Intn(int(arg)) + 1)
	case arg == 0:
		e.rng = rand.New(rand.NewSource(rngSeed()))
		e.predictSeq = nil
		return 0
	default:
		n := -arg
		e.predictSeq = make([]uint16, n)
		for i := int16(0); i < n; i++ {
			e.predictSeq[i] = uint16(i + 1)
		}
		e.predictIdx = 0
		return 0
	}
}

// rngSeed supplies the seed for random's reseed-on-zero case; it draws from
// math/rand's package-level source. It is a variable so it can be replaced.
var rngSeed = func() int64 { return rand.Int63() }
