package zmachine

import "github.com/skeptomai/gruesome/internal/quetzal"

// saveResult reports save/restore's outcome the way the instruction's own
// form expects: v3 save/restore branch on success/failure, v4+ store the
// result instead (0 failed, 1 succeeded) (spec §4.8).
func (e *Engine) saveResult(inst *Instruction, ok bool) {
	if inst.HasStore {
		e.store(inst, boolToU16(ok))
		return
	}
	e.branch(inst, ok)
}

// opSave implements the save opcode (0OP:5): serialize the engine's full
// state to a Quetzal FORM and hand it to the host's SaveIO.
func (e *Engine) opSave(inst *Instruction) error {
	state := e.captureState()
	data, err := quetzal.Write(state)
	if err != nil {
		e.saveResult(inst, false)
		return nil
	}
	if e.SaveIO == nil {
		e.saveResult(inst, false)
		return nil
	}
	if err := e.SaveIO.WriteSave(data); err != nil {
		e.saveResult(inst, false)
		return nil
	}
	e.saveResult(inst, true)
	return nil
}

// opRestore implements restore (0OP:6): on success, the engine's memory,
// call stack and PC are replaced wholesale and execution resumes from the
// saved PC — the restore instruction's own result (branch in v3, store in
// v4+) is only produced on failure (spec §4.8, testable property S3).
func (e *Engine) opRestore(inst *Instruction) error {
	if e.SaveIO == nil {
		e.saveResult(inst, false)
		return nil
	}
	data, err := e.SaveIO.ReadSave()
	if err != nil {
		e.saveResult(inst, false)
		return nil
	}
	state, err := quetzal.Read(data, e.originalDynamicMem)
	if err != nil {
		if e.Log != nil {
			e.Log.Error("restore failed", "err", err)
		}
		e.saveResult(inst, false)
		return nil
	}
	if state.Release != e.Mem.ReleaseNumber || state.Serial != e.Mem.SerialNumber || state.Checksum != e.Mem.FileChecksum {
		e.saveResult(inst, false)
		return nil
	}
	e.applyState(state)
	return nil
}

// captureState snapshots the engine into quetzal's serializable shape.
func (e *Engine) captureState() *quetzal.SaveState {
	frames := make([]quetzal.Frame, len(e.frames))
	for i, f := range e.frames {
		frames[i] = quetzal.Frame{
			ReturnPC: f.ReturnPC,
			HasStore: f.HasStore,
			StoreVar: f.StoreVar,
			ArgCount: f.ArgCount,
			Locals:   append([]uint16(nil), f.Locals...),
			Eval:     append([]uint16(nil), f.Eval...),
		}
	}
	return &quetzal.SaveState{
		Release:     e.Mem.ReleaseNumber,
		Serial:      e.Mem.SerialNumber,
		Checksum:    e.Mem.FileChecksum,
		PC:          e.pc,
		Frames:      frames,
		DynamicMem:  append([]byte(nil), e.Mem.DynamicMemory()...),
		OriginalMem: e.originalDynamicMem,
	}
}

// applyState restores dynamic memory, the call stack and PC from a
// deserialized SaveState.
func (e *Engine) applyState(state *quetzal.SaveState) {
	e.Mem.RestoreDynamicMemory(state.DynamicMem)

	e.frames = make([]*Frame, len(state.Frames))
	for i, f := range state.Frames {
		e.frames[i] = &Frame{
			ReturnPC: f.ReturnPC,
			HasStore: f.HasStore,
			StoreVar: f.StoreVar,
			ArgCount: f.ArgCount,
			Locals:   append([]uint16(nil), f.Locals...),
			Eval:     append([]uint16(nil), f.Eval...),
			IsRoot:   i == 0,
		}
	}
	e.pc = state.PC
}

// SaveUndo and RestoreUndo give a host UI an in-memory undo slot without
// going through SaveIO, grounded on the same capture/apply machinery (the
// official spec's save_undo/restore_undo, exposed here for a host to wire
// to a single "undo" key rather than a full file dialog).
type UndoSlot struct {
	state *quetzal.SaveState
}

func (e *Engine) SaveUndo() *UndoSlot {
	return &UndoSlot{state: e.captureState()}
}

func (e *Engine) RestoreUndo(slot *UndoSlot) bool {
	if slot == nil || slot.state == nil {
		return false
	}
	e.applyState(slot.state)
	return true
}
