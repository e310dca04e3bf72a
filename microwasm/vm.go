// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package microwasm

// run is the main dispatch loop: it reads one opcode at a time from the
// top frame's code cursor and executes it, until the call stack empties
// (normal return) or a trap aborts execution.
func (inst *Instance) run() error {
	for len(inst.callStack) > 0 {
		fr := inst.topFrame()
		op, err := fr.code.readOpcode()
		if err != nil {
			return err
		}
		if err := inst.execute(op, fr); err != nil {
			return err
		}
	}
	return nil
}

func (inst *Instance) execute(op opcode, fr *frame) error {
	switch op {

	case nop:
		return nil
	case unreachable:
		return newTrap(errUnreachable, "unreachable instruction executed")

	// --- constants ---
	case i32Const:
		v, err := fr.code.readI32Leb()
		if err != nil {
			return err
		}
		inst.operandStack.push(I32Value(v))
		return nil
	case i64Const:
		v, err := fr.code.readI64Leb()
		if err != nil {
			return err
		}
		inst.operandStack.push(I64Value(v))
		return nil
	case f32Const:
		v, err := fr.code.readRawF32()
		if err != nil {
			return err
		}
		inst.operandStack.push(F32Value(v))
		return nil
	case f64Const:
		v, err := fr.code.readRawF64()
		if err != nil {
			return err
		}
		inst.operandStack.push(F64Value(v))
		return nil

	// --- locals / globals ---
	case localGet:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		if int(n) >= len(fr.locals) {
			return newTrap(errBadIndex, "local index %d out of range", n)
		}
		inst.operandStack.push(fr.locals[n])
		return nil
	case localSet:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		v, err := inst.operandStack.pop()
		if err != nil {
			return err
		}
		if int(n) >= len(fr.locals) {
			return newTrap(errBadIndex, "local index %d out of range", n)
		}
		fr.locals[n] = v
		return nil
	case localTee:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		v, err := inst.operandStack.pop()
		if err != nil {
			return err
		}
		if int(n) >= len(fr.locals) {
			return newTrap(errBadIndex, "local index %d out of range", n)
		}
		fr.locals[n] = v
		inst.operandStack.push(v)
		return nil
	case globalGet:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		v, err := inst.getGlobal(n)
		if err != nil {
			return err
		}
		inst.operandStack.push(v)
		return nil
	case globalSet:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		v, err := inst.operandStack.pop()
		if err != nil {
			return err
		}
		return inst.setGlobal(n, v)

	// --- drop / select ---
	case drop:
		return inst.operandStack.drop()
	case selectOp:
		cond, err := inst.operandStack.popI32()
		if err != nil {
			return err
		}
		v2, err := inst.operandStack.pop()
		if err != nil {
			return err
		}
		v1, err := inst.operandStack.pop()
		if err != nil {
			return err
		}
		if v1.Kind() != v2.Kind() {
			return newTrap(errTypeMismatch, "select operands have mismatched kinds %s/%s", v1.Kind(), v2.Kind())
		}
		if cond != 0 {
			inst.operandStack.push(v1)
		} else {
			inst.operandStack.push(v2)
		}
		return nil

	// --- structured control flow ---
	case block:
		return inst.execBlock(fr)
	case loop:
		return inst.execLoop(fr)
	case ifOp:
		return inst.execIf(fr)
	case elseOp:
		return inst.execElse(fr)
	case end:
		return inst.execEnd(fr)
	case br:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		return inst.execBranch(fr, n)
	case brIf:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		cond, err := inst.operandStack.popI32()
		if err != nil {
			return err
		}
		if cond == 0 {
			return nil
		}
		return inst.execBranch(fr, n)
	case brTable:
		return inst.execBrTable(fr)
	case returnOp:
		return inst.returnFromFrame()

	// --- calls ---
	case call:
		n, err := fr.code.readU32Leb()
		if err != nil {
			return err
		}
		return inst.pushFrame(n)
	case callIndirect:
		return inst.execCallIndirect(fr)

	// --- memory ---
	case i32Load:
		return inst.execLoad(fr, KindI32, 4, false, false)
	case i64Load:
		return inst.execLoad(fr, KindI64, 8, false, false)
	case f32Load:
		return inst.execLoad(fr, KindF32, 4, false, false)
	case f64Load:
		return inst.execLoad(fr, KindF64, 8, false, false)
	case i32Load8S:
		return inst.execLoad(fr, KindI32, 1, true, true)
	case i32Load8U:
		return inst.execLoad(fr, KindI32, 1, true, false)
	case i32Load16S:
		return inst.execLoad(fr, KindI32, 2, true, true)
	case i32Load16U:
		return inst.execLoad(fr, KindI32, 2, true, false)
	case i64Load8S:
		return inst.execLoad(fr, KindI64, 1, true, true)
	case i64Load8U:
		return inst.execLoad(fr, KindI64, 1, true, false)
	case i64Load16S:
		return inst.execLoad(fr, KindI64, 2, true, true)
	case i64Load16U:
		return inst.execLoad(fr, KindI64, 2, true, false)
	case i64Load32S:
		return inst.execLoad(fr, KindI64, 4, true, true)
	case i64Load32U:
		return inst.execLoad(fr, KindI64, 4, true, false)
	case i32Store:
		return inst.execStore(fr, KindI32, 4)
	case i64Store:
		return inst.execStore(fr, KindI64, 8)
	case f32Store:
		return inst.execStore(fr, KindF32, 4)
	case f64Store:
		return inst.execStore(fr, KindF64, 8)
	case i32Store8:
		return inst.execStore(fr, KindI32, 1)
	case i32Store16:
		return inst.execStore(fr, KindI32, 2)
	case i64Store8:
		return inst.execStore(fr, KindI64, 1)
	case i64Store16:
		return inst.execStore(fr, KindI64, 2)
	case i64Store32:
		return inst.execStore(fr, KindI64, 4)
	case memorySize:
		if _, err := fr.code.readU32Leb(); err != nil { // reserved memory index
			return err
		}
		inst.operandStack.push(I32Value(inst.memory.Size()))
		return nil
	case memoryGrow:
		if _, err := fr.code.readU32Leb(); err != nil { // reserved memory index
			return err
		}
		n, err := inst.operandStack.popI32()
		if err != nil {
			return err
		}
		inst.operandStack.push(I32Value(inst.memory.Grow(n)))
		return nil

	default:
		return inst.execNumeric(op)
	}
}

func (inst *Instance) execBlock(fr *frame) error {
	headerPC := fr.code.pc - 1
	if err := fr.code.readBlockType(); err != nil {
		return err
	}
	entry, ok := fr.ctrl[headerPC]
	if !ok {
		return newTrap(errMalformedControlFlow, "no control entry for block at %d", headerPC)
	}
	fr.pushLabel(label{kind: labelBlock, stackHeight: inst.operandStack.size(), targetPC: entry.EndPC})
	return nil
}

func (inst *Instance) execLoop(fr *frame) error {
	headerPC := fr.code.pc - 1
	if err := fr.code.readBlockType(); err != nil {
		return err
	}
	entry, ok := fr.ctrl[headerPC]
	if !ok {
		return newTrap(errMalformedControlFlow, "no control entry for loop at %d", headerPC)
	}
	fr.pushLabel(label{kind: labelLoop, stackHeight: inst.operandStack.size(), targetPC: entry.BodyPC})
	return nil
}

func (inst *Instance) execIf(fr *frame) error {
	headerPC := fr.code.pc - 1
	if err := fr.code.readBlockType(); err != nil {
		return err
	}
	entry, ok := fr.ctrl[headerPC]
	if !ok {
		return newTrap(errMalformedControlFlow, "no control entry for if at %d", headerPC)
	}
	cond, err := inst.operandStack.popI32()
	if err != nil {
		return err
	}
	fr.pushLabel(label{kind: labelIf, stackHeight: inst.operandStack.size(), targetPC: entry.EndPC})
	if cond == 0 {
		if entry.ElsePC != 0 {
			fr.code.pc = entry.ElsePC
		} else {
			fr.code.pc = entry.EndPC
		}
	}
	return nil
}

// execElse runs only when the taken (then) branch falls through into the
// `else` marker: it skips the else-body by jumping straight to the if's
// `end`. It deliberately leaves the if's label on the stack — there is one
// shared label for the whole if/then/else, and it is popped exactly once,
// by that `end`, however execution reaches it.
func (inst *Instance) execElse(fr *frame) error {
	if len(fr.labels) == 0 || fr.topLabel().kind != labelIf {
		return newTrap(errMalformedControlFlow, "else without matching if")
	}
	ifLabel := fr.topLabel()
	fr.code.pc = ifLabel.targetPC
	return inst.operandStack.truncateTo(ifLabel.stackHeight)
}

func (inst *Instance) execEnd(fr *frame) error {
	if len(fr.labels) == 0 {
		return newTrap(errMalformedControlFlow, "end without matching label")
	}
	closed := fr.topLabel()
	fr.labels = fr.labels[:len(fr.labels)-1]
	if closed.kind == labelImplicitFunction {
		return inst.returnFromFrame()
	}
	return inst.operandStack.truncateTo(closed.stackHeight)
}

// execBranch implements the shared br mechanics used by br, br_if (when
// taken), and br_table. A branch to the implicit function-body label
// returns from the frame.
func (inst *Instance) execBranch(fr *frame, labelIdx uint32) error {
	target, err := fr.branchTo(labelIdx)
	if err != nil {
		return err
	}
	if target.kind == labelImplicitFunction {
		return inst.returnFromFrame()
	}
	if err := inst.operandStack.truncateTo(target.stackHeight); err != nil {
		return err
	}
	fr.code.pc = target.targetPC
	return nil
}

func (inst *Instance) execBrTable(fr *frame) error {
	n, err := fr.code.readU32Leb()
	if err != nil {
		return err
	}
	targets := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		targets[i], err = fr.code.readU32Leb()
		if err != nil {
			return err
		}
	}
	defaultTarget, err := fr.code.readU32Leb()
	if err != nil {
		return err
	}
	idx, err := inst.operandStack.popI32()
	if err != nil {
		return err
	}
	labelIdx := defaultTarget
	if idx >= 0 && uint32(idx) < n {
		labelIdx = targets[idx]
	}
	return inst.execBranch(fr, labelIdx)
}

func (inst *Instance) execCallIndirect(fr *frame) error {
	typeIdx, err := fr.code.readU32Leb()
	if err != nil {
		return err
	}
	tableIdx, err := fr.code.readU32Leb()
	if err != nil {
		return err
	}
	elemIdx, err := inst.operandStack.popI32()
	if err != nil {
		return err
	}
	if elemIdx < 0 {
		return newTrap(errTableOutOfBounds, "negative indirect call element index %d", elemIdx)
	}
	if int(tableIdx) >= len(inst.tables) {
		return newTrap(errBadIndex, "call_indirect references unknown table %d", tableIdx)
	}
	funcIdx, err := inst.tables[tableIdx].Get(elemIdx)
	if err != nil {
		return err
	}
	if funcIdx == nullFuncRef {
		return newTrap(errIndirectCallNull, "indirect call to null table entry %d", elemIdx)
	}
	if int(funcIdx) >= len(inst.module.Funcs) || int(typeIdx) >= len(inst.module.Types) {
		return newTrap(errBadIndex, "indirect call index out of range")
	}
	callee := &inst.module.Funcs[funcIdx]
	expected := &inst.module.Types[typeIdx]
	if !callee.Type.Equal(expected) {
		return newTrap(errIndirectCallMismatch, "indirect call signature mismatch at table index %d", elemIdx)
	}
	return inst.pushFrame(uint32(funcIdx))
}

// execLoad implements the full i32/i64/f32/f64 load family, including the
// narrow signed/unsigned variants, per the memory load/store semantics.
func (inst *Instance) execLoad(fr *frame, kind Kind, width uint32, narrow, signed bool) error {
	if _, err := fr.code.readU32Leb(); err != nil { // align (ignored)
		return err
	}
	offset, err := fr.code.readU32Leb()
	if err != nil {
		return err
	}
	addr, err := inst.operandStack.popI32()
	if err != nil {
		return err
	}
	if addr < 0 {
		return newTrap(errMemoryOutOfBounds, "negative memory address %d", addr)
	}
	effectiveAddr := uint64(uint32(addr)) + uint64(offset)
	raw, err := inst.memory.get(effectiveAddr, width)
	if err != nil {
		return err
	}
	v, err := decodeLoadedValue(kind, width, narrow, signed, raw)
	if err != nil {
		return err
	}
	inst.operandStack.push(v)
	return nil
}

func (inst *Instance) execStore(fr *frame, kind Kind, width uint32) error {
	if _, err := fr.code.readU32Leb(); err != nil { // align (ignored)
		return err
	}
	offset, err := fr.code.readU32Leb()
	if err != nil {
		return err
	}
	val, err := inst.operandStack.pop()
	if err != nil {
		return err
	}
	addr, err := inst.operandStack.popI32()
	if err != nil {
		return err
	}
	if addr < 0 {
		return newTrap(errMemoryOutOfBounds, "negative memory address %d", addr)
	}
	effectiveAddr := uint64(uint32(addr)) + uint64(offset)
	raw, err := encodeStoredValue(kind, width, val)
	if err != nil {
		return err
	}
	return inst.memory.set(effectiveAddr, raw)
}
