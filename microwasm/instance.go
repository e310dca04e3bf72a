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

// Instance is the mutable runtime image produced by instantiating a
// Module. It is created once per run and never shared across concurrent
// executions.
type Instance struct {
	module *Module
	config Config

	memory  *Memory
	tables  []*Table
	globals []Value

	// ctrlCache holds each function's pre-indexed control map, computed
	// lazily on first invocation and reused thereafter (it depends only
	// on the function's immutable code bytes).
	ctrlCache []ctrlMap

	operandStack *valueStack
	callStack    []*frame
}

// NewInstance materializes linear memory, tables, and globals from the
// module's declared limits, data segments, element segments, and global
// initializers, per the instantiation sequence.
func NewInstance(module *Module, cfg Config) (*Instance, error) {
	inst := &Instance{
		module:       module,
		config:       cfg,
		operandStack: newValueStack(),
	}

	if len(module.Memories) > 0 {
		inst.memory = NewMemory(module.Memories[0])
	} else {
		inst.memory = NewMemory(MemoryType{})
	}

	inst.tables = make([]*Table, len(module.Tables))
	for i, tt := range module.Tables {
		inst.tables[i] = NewTable(tt)
	}

	for _, seg := range module.DataSegments {
		if seg.MemoryIndex != 0 {
			return nil, newTrap(errBadIndex, "data segment targets unsupported memory index %d", seg.MemoryIndex)
		}
		if err := inst.memory.init(seg.Offset, seg.Content); err != nil {
			return nil, err
		}
	}

	for _, seg := range module.ElementSegments {
		if int(seg.TableIndex) >= len(inst.tables) {
			return nil, newTrap(errBadIndex, "element segment targets unknown table %d", seg.TableIndex)
		}
		if err := inst.tables[seg.TableIndex].initFromSlice(seg.Offset, seg.FuncIndexes); err != nil {
			return nil, err
		}
	}

	inst.globals = make([]Value, len(module.Globals))
	for i, g := range module.Globals {
		inst.globals[i] = g.Init
	}

	inst.ctrlCache = make([]ctrlMap, len(module.Funcs))
	return inst, nil
}

// ctrlMapFor returns the pre-indexed control map for the given function,
// computing and caching it on first use.
func (inst *Instance) ctrlMapFor(funcIndex uint32) (ctrlMap, error) {
	if cm := inst.ctrlCache[funcIndex]; cm != nil {
		return cm, nil
	}
	cm, err := preIndex(inst.module.Funcs[funcIndex].Code)
	if err != nil {
		return nil, err
	}
	inst.ctrlCache[funcIndex] = cm
	return cm, nil
}

// pushFrame marshals the callee's arguments off the operand stack and
// pushes a new activation frame for funcIndex, per the frame-creation
// sequence.
func (inst *Instance) pushFrame(funcIndex uint32) error {
	if int(funcIndex) >= len(inst.module.Funcs) {
		return newTrap(errBadIndex, "function index %d out of range", funcIndex)
	}
	if inst.config.MaxCallStackDepth > 0 && len(inst.callStack) >= inst.config.MaxCallStackDepth {
		return newTrap(errCallStackOverflow, "call stack exceeds max depth %d", inst.config.MaxCallStackDepth)
	}

	fn := &inst.module.Funcs[funcIndex]
	paramCount := uint32(len(fn.Type.Params))
	params, err := inst.operandStack.popN(paramCount)
	if err != nil {
		return err
	}

	localCount := paramCount
	for _, g := range fn.Locals {
		localCount += g.Count
	}
	locals := make([]Value, localCount)
	copy(locals, params)
	idx := paramCount
	for _, g := range fn.Locals {
		for i := uint32(0); i < g.Count; i++ {
			locals[idx] = ZeroValue(g.Kind)
			idx++
		}
	}

	stackHeightOnEntry := inst.operandStack.size()
	ctrl, err := inst.ctrlMapFor(funcIndex)
	if err != nil {
		return err
	}

	fr := &frame{
		funcIndex:          funcIndex,
		fn:                 fn,
		code:               newCursor(fn.Code),
		locals:             locals,
		stackHeightOnEntry: stackHeightOnEntry,
		ctrl:               ctrl,
	}
	fr.pushLabel(label{
		kind:        labelImplicitFunction,
		stackHeight: stackHeightOnEntry,
		targetPC:    uint32(len(fn.Code)),
	})
	inst.callStack = append(inst.callStack, fr)
	return nil
}

// topFrame returns the innermost active frame.
func (inst *Instance) topFrame() *frame {
	return inst.callStack[len(inst.callStack)-1]
}

// returnFromFrame implements the shared function-return sequence used by
// both the implicit function-body `end` and an explicit `return`: pop the
// declared result count, restore the caller's stack depth, pop the frame,
// and re-push the results in declaration order.
func (inst *Instance) returnFromFrame() error {
	fr := inst.topFrame()
	resultCount := uint32(len(fr.fn.Type.Results))
	results, err := inst.operandStack.popN(resultCount)
	if err != nil {
		return newTrap(errArityMismatch, "function expects %d results: %v", resultCount, err)
	}
	if err := inst.operandStack.truncateTo(fr.stackHeightOnEntry); err != nil {
		return err
	}
	inst.callStack = inst.callStack[:len(inst.callStack)-1]
	for _, v := range results {
		inst.operandStack.push(v)
	}
	return nil
}

func (inst *Instance) getGlobal(idx uint32) (Value, error) {
	if int(idx) >= len(inst.globals) {
		return Value{}, newTrap(errBadIndex, "global index %d out of range", idx)
	}
	return inst.globals[idx], nil
}

func (inst *Instance) setGlobal(idx uint32, v Value) error {
	if int(idx) >= len(inst.globals) {
		return newTrap(errBadIndex, "global index %d out of range", idx)
	}
	inst.globals[idx] = v
	return nil
}
