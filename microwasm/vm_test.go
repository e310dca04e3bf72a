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

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustExport(t *testing.T, inst *Instance, args ...Value) []Value {
	t.Helper()
	results, err := inst.CallExport("run", args)
	require.NoError(t, err)
	return results
}

// TestIdentity covers spec §8's identity-function scenario: a single
// parameter returned unchanged.
func TestIdentity(t *testing.T) {
	fn := Function{
		Type: fnType(i32s(1), i32s(1)),
		Code: newCode().op(localGet).u32(0).op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	results := mustExport(t, inst, I32Value(42))
	require.Len(t, results, 1)
	v, err := results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(42), v)
}

// TestF64Arithmetic covers spec §8's floating-point scenario: two f64
// constants added together.
func TestF64Arithmetic(t *testing.T) {
	fn := Function{
		Type: fnType(nil, []Kind{KindF64}),
		Code: newCode().
			op(f64Const).f64(1.5).
			op(f64Const).f64(2.25).
			op(f64Add).
			op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	results := mustExport(t, inst)
	v, err := results[0].F64()
	require.NoError(t, err)
	require.Equal(t, 3.75, v)
}

// TestIfElse covers spec §8's conditional scenario. Since this core only
// accepts the empty blocktype, the if/else communicates its result through
// a local rather than the operand stack (see execEnd's truncation back to
// the if label's entry height).
func TestIfElse(t *testing.T) {
	fn := Function{
		Type:   fnType(i32s(1), i32s(1)),
		Locals: []LocalGroup{{Count: 1, Kind: KindI32}},
		Code: newCode().
			op(localGet).u32(0).
			op(ifOp).blockType().
			op(i32Const).i32(42).op(localSet).u32(1).
			op(elseOp).
			op(i32Const).i32(7).op(localSet).u32(1).
			op(end).
			op(localGet).u32(1).
			op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)

	results := mustExport(t, inst, I32Value(1))
	v, err := results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(42), v)

	results = mustExport(t, inst, I32Value(0))
	v, err = results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(7), v)
}

// TestLoopAccumulator covers spec §8's loop scenario: sum 0..n-1 via a
// block/loop pair, exercising br_if (break) and br (continue).
func TestLoopAccumulator(t *testing.T) {
	// locals: 0=n (param), 1=sum, 2=i
	fn := Function{
		Type:   fnType(i32s(1), i32s(1)),
		Locals: []LocalGroup{{Count: 2, Kind: KindI32}},
		Code: newCode().
			op(block).blockType().
			op(loop).blockType().
			op(localGet).u32(2). // i
			op(localGet).u32(0). // n
			op(i32GeS).
			op(brIf).u32(1). // break to block when i >= n
			op(localGet).u32(1).
			op(localGet).u32(2).
			op(i32Add).
			op(localSet).u32(1). // sum += i
			op(localGet).u32(2).
			op(i32Const).i32(1).
			op(i32Add).
			op(localSet).u32(2). // i++
			op(br).u32(0).       // continue loop
			op(end).             // end loop
			op(end).             // end block
			op(localGet).u32(1).
			op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	results := mustExport(t, inst, I32Value(5))
	v, err := results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(10), v) // 0+1+2+3+4
}

// TestMemoryRoundTrip covers spec §8's memory scenario: a stored value
// read back from the same address.
func TestMemoryRoundTrip(t *testing.T) {
	fn := Function{
		Type: fnType(i32s(2), i32s(1)),
		Code: newCode().
			op(localGet).u32(0). // addr
			op(localGet).u32(1). // val
			op(i32Store).memarg(0, 0).
			op(localGet).u32(0).
			op(i32Load).memarg(0, 0).
			op(end).code(),
	}
	inst := newTestInstance(t, fn, func(m *Module) {
		m.Memories = []MemoryType{{Limits: Limits{Min: 1}}}
	})
	results := mustExport(t, inst, I32Value(100), I32Value(-12345))
	v, err := results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(-12345), v)
}

// TestUnreachableTraps covers spec §8's trap scenario.
func TestUnreachableTraps(t *testing.T) {
	fn := Function{
		Type: fnType(nil, nil),
		Code: newCode().op(unreachable).op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	_, err := inst.CallExport("run", nil)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestDivSByZeroTraps(t *testing.T) {
	fn := Function{
		Type: fnType(i32s(2), i32s(1)),
		Code: newCode().op(localGet).u32(0).op(localGet).u32(1).op(i32DivS).op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	_, err := inst.CallExport("run", []Value{I32Value(1), I32Value(0)})
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestDivSOverflowTraps(t *testing.T) {
	fn := Function{
		Type: fnType(i32s(2), i32s(1)),
		Code: newCode().op(localGet).u32(0).op(localGet).u32(1).op(i32DivS).op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	_, err := inst.CallExport("run", []Value{I32Value(math.MinInt32), I32Value(-1)})
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestRemSByZeroTraps(t *testing.T) {
	fn := Function{
		Type: fnType(i32s(2), i32s(1)),
		Code: newCode().op(localGet).u32(0).op(localGet).u32(1).op(i32RemS).op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	_, err := inst.CallExport("run", []Value{I32Value(1), I32Value(0)})
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

// TestBrIfFalseIsNoop checks that a false br_if condition falls through to
// the rest of the block rather than branching: a marker local set after the
// br_if only takes effect when the branch is not taken. Since this core
// only accepts the empty blocktype, the marker is communicated via a local
// rather than left on the operand stack (a block's `end` truncates the
// stack back to its entry height, same as an if/else's).
func TestBrIfFalseIsNoop(t *testing.T) {
	fn := Function{
		Type:   fnType(nil, i32s(1)),
		Locals: []LocalGroup{{Count: 1, Kind: KindI32}},
		Code: newCode().
			op(block).blockType().
			op(i32Const).i32(0).
			op(brIf).u32(0).
			op(i32Const).i32(1).
			op(localSet).u32(0).
			op(end).
			op(localGet).u32(0).
			op(end).code(),
	}
	inst := newTestInstance(t, fn, nil)
	results := mustExport(t, inst)
	v, err := results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(1), v)
}

// TestMemoryBoundaryExact checks that a write ending exactly at the
// memory's size succeeds, and one byte past it traps.
func TestMemoryBoundaryExact(t *testing.T) {
	fn := Function{
		Type: fnType(i32s(1), nil),
		Code: newCode().
			op(localGet).u32(0).
			op(i32Const).i32(7).
			op(i32Store8).memarg(0, 0).
			op(end).code(),
	}
	inst := newTestInstance(t, fn, func(m *Module) {
		m.Memories = []MemoryType{{Limits: Limits{Min: 1}}}
	})

	_, err := inst.CallExport("run", []Value{I32Value(pageSize - 1)})
	require.NoError(t, err)

	_, err = inst.CallExport("run", []Value{I32Value(pageSize)})
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

// TestCallIndirectSignatureMismatchTraps exercises call_indirect against a
// table entry whose declared type disagrees with the call site.
func TestCallIndirectSignatureMismatchTraps(t *testing.T) {
	callee := Function{Type: fnType(i32s(1), i32s(1)), Code: newCode().op(localGet).u32(0).op(end).code()}
	caller := Function{
		Type: fnType(nil, i32s(1)),
		Code: newCode().
			op(i32Const).i32(0). // table index 0
			op(callIndirect).u32(1).u32(0). // typeIdx 1 (mismatched: callee is Types[0]), tableIdx 0
			op(end).code(),
	}
	m := &Module{
		Types:   []FunctionType{fnType(i32s(1), i32s(1)), fnType(nil, i32s(1))},
		Funcs:   []Function{callee, caller},
		Tables:  []TableType{{Limits: Limits{Min: 1}}},
		Exports: []Export{{Name: "run", Kind: ExportFunc, Index: 1}},
		ElementSegments: []ElementSegment{
			{TableIndex: 0, Offset: 0, FuncIndexes: []uint32{0}},
		},
	}
	inst, err := NewInstance(m, DefaultConfig())
	require.NoError(t, err)

	_, err = inst.CallExport("run", nil)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}
