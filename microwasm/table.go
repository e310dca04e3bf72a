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

// nullFuncRef marks an empty table slot.
const nullFuncRef int32 = -1

// Table is a vector of function references, indexed by i32 for indirect
// calls. Elements hold module function indices, or nullFuncRef.
type Table struct {
	Type     TableType
	elements []int32
}

// NewTable allocates a Table of its declared initial size, all-null.
func NewTable(tt TableType) *Table {
	elements := make([]int32, tt.Limits.Min)
	for i := range elements {
		elements[i] = nullFuncRef
	}
	return &Table{Type: tt, elements: elements}
}

// Get returns the element at index, trapping on out-of-bounds.
func (t *Table) Get(index int32) (int32, error) {
	if index < 0 || index >= int32(len(t.elements)) {
		return 0, newTrap(errTableOutOfBounds, "table index %d out of range (size %d)", index, len(t.elements))
	}
	return t.elements[index], nil
}

// Size returns the number of elements in the table.
func (t *Table) Size() int32 {
	return int32(len(t.elements))
}

// initFromSlice writes funcIndexes contiguously starting at offset,
// trapping if the write would exceed the table, per instantiation step 4.
func (t *Table) initFromSlice(offset uint32, funcIndexes []uint32) error {
	end := uint64(offset) + uint64(len(funcIndexes))
	if end > uint64(t.Size()) {
		return newTrap(errTableOutOfBounds, "element segment write at %d exceeds table of size %d", offset, t.Size())
	}
	for i, fi := range funcIndexes {
		t.elements[uint64(offset)+uint64(i)] = int32(fi)
	}
	return nil
}
