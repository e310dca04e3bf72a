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

import "slices"

// FunctionType classifies the signature of a function: an ordered list of
// parameter kinds mapped to an ordered list of result kinds.
// See https://webassembly.github.io/spec/core/syntax/types.html#function-types.
type FunctionType struct {
	Params  []Kind
	Results []Kind
}

func (ft *FunctionType) Equal(other *FunctionType) bool {
	if ft == other {
		return true
	}
	if ft == nil || other == nil {
		return false
	}
	return slices.Equal(ft.Params, other.Params) && slices.Equal(ft.Results, other.Results)
}

// LocalGroup is one `(count, kind)` run of declared locals following a
// function's parameters, per the module's `pure_locals` declaration.
type LocalGroup struct {
	Count uint32
	Kind  Kind
}

// Function is a module-defined function: its type, its declared local
// groups (not including parameters), and its raw code bytes. Code is the
// instruction stream of the function body, including its own trailing
// `end` opcode (which pops the implicit function-body label and triggers
// a return).
type Function struct {
	Type   FunctionType
	Locals []LocalGroup
	Code   []byte
}

// ExportKind distinguishes what an Export's Index refers to.
type ExportKind int

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export makes a module member visible under a textual name.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Limits bounds a table or memory's size in its native unit (pages for
// memory, elements for tables). Max is nil when unbounded.
type Limits struct {
	Min uint64
	Max *uint64
}

// TableType describes a table of function references.
type TableType struct {
	Limits Limits
}

// MemoryType describes linear memory sized in 64 KiB pages.
type MemoryType struct {
	Limits Limits
}

// ElementSegment is restricted in this core to the active, table-0 form: a
// contiguous run of function indices written into a table at
// instantiation time.
type ElementSegment struct {
	TableIndex  uint32
	Offset      uint32
	FuncIndexes []uint32
}

// GlobalType describes a global cell's kind and mutability.
type GlobalType struct {
	Kind      Kind
	IsMutable bool
}

// GlobalVariable carries an already-evaluated initial Value. Producing
// that Value from a WASM constant-expression byte sequence is the loader's
// job, not the engine's.
type GlobalVariable struct {
	Type GlobalType
	Init Value
}

// DataSegment is restricted in this core to the active form: raw bytes
// copied into linear memory at a fixed offset at instantiation time.
type DataSegment struct {
	MemoryIndex uint32
	Offset      uint32
	Content     []byte
}

// Module is the already-parsed, read-only input the engine consumes. Binary
// decoding (LEB128, section walking) that produces a Module is the loader
// package's job, not the engine's; see github.com/wasmforge/microwasm/loader.
type Module struct {
	Types           []FunctionType
	Exports         []Export
	Tables          []TableType
	Memories        []MemoryType
	Funcs           []Function
	ElementSegments []ElementSegment
	Globals         []GlobalVariable
	DataSegments    []DataSegment
}

// FindExport returns the export named name with the given kind, or false
// if none matches.
func (m *Module) FindExport(name string, kind ExportKind) (Export, bool) {
	for _, e := range m.Exports {
		if e.Kind == kind && e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}
