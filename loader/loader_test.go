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

package loader_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmforge/microwasm/loader"
	"github.com/wasmforge/microwasm/microwasm"
)

// moduleBuilder hand-assembles a binary .wasm module byte-for-byte, the way
// a real toolchain's wire output would look, for exercising the Loader
// end-to-end without a WAT front end.
type moduleBuilder struct {
	sections []byte
}

func newModule() *moduleBuilder { return &moduleBuilder{} }

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func (m *moduleBuilder) section(id byte, payload []byte) *moduleBuilder {
	m.sections = append(m.sections, id)
	m.sections = append(m.sections, uleb(uint64(len(payload)))...)
	m.sections = append(m.sections, payload...)
	return m
}

func vector(items ...[]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func (m *moduleBuilder) bytes() []byte {
	header := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	return append(append([]byte{}, header...), m.sections...)
}

const (
	sectionType     = 1
	sectionFunction = 3
	sectionTable    = 4
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionElement  = 9
	sectionCode     = 10
	sectionData     = 11
)

// funcType encodes a `(param...) -> (result...)` signature, restricted to
// i32/i64/f32/f64 (0x7F/0x7E/0x7D/0x7C), the only value types this core
// supports.
func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, vector(byteItems(params)...)...)
	out = append(out, vector(byteItems(results)...)...)
	return out
}

func byteItems(bs []byte) [][]byte {
	items := make([][]byte, len(bs))
	for i, b := range bs {
		items[i] = []byte{b}
	}
	return items
}

// identityModuleBytes builds a module exporting a single function "main"
// that returns its i32 argument unchanged: local.get 0; end.
func identityModuleBytes() []byte {
	typeSection := vector(funcType([]byte{0x7F}, []byte{0x7F}))
	functionSection := vector(uleb(0)) // one function, using type index 0
	body := append(uleb(0), 0x20, 0x00, 0x0B) // no locals; local.get 0; end
	codeSection := vector(append(uleb(uint64(len(body))), body...))
	exportName := append(uleb(4), []byte("main")...)
	exportEntry := append(append(exportName, 0x00), 0x00) // kind=func, index=0
	exportSection := vector(exportEntry)

	return newModule().
		section(sectionType, typeSection).
		section(sectionFunction, functionSection).
		section(sectionExport, exportSection).
		section(sectionCode, codeSection).
		bytes()
}

func TestLoadIdentityModule(t *testing.T) {
	module, err := loader.Load(bytes.NewReader(identityModuleBytes()))
	require.NoError(t, err)
	require.Len(t, module.Funcs, 1)
	require.Equal(t, []microwasm.Kind{microwasm.KindI32}, module.Funcs[0].Type.Params)
	require.Equal(t, []microwasm.Kind{microwasm.KindI32}, module.Funcs[0].Type.Results)

	export, ok := module.FindExport("main", microwasm.ExportFunc)
	require.True(t, ok)
	require.EqualValues(t, 0, export.Index)

	rt := microwasm.NewRuntime()
	inst, err := rt.Instantiate(module)
	require.NoError(t, err)

	results, err := inst.CallExport("main", []microwasm.Value{microwasm.I32Value(7)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	v, err := results[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(7), v)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	bad := append([]byte{}, identityModuleBytes()...)
	bad[0] = 0xFF
	_, err := loader.Load(bytes.NewReader(bad))
	require.Error(t, err)
}

func TestLoadRejectsImportSection(t *testing.T) {
	raw := newModule().section(2 /* import */, []byte{0x00}).bytes()
	_, err := loader.Load(bytes.NewReader(raw))
	require.Error(t, err)
}

// TestLoadMemoryAndDataSegment exercises the memory/data-segment path,
// including the constant-expression offset grammar.
func TestLoadMemoryAndDataSegment(t *testing.T) {
	memorySection := vector(append([]byte{0x00}, uleb(1)...)) // flags=0 (min only), min=1 page
	offsetExpr := append(append([]byte{0x41}, uleb(0)...), 0x0B) // i32.const 0; end
	content := []byte("hi")
	dataEntry := append(append(append(uleb(0), offsetExpr...), uleb(uint64(len(content)))...), content...)
	dataSection := vector(dataEntry)

	raw := newModule().
		section(sectionMemory, memorySection).
		section(sectionData, dataSection).
		bytes()

	module, err := loader.Load(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, module.Memories, 1)
	require.EqualValues(t, 1, module.Memories[0].Limits.Min)
	require.Len(t, module.DataSegments, 1)
	require.Equal(t, []byte("hi"), module.DataSegments[0].Content)
}
