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
	"encoding/binary"
	"math"
	"testing"
)

// codeBuilder assembles raw instruction bytes for a function body by hand,
// standing in for the loader this package never imports: tests build the
// Module structs an already-decoded binary would produce.
type codeBuilder struct {
	buf []byte
}

func newCode() *codeBuilder { return &codeBuilder{} }

func (b *codeBuilder) op(o opcode) *codeBuilder {
	b.buf = append(b.buf, byte(o))
	return b
}

func (b *codeBuilder) byte(v byte) *codeBuilder {
	b.buf = append(b.buf, v)
	return b
}

func (b *codeBuilder) u32(v uint32) *codeBuilder {
	b.buf = append(b.buf, encodeULeb128(uint64(v))...)
	return b
}

func (b *codeBuilder) i32(v int32) *codeBuilder {
	b.buf = append(b.buf, encodeSLeb128(int64(v), 32)...)
	return b
}

func (b *codeBuilder) i64(v int64) *codeBuilder {
	b.buf = append(b.buf, encodeSLeb128(v, 64)...)
	return b
}

func (b *codeBuilder) f32(v float32) *codeBuilder {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], math.Float32bits(v))
	b.buf = append(b.buf, raw[:]...)
	return b
}

func (b *codeBuilder) f64(v float64) *codeBuilder {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], math.Float64bits(v))
	b.buf = append(b.buf, raw[:]...)
	return b
}

// blockType writes the empty blocktype byte (0x40), the only form this core
// accepts after a block/loop/if header.
func (b *codeBuilder) blockType() *codeBuilder { return b.byte(0x40) }

// memarg writes a load/store's (align, offset) immediate pair. align is
// ignored by the engine but still present on the wire.
func (b *codeBuilder) memarg(align, offset uint32) *codeBuilder {
	return b.u32(align).u32(offset)
}

func (b *codeBuilder) code() []byte { return b.buf }

// encodeULeb128 and encodeSLeb128 are the test-side mirror of cursor's
// decoders, used only to hand-assemble function bodies.
func encodeULeb128(v uint64) []byte {
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

func encodeSLeb128(v int64, bitWidth int) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func fnType(params, results []Kind) FunctionType {
	return FunctionType{Params: params, Results: results}
}

func i32s(n int) []Kind {
	k := make([]Kind, n)
	for i := range k {
		k[i] = KindI32
	}
	return k
}

// newTestInstance builds a single-function module (plus whatever module
// fields the caller fills in) and instantiates it, wiring the function as
// the "run" export for CallExport.
func newTestInstance(t *testing.T, fn Function, extra func(*Module)) *Instance {
	t.Helper()
	m := &Module{
		Funcs:   []Function{fn},
		Exports: []Export{{Name: "run", Kind: ExportFunc, Index: 0}},
	}
	if extra != nil {
		extra(m)
	}
	inst, err := NewInstance(m, DefaultConfig())
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	return inst
}
