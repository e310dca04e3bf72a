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

import "math"

// Kind identifies which of the four numeric kinds a Value holds.
type Kind uint8

const (
	KindI32 Kind = iota
	KindI64
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// ByteSize returns the storage width of the kind in bytes.
func (k Kind) ByteSize() uint32 {
	switch k {
	case KindI32, KindF32:
		return 4
	case KindI64, KindF64:
		return 8
	default:
		return 0
	}
}

// Value is a tagged union over the four WASM 1.0 numeric kinds. Every
// operand-stack slot and every local/global cell holds exactly one Value.
// Accessors assert the expected kind and trap on mismatch, per the design
// note that runtime kind checks enforce static typing in the absence of a
// validator.
type Value struct {
	kind Kind
	bits uint64
}

// I32Value constructs an i32 Value from a signed 32-bit integer.
func I32Value(v int32) Value { return Value{kind: KindI32, bits: uint64(uint32(v))} }

// I64Value constructs an i64 Value from a signed 64-bit integer.
func I64Value(v int64) Value { return Value{kind: KindI64, bits: uint64(v)} }

// F32Value constructs an f32 Value from a float32.
func F32Value(v float32) Value { return Value{kind: KindF32, bits: uint64(math.Float32bits(v))} }

// F64Value constructs an f64 Value from a float64.
func F64Value(v float64) Value { return Value{kind: KindF64, bits: math.Float64bits(v)} }

// ZeroValue returns the zero value for the given kind.
func ZeroValue(k Kind) Value {
	switch k {
	case KindI32:
		return I32Value(0)
	case KindI64:
		return I64Value(0)
	case KindF32:
		return F32Value(0)
	case KindF64:
		return F64Value(0)
	default:
		return Value{}
	}
}

// Kind reports which numeric kind this Value holds.
func (v Value) Kind() Kind { return v.kind }

// I32 returns the value as a signed 32-bit integer, trapping on kind mismatch.
func (v Value) I32() (int32, error) {
	if v.kind != KindI32 {
		return 0, newTrap(errTypeMismatch, "expected i32, got %s", v.kind)
	}
	return int32(uint32(v.bits)), nil
}

// I64 returns the value as a signed 64-bit integer, trapping on kind mismatch.
func (v Value) I64() (int64, error) {
	if v.kind != KindI64 {
		return 0, newTrap(errTypeMismatch, "expected i64, got %s", v.kind)
	}
	return int64(v.bits), nil
}

// F32 returns the value as a float32, trapping on kind mismatch.
func (v Value) F32() (float32, error) {
	if v.kind != KindF32 {
		return 0, newTrap(errTypeMismatch, "expected f32, got %s", v.kind)
	}
	return math.Float32frombits(uint32(v.bits)), nil
}

// F64 returns the value as a float64, trapping on kind mismatch.
func (v Value) F64() (float64, error) {
	if v.kind != KindF64 {
		return 0, newTrap(errTypeMismatch, "expected f64, got %s", v.kind)
	}
	return math.Float64frombits(v.bits), nil
}
