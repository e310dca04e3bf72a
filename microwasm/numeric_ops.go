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

// execNumeric handles the arithmetic, comparison, and conversion opcode
// families — everything the main switch in vm.go doesn't special-case
// structurally.
func (inst *Instance) execNumeric(op opcode) error {
	s := inst.operandStack

	switch op {

	// --- i32 comparisons ---
	case i32Eqz:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(I32Value(boolToInt32(a == 0)))
		return nil
	case i32Eq, i32Ne, i32LtS, i32LtU, i32GtS, i32GtU, i32LeS, i32LeU, i32GeS, i32GeU:
		b, err := s.popI32()
		if err != nil {
			return err
		}
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(I32Value(boolToInt32(compareI32(op, a, b))))
		return nil

	// --- i64 comparisons ---
	case i64Eqz:
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(I32Value(boolToInt32(a == 0)))
		return nil
	case i64Eq, i64Ne, i64LtS, i64LtU, i64GtS, i64GtU, i64LeS, i64LeU, i64GeS, i64GeU:
		b, err := s.popI64()
		if err != nil {
			return err
		}
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(I32Value(boolToInt32(compareI64(op, a, b))))
		return nil

	// --- f32/f64 comparisons ---
	case f32Eq, f32Ne, f32Lt, f32Gt, f32Le, f32Ge:
		b, err := s.popF32()
		if err != nil {
			return err
		}
		a, err := s.popF32()
		if err != nil {
			return err
		}
		s.push(I32Value(boolToInt32(compareF64(op, float64(a), float64(b)))))
		return nil
	case f64Eq, f64Ne, f64Lt, f64Gt, f64Le, f64Ge:
		b, err := s.popF64()
		if err != nil {
			return err
		}
		a, err := s.popF64()
		if err != nil {
			return err
		}
		s.push(I32Value(boolToInt32(compareF64(op, a, b))))
		return nil

	// --- i32 arithmetic ---
	case i32Clz:
		return unaryI32(s, clz32)
	case i32Ctz:
		return unaryI32(s, ctz32)
	case i32Popcnt:
		return unaryI32(s, popcnt32)
	case i32Add:
		return binaryI32(s, func(a, b int32) (int32, error) { return a + b, nil })
	case i32Sub:
		return binaryI32(s, func(a, b int32) (int32, error) { return a - b, nil })
	case i32Mul:
		return binaryI32(s, func(a, b int32) (int32, error) { return a * b, nil })
	case i32DivS:
		return binaryI32(s, divS32)
	case i32DivU:
		return binaryI32(s, func(a, b int32) (int32, error) {
			r, err := divU32(uint32(a), uint32(b))
			return int32(r), err
		})
	case i32RemS:
		return binaryI32(s, remS32)
	case i32RemU:
		return binaryI32(s, func(a, b int32) (int32, error) {
			r, err := remU32(uint32(a), uint32(b))
			return int32(r), err
		})
	case i32And:
		return binaryI32(s, func(a, b int32) (int32, error) { return a & b, nil })
	case i32Or:
		return binaryI32(s, func(a, b int32) (int32, error) { return a | b, nil })
	case i32Xor:
		return binaryI32(s, func(a, b int32) (int32, error) { return a ^ b, nil })
	case i32Shl:
		return binaryI32(s, func(a, b int32) (int32, error) { return shl32(a, uint32(b)), nil })
	case i32ShrS:
		return binaryI32(s, func(a, b int32) (int32, error) { return shrS32(a, uint32(b)), nil })
	case i32ShrU:
		return binaryI32(s, func(a, b int32) (int32, error) { return shrU32(a, uint32(b)), nil })
	case i32Rotl:
		return binaryI32(s, func(a, b int32) (int32, error) { return rotl32(a, uint32(b)), nil })
	case i32Rotr:
		return binaryI32(s, func(a, b int32) (int32, error) { return rotr32(a, uint32(b)), nil })

	// --- i64 arithmetic ---
	case i64Clz:
		return unaryI64(s, clz64)
	case i64Ctz:
		return unaryI64(s, ctz64)
	case i64Popcnt:
		return unaryI64(s, popcnt64)
	case i64Add:
		return binaryI64(s, func(a, b int64) (int64, error) { return a + b, nil })
	case i64Sub:
		return binaryI64(s, func(a, b int64) (int64, error) { return a - b, nil })
	case i64Mul:
		return binaryI64(s, func(a, b int64) (int64, error) { return a * b, nil })
	case i64DivS:
		return binaryI64(s, divS64)
	case i64DivU:
		return binaryI64(s, func(a, b int64) (int64, error) {
			r, err := divU64(uint64(a), uint64(b))
			return int64(r), err
		})
	case i64RemS:
		return binaryI64(s, remS64)
	case i64RemU:
		return binaryI64(s, func(a, b int64) (int64, error) {
			r, err := remU64(uint64(a), uint64(b))
			return int64(r), err
		})
	case i64And:
		return binaryI64(s, func(a, b int64) (int64, error) { return a & b, nil })
	case i64Or:
		return binaryI64(s, func(a, b int64) (int64, error) { return a | b, nil })
	case i64Xor:
		return binaryI64(s, func(a, b int64) (int64, error) { return a ^ b, nil })
	case i64Shl:
		return binaryI64(s, func(a, b int64) (int64, error) { return shl64(a, uint64(b)), nil })
	case i64ShrS:
		return binaryI64(s, func(a, b int64) (int64, error) { return shrS64(a, uint64(b)), nil })
	case i64ShrU:
		return binaryI64(s, func(a, b int64) (int64, error) { return shrU64(a, uint64(b)), nil })
	case i64Rotl:
		return binaryI64(s, func(a, b int64) (int64, error) { return rotl64(a, uint64(b)), nil })
	case i64Rotr:
		return binaryI64(s, func(a, b int64) (int64, error) { return rotr64(a, uint64(b)), nil })

	// --- f32 arithmetic ---
	case f32Abs:
		return unaryF32(s, func(f float32) float32 { return float32(math.Abs(float64(f))) })
	case f32Neg:
		return unaryF32(s, func(f float32) float32 { return -f })
	case f32Ceil:
		return unaryF32(s, func(f float32) float32 { return float32(math.Ceil(float64(f))) })
	case f32Floor:
		return unaryF32(s, func(f float32) float32 { return float32(math.Floor(float64(f))) })
	case f32Trunc:
		return unaryF32(s, func(f float32) float32 { return float32(math.Trunc(float64(f))) })
	case f32Nearest:
		return unaryF32(s, nearest32)
	case f32Sqrt:
		return unaryF32(s, func(f float32) float32 { return float32(math.Sqrt(float64(f))) })
	case f32Add:
		return binaryF32(s, func(a, b float32) float32 { return a + b })
	case f32Sub:
		return binaryF32(s, func(a, b float32) float32 { return a - b })
	case f32Mul:
		return binaryF32(s, func(a, b float32) float32 { return a * b })
	case f32Div:
		return binaryF32(s, func(a, b float32) float32 { return a / b })
	case f32Min:
		return binaryF32(s, wasmMin32)
	case f32Max:
		return binaryF32(s, wasmMax32)
	case f32Copysign:
		return binaryF32(s, func(a, b float32) float32 { return float32(math.Copysign(float64(a), float64(b))) })

	// --- f64 arithmetic ---
	case f64Abs:
		return unaryF64(s, math.Abs)
	case f64Neg:
		return unaryF64(s, func(f float64) float64 { return -f })
	case f64Ceil:
		return unaryF64(s, math.Ceil)
	case f64Floor:
		return unaryF64(s, math.Floor)
	case f64Trunc:
		return unaryF64(s, math.Trunc)
	case f64Nearest:
		return unaryF64(s, nearest64)
	case f64Sqrt:
		return unaryF64(s, math.Sqrt)
	case f64Add:
		return binaryF64(s, func(a, b float64) float64 { return a + b })
	case f64Sub:
		return binaryF64(s, func(a, b float64) float64 { return a - b })
	case f64Mul:
		return binaryF64(s, func(a, b float64) float64 { return a * b })
	case f64Div:
		return binaryF64(s, func(a, b float64) float64 { return a / b })
	case f64Min:
		return binaryF64(s, wasmMin64)
	case f64Max:
		return binaryF64(s, wasmMax64)
	case f64Copysign:
		return binaryF64(s, math.Copysign)

	// --- conversions ---
	case i32WrapI64:
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(I32Value(int32(a)))
		return nil
	case i32TruncF32S:
		return convert(s, s.popF32, func(f float32) (int32, error) { return truncToI32S(float64(f)) }, I32Value)
	case i32TruncF32U:
		return convert(s, s.popF32, func(f float32) (int32, error) { return truncToI32U(float64(f)) }, I32Value)
	case i32TruncF64S:
		return convert(s, s.popF64, truncToI32S, I32Value)
	case i32TruncF64U:
		return convert(s, s.popF64, truncToI32U, I32Value)
	case i64ExtendI32S:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(I64Value(int64(a)))
		return nil
	case i64ExtendI32U:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(I64Value(int64(uint32(a))))
		return nil
	case i64TruncF32S:
		return convert(s, s.popF32, func(f float32) (int64, error) { return truncToI64S(float64(f)) }, I64Value)
	case i64TruncF32U:
		return convert(s, s.popF32, func(f float32) (int64, error) { return truncToI64U(float64(f)) }, I64Value)
	case i64TruncF64S:
		return convert(s, s.popF64, truncToI64S, I64Value)
	case i64TruncF64U:
		return convert(s, s.popF64, truncToI64U, I64Value)
	case f32ConvertI32S:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(F32Value(float32(a)))
		return nil
	case f32ConvertI32U:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(F32Value(float32(uint32(a))))
		return nil
	case f32ConvertI64S:
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(F32Value(float32(a)))
		return nil
	case f32ConvertI64U:
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(F32Value(float32(uint64(a))))
		return nil
	case f32DemoteF64:
		a, err := s.popF64()
		if err != nil {
			return err
		}
		s.push(F32Value(float32(a)))
		return nil
	case f64ConvertI32S:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(F64Value(float64(a)))
		return nil
	case f64ConvertI32U:
		a, err := s.popI32()
		if err != nil {
			return err
		}
		s.push(F64Value(float64(uint32(a))))
		return nil
	case f64ConvertI64S:
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(F64Value(float64(a)))
		return nil
	case f64ConvertI64U:
		a, err := s.popI64()
		if err != nil {
			return err
		}
		s.push(F64Value(float64(uint64(a))))
		return nil
	case f64PromoteF32:
		a, err := s.popF32()
		if err != nil {
			return err
		}
		s.push(F64Value(float64(a)))
		return nil

	// --- reinterpretations: same bit pattern, different kind tag ---
	case i32ReinterpretF32:
		v, err := s.pop()
		if err != nil {
			return err
		}
		if v.Kind() != KindF32 {
			return newTrap(errTypeMismatch, "i32.reinterpret_f32 expects f32, got %s", v.Kind())
		}
		s.push(Value{kind: KindI32, bits: v.bits})
		return nil
	case i64ReinterpretF64:
		v, err := s.pop()
		if err != nil {
			return err
		}
		if v.Kind() != KindF64 {
			return newTrap(errTypeMismatch, "i64.reinterpret_f64 expects f64, got %s", v.Kind())
		}
		s.push(Value{kind: KindI64, bits: v.bits})
		return nil
	case f32ReinterpretI32:
		v, err := s.pop()
		if err != nil {
			return err
		}
		if v.Kind() != KindI32 {
			return newTrap(errTypeMismatch, "f32.reinterpret_i32 expects i32, got %s", v.Kind())
		}
		s.push(Value{kind: KindF32, bits: v.bits})
		return nil
	case f64ReinterpretI64:
		v, err := s.pop()
		if err != nil {
			return err
		}
		if v.Kind() != KindI64 {
			return newTrap(errTypeMismatch, "f64.reinterpret_i64 expects i64, got %s", v.Kind())
		}
		s.push(Value{kind: KindF64, bits: v.bits})
		return nil

	default:
		return newTrap(errUnimplementedOpcode, "opcode 0x%02x (%s) is not implemented", byte(op), op.mnemonic())
	}
}

func compareI32(op opcode, a, b int32) bool {
	switch op {
	case i32Eq:
		return a == b
	case i32Ne:
		return a != b
	case i32LtS:
		return a < b
	case i32LtU:
		return uint32(a) < uint32(b)
	case i32GtS:
		return a > b
	case i32GtU:
		return uint32(a) > uint32(b)
	case i32LeS:
		return a <= b
	case i32LeU:
		return uint32(a) <= uint32(b)
	case i32GeS:
		return a >= b
	case i32GeU:
		return uint32(a) >= uint32(b)
	}
	return false
}

func compareI64(op opcode, a, b int64) bool {
	switch op {
	case i64Eq:
		return a == b
	case i64Ne:
		return a != b
	case i64LtS:
		return a < b
	case i64LtU:
		return uint64(a) < uint64(b)
	case i64GtS:
		return a > b
	case i64GtU:
		return uint64(a) > uint64(b)
	case i64LeS:
		return a <= b
	case i64LeU:
		return uint64(a) <= uint64(b)
	case i64GeS:
		return a >= b
	case i64GeU:
		return uint64(a) >= uint64(b)
	}
	return false
}

func compareF64(op opcode, a, b float64) bool {
	switch op {
	case f32Eq, f64Eq:
		return a == b
	case f32Ne, f64Ne:
		return a != b
	case f32Lt, f64Lt:
		return a < b
	case f32Gt, f64Gt:
		return a > b
	case f32Le, f64Le:
		return a <= b
	case f32Ge, f64Ge:
		return a >= b
	}
	return false
}

func unaryI32(s *valueStack, f func(int32) int32) error {
	a, err := s.popI32()
	if err != nil {
		return err
	}
	s.push(I32Value(f(a)))
	return nil
}

func binaryI32(s *valueStack, f func(a, b int32) (int32, error)) error {
	b, err := s.popI32()
	if err != nil {
		return err
	}
	a, err := s.popI32()
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	s.push(I32Value(r))
	return nil
}

func unaryI64(s *valueStack, f func(int64) int64) error {
	a, err := s.popI64()
	if err != nil {
		return err
	}
	s.push(I64Value(f(a)))
	return nil
}

func binaryI64(s *valueStack, f func(a, b int64) (int64, error)) error {
	b, err := s.popI64()
	if err != nil {
		return err
	}
	a, err := s.popI64()
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	s.push(I64Value(r))
	return nil
}

func unaryF32(s *valueStack, f func(float32) float32) error {
	a, err := s.popF32()
	if err != nil {
		return err
	}
	s.push(F32Value(f(a)))
	return nil
}

func binaryF32(s *valueStack, f func(a, b float32) float32) error {
	b, err := s.popF32()
	if err != nil {
		return err
	}
	a, err := s.popF32()
	if err != nil {
		return err
	}
	s.push(F32Value(f(a, b)))
	return nil
}

func unaryF64(s *valueStack, f func(float64) float64) error {
	a, err := s.popF64()
	if err != nil {
		return err
	}
	s.push(F64Value(f(a)))
	return nil
}

func binaryF64(s *valueStack, f func(a, b float64) float64) error {
	b, err := s.popF64()
	if err != nil {
		return err
	}
	a, err := s.popF64()
	if err != nil {
		return err
	}
	s.push(F64Value(f(a, b)))
	return nil
}

// convert pops a value of source kind S via pop, converts it via f, and
// pushes the result constructed via wrap. Shared shape for the trapping
// float-to-integer trunc conversions.
func convert[S, R any](s *valueStack, pop func() (S, error), f func(S) (R, error), wrap func(R) Value) error {
	a, err := pop()
	if err != nil {
		return err
	}
	r, err := f(a)
	if err != nil {
		return err
	}
	s.push(wrap(r))
	return nil
}
