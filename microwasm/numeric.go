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
	"math/bits"
)

// divS32 implements i32.div_s: truncation toward zero, trapping on
// division by zero and on the signed-overflow case INT_MIN / -1.
func divS32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i32.div_s by zero")
	}
	if a == math.MinInt32 && b == -1 {
		return 0, newTrap(errIntegerOverflow, "i32.div_s overflow: MinInt32 / -1")
	}
	return a / b, nil
}

func divS64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i64.div_s by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, newTrap(errIntegerOverflow, "i64.div_s overflow: MinInt64 / -1")
	}
	return a / b, nil
}

func remS32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i32.rem_s by zero")
	}
	if a == math.MinInt32 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func remS64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i64.rem_s by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func divU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i32.div_u by zero")
	}
	return a / b, nil
}

func divU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i64.div_u by zero")
	}
	return a / b, nil
}

func remU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i32.rem_u by zero")
	}
	return a % b, nil
}

func remU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, newTrap(errIntegerDivideByZero, "i64.rem_u by zero")
	}
	return a % b, nil
}

// Shift amounts are taken modulo the operand width, per the spec's shift
// count interpreted modulo N rule.
func shl32(a int32, n uint32) int32  { return int32(uint32(a) << (n & 31)) }
func shrS32(a int32, n uint32) int32 { return a >> (n & 31) }
func shrU32(a int32, n uint32) int32 { return int32(uint32(a) >> (n & 31)) }
func shl64(a int64, n uint64) int64  { return int64(uint64(a) << (n & 63)) }
func shrS64(a int64, n uint64) int64 { return a >> (n & 63) }
func shrU64(a int64, n uint64) int64 { return int64(uint64(a) >> (n & 63)) }

func rotl32(a int32, n uint32) int32 { return int32(bits.RotateLeft32(uint32(a), int(n&31))) }
func rotr32(a int32, n uint32) int32 { return int32(bits.RotateLeft32(uint32(a), -int(n&31))) }
func rotl64(a int64, n uint64) int64 { return int64(bits.RotateLeft64(uint64(a), int(n&63))) }
func rotr64(a int64, n uint64) int64 { return int64(bits.RotateLeft64(uint64(a), -int(n&63))) }

func clz32(a int32) int32    { return int32(bits.LeadingZeros32(uint32(a))) }
func ctz32(a int32) int32    { return int32(bits.TrailingZeros32(uint32(a))) }
func popcnt32(a int32) int32 { return int32(bits.OnesCount32(uint32(a))) }
func clz64(a int64) int64    { return int64(bits.LeadingZeros64(uint64(a))) }
func ctz64(a int64) int64    { return int64(bits.TrailingZeros64(uint64(a))) }
func popcnt64(a int64) int64 { return int64(bits.OnesCount64(uint64(a))) }

// nearest32/64 round to the nearest integral value, ties to even, per
// IEEE-754 roundTiesToEven.
func nearest64(f float64) float64 { return math.Copysign(math.RoundToEven(f), f) }
func nearest32(f float32) float32 { return float32(nearest64(float64(f))) }

// wasmMin/wasmMax implement IEEE-754 minNum/maxNum with NaN propagation
// and the signed-zero tie-break (−0 < +0).
func wasmMin64(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return a
		}
		return b
	}
	return math.Min(a, b)
}

func wasmMax64(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return b
		}
		return a
	}
	return math.Max(a, b)
}

func wasmMin32(a, b float32) float32 { return float32(wasmMin64(float64(a), float64(b))) }
func wasmMax32(a, b float32) float32 { return float32(wasmMax64(float64(a), float64(b))) }

const (
	maxInt32Plus1  = 2147483648.0
	minInt32Float  = -2147483648.0
	maxUint32Plus1 = 4294967296.0
	maxInt64Plus1  = 9223372036854775808.0
	minInt64Float  = -9223372036854775808.0
	maxUint64Plus1 = 18446744073709551616.0
)

// truncToI32S implements i32.trunc_f64_s / i32.trunc_f32_s: truncate
// toward zero, trapping on NaN and on out-of-range magnitude.
func truncToI32S(f float64) (int32, error) {
	if math.IsNaN(f) {
		return 0, newTrap(errIntegerOverflow, "cannot convert NaN to integer")
	}
	t := math.Trunc(f)
	if t < minInt32Float || t >= maxInt32Plus1 {
		return 0, newTrap(errIntegerOverflow, "integer overflow converting %v to i32", f)
	}
	return int32(t), nil
}

func truncToI32U(f float64) (int32, error) {
	if math.IsNaN(f) {
		return 0, newTrap(errIntegerOverflow, "cannot convert NaN to integer")
	}
	t := math.Trunc(f)
	if t < 0 || t >= maxUint32Plus1 {
		return 0, newTrap(errIntegerOverflow, "integer overflow converting %v to u32", f)
	}
	return int32(uint32(t)), nil
}

func truncToI64S(f float64) (int64, error) {
	if math.IsNaN(f) {
		return 0, newTrap(errIntegerOverflow, "cannot convert NaN to integer")
	}
	t := math.Trunc(f)
	if t < minInt64Float || t >= maxInt64Plus1 {
		return 0, newTrap(errIntegerOverflow, "integer overflow converting %v to i64", f)
	}
	return int64(t), nil
}

func truncToI64U(f float64) (int64, error) {
	if math.IsNaN(f) {
		return 0, newTrap(errIntegerOverflow, "cannot convert NaN to integer")
	}
	t := math.Trunc(f)
	if t < 0 || t >= maxUint64Plus1 {
		return 0, newTrap(errIntegerOverflow, "integer overflow converting %v to u64", f)
	}
	return int64(uint64(t)), nil
}
