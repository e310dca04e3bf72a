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

import "encoding/binary"

// decodeLoadedValue interprets raw little-endian bytes read from memory
// as a Value of the requested kind, applying sign/zero extension for the
// narrow load variants (i32.load8_s, i64.load16_u, and so on).
func decodeLoadedValue(kind Kind, width uint32, narrow, signed bool, raw []byte) (Value, error) {
	switch kind {
	case KindI32:
		if !narrow {
			return I32Value(int32(binary.LittleEndian.Uint32(raw))), nil
		}
		switch width {
		case 1:
			if signed {
				return I32Value(signExtend8To32(raw[0])), nil
			}
			return I32Value(zeroExtend8To32(raw[0])), nil
		case 2:
			u16 := binary.LittleEndian.Uint16(raw)
			if signed {
				return I32Value(signExtend16To32(u16)), nil
			}
			return I32Value(zeroExtend16To32(u16)), nil
		}
	case KindI64:
		if !narrow {
			return I64Value(int64(binary.LittleEndian.Uint64(raw))), nil
		}
		switch width {
		case 1:
			if signed {
				return I64Value(signExtend8To64(raw[0])), nil
			}
			return I64Value(zeroExtend8To64(raw[0])), nil
		case 2:
			u16 := binary.LittleEndian.Uint16(raw)
			if signed {
				return I64Value(signExtend16To64(u16)), nil
			}
			return I64Value(zeroExtend16To64(u16)), nil
		case 4:
			u32 := binary.LittleEndian.Uint32(raw)
			if signed {
				return I64Value(signExtend32To64(u32)), nil
			}
			return I64Value(zeroExtend32To64(u32)), nil
		}
	case KindF32:
		bits := binary.LittleEndian.Uint32(raw)
		return Value{kind: KindF32, bits: uint64(bits)}, nil
	case KindF64:
		bits := binary.LittleEndian.Uint64(raw)
		return Value{kind: KindF64, bits: bits}, nil
	}
	return Value{}, newTrap(errTypeMismatch, "unsupported load kind/width %s/%d", kind, width)
}

// encodeStoredValue produces the little-endian byte representation of v
// that a store instruction writes to memory, truncating to the narrow
// store widths (i32.store8, i64.store16, and so on).
func encodeStoredValue(kind Kind, width uint32, v Value) ([]byte, error) {
	buf := make([]byte, width)
	switch kind {
	case KindI32:
		iv, err := v.I32()
		if err != nil {
			return nil, err
		}
		switch width {
		case 1:
			buf[0] = byte(iv)
		case 2:
			binary.LittleEndian.PutUint16(buf, uint16(iv))
		case 4:
			binary.LittleEndian.PutUint32(buf, uint32(iv))
		}
	case KindI64:
		iv, err := v.I64()
		if err != nil {
			return nil, err
		}
		switch width {
		case 1:
			buf[0] = byte(iv)
		case 2:
			binary.LittleEndian.PutUint16(buf, uint16(iv))
		case 4:
			binary.LittleEndian.PutUint32(buf, uint32(iv))
		case 8:
			binary.LittleEndian.PutUint64(buf, uint64(iv))
		}
	case KindF32:
		if v.Kind() != KindF32 {
			return nil, newTrap(errTypeMismatch, "expected f32, got %s", v.Kind())
		}
		binary.LittleEndian.PutUint32(buf, uint32(v.bits))
	case KindF64:
		if v.Kind() != KindF64 {
			return nil, newTrap(errTypeMismatch, "expected f64, got %s", v.Kind())
		}
		binary.LittleEndian.PutUint64(buf, v.bits)
	}
	return buf, nil
}
