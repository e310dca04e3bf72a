// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package microwasm

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	continuationBit = 0x80
	payloadMask     = 0x7F
	signBit         = 0x40

	maxLebBytes32 = 5
	maxLebBytes64 = 10
)

var (
	errIntRepresentationTooLong = errors.New("integer representation too long")
	errIntegerTooLarge          = errors.New("integer too large")
	errCursorOutOfBounds        = errors.New("code cursor read past end of function body")
)

// cursor is a bounded reader over a function's raw code bytes. It is the
// decoding primitive both the pre-indexer and the dispatcher use to read
// opcodes and their immediates.
type cursor struct {
	code []byte
	pc   uint32
}

func newCursor(code []byte) *cursor { return &cursor{code: code} }

func (c *cursor) atEnd() bool { return int(c.pc) >= len(c.code) }

func (c *cursor) readByte() (byte, error) {
	if int(c.pc) >= len(c.code) {
		return 0, errCursorOutOfBounds
	}
	b := c.code[c.pc]
	c.pc++
	return b, nil
}

func (c *cursor) readOpcode() (opcode, error) {
	b, err := c.readByte()
	return opcode(b), err
}

// readUleb128 decodes an unsigned LEB128 integer, bounded to maxBytes.
func (c *cursor) readUleb128(maxBytes int) (uint64, error) {
	var result uint64
	var shift uint
	bytesRead := 0

	for {
		b, err := c.readByte()
		if err != nil {
			return 0, err
		}
		bytesRead++
		if bytesRead > maxBytes {
			return 0, errIntRepresentationTooLong
		}

		result |= uint64(b&payloadMask) << shift

		if (b & continuationBit) == 0 {
			return result, nil
		}
		shift += 7
	}
}

// readSleb128 decodes a signed LEB128 integer, bounded to maxBytes.
func (c *cursor) readSleb128(maxBytes int) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	bytesRead := 0

	for {
		b, err = c.readByte()
		if err != nil {
			return 0, err
		}
		bytesRead++
		if bytesRead > maxBytes {
			return 0, errIntRepresentationTooLong
		}

		if bytesRead == maxLebBytes64 {
			sign := b & 1
			remainingBits := (b & 0x7E) >> 1
			if sign == 0 && remainingBits != 0 {
				return 0, errIntegerTooLarge
			} else if sign == 1 && remainingBits != 0x3F {
				return 0, errIntegerTooLarge
			}
		}

		result |= int64(b&payloadMask) << shift

		if (b & continuationBit) == 0 {
			break
		}
		shift += 7
	}

	if shift < 64 && (b&signBit) != 0 {
		result |= -1 << (shift + 7)
	}

	return result, nil
}

func (c *cursor) readU32Leb() (uint32, error) {
	v, err := c.readUleb128(maxLebBytes32)
	return uint32(v), err
}

func (c *cursor) readI32Leb() (int32, error) {
	v, err := c.readSleb128(maxLebBytes32)
	return int32(v), err
}

func (c *cursor) readI64Leb() (int64, error) {
	return c.readSleb128(maxLebBytes64)
}

// readRawF32 reads 4 raw little-endian bytes and reinterprets them as an
// IEEE-754 binary32, per the constants' wire format and the little-endian
// requirement on raw floating-point immediates.
func (c *cursor) readRawF32() (float32, error) {
	if int(c.pc)+4 > len(c.code) {
		return 0, errCursorOutOfBounds
	}
	bits := binary.LittleEndian.Uint32(c.code[c.pc : c.pc+4])
	c.pc += 4
	return math.Float32frombits(bits), nil
}

// readRawF64 reads 8 raw little-endian bytes and reinterprets them as an
// IEEE-754 binary64.
func (c *cursor) readRawF64() (float64, error) {
	if int(c.pc)+8 > len(c.code) {
		return 0, errCursorOutOfBounds
	}
	bits := binary.LittleEndian.Uint64(c.code[c.pc : c.pc+8])
	c.pc += 8
	return math.Float64frombits(bits), nil
}

// readBlockType reads the blocktype byte that follows every block/loop/if
// header. Only 0x40 (empty result type) is accepted in this core; any
// other value is a trap at pre-index time.
func (c *cursor) readBlockType() error {
	b, err := c.readByte()
	if err != nil {
		return err
	}
	if b != 0x40 {
		return newTrap(errInvalidBlockType, "blocktype byte 0x%02x is not supported", b)
	}
	return nil
}
