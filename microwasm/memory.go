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

const (
	// pageSize is the size of a WebAssembly page in bytes (64 KiB).
	pageSize = 65536
)

// Memory is a linear memory instance: a contiguous byte array sized in
// 64 KiB pages, addressable by i32 offset. This core does not observe
// memory.grow beyond reporting failure (-1); size is fixed at
// instantiation time.
type Memory struct {
	Limits Limits
	data   []byte
}

// NewMemory allocates a zeroed Memory of its declared initial size.
func NewMemory(memType MemoryType) *Memory {
	return &Memory{
		Limits: memType.Limits,
		data:   make([]byte, memType.Limits.Min*pageSize),
	}
}

// Size returns the memory's size in pages.
func (m *Memory) Size() int32 {
	return int32(len(m.data) / pageSize)
}

// Grow always reports failure: this core does not implement observable
// memory growth (spec Non-goals), so memory.grow is accepted by the
// dispatcher but never succeeds.
func (m *Memory) Grow(int32) int32 {
	return -1
}

func (m *Memory) bytesSize() uint64 {
	return uint64(len(m.data))
}

// set writes values into memory at the effective address (offset+index),
// trapping if the write exceeds the memory's bounds.
func (m *Memory) set(effectiveAddr uint64, values []byte) error {
	if effectiveAddr+uint64(len(values)) > m.bytesSize() {
		return newTrap(errMemoryOutOfBounds, "write of %d bytes at 0x%x exceeds memory of size %d", len(values), effectiveAddr, m.bytesSize())
	}
	copy(m.data[effectiveAddr:], values)
	return nil
}

// get reads length bytes starting at the effective address, trapping if
// the read exceeds the memory's bounds.
func (m *Memory) get(effectiveAddr uint64, length uint32) ([]byte, error) {
	end := effectiveAddr + uint64(length)
	if end > m.bytesSize() {
		return nil, newTrap(errMemoryOutOfBounds, "read of %d bytes at 0x%x exceeds memory of size %d", length, effectiveAddr, m.bytesSize())
	}
	return m.data[effectiveAddr:end], nil
}

// init copies a data segment's content into memory at destOffset,
// trapping if the copy exceeds the memory's bounds, per instantiation
// step 3.
func (m *Memory) init(destOffset uint32, content []byte) error {
	end := uint64(destOffset) + uint64(len(content))
	if end > m.bytesSize() {
		return newTrap(errMemoryOutOfBounds, "data segment write at 0x%x exceeds memory of size %d", destOffset, m.bytesSize())
	}
	copy(m.data[destOffset:], content)
	return nil
}
