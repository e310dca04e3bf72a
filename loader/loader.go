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

// Package loader decodes the binary WASM module format into the
// microwasm.Module the engine consumes. It is a one-directional
// collaborator: loader imports microwasm, never the other way around, so
// the engine stays a dependency-free library usable without ever touching
// a byte-level format.
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/wasmforge/microwasm/microwasm"
)

const (
	wasmMagicNumber      = "\x00asm"
	supportedWasmVersion = 1
)

// Opcode bytes this package needs to recognize in constant expressions and
// function-body termination. The engine owns the full opcode set; the
// loader only ever needs to tell a const instruction from `end`.
const (
	opEnd      = 0x0B
	opI32Const = 0x41
	opI64Const = 0x42
	opF32Const = 0x43
	opF64Const = 0x44
)

// sectionID identifies one of the binary format's top-level sections.
type sectionID byte

const (
	customSection sectionID = iota
	typeSection
	importSection
	functionSection
	tableSection
	memorySection
	globalSection
	exportSection
	startSection
	elementSection
	codeSection
	dataSection
	dataCountSection
)

// Loader decodes a binary .wasm module into a microwasm.Module, evaluating
// the constant-expression grammar for global initializers and segment
// offsets eagerly so the engine never has to interpret expressions outside
// of a function body.
type Loader struct {
	r *bufio.Reader
}

// New constructs a Loader reading from r.
func New(r io.Reader) *Loader {
	return &Loader{r: bufio.NewReader(r)}
}

// Load decodes a module from r, a convenience wrapper over New for
// one-shot use.
func Load(r io.Reader) (*microwasm.Module, error) {
	return New(r).Load()
}

// Load parses the complete module.
func (l *Loader) Load() (*microwasm.Module, error) {
	if err := l.readHeader(); err != nil {
		return nil, err
	}

	var types []microwasm.FunctionType
	var funcTypeIndexes []uint32
	var exports []microwasm.Export
	var tables []microwasm.TableType
	var memories []microwasm.MemoryType
	var rawFuncs []rawFunction
	var elementSegments []microwasm.ElementSegment
	var globals []microwasm.GlobalVariable
	var dataSegments []microwasm.DataSegment
	var dataCount *uint64

	for {
		idByte, err := l.r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: reading section id: %w", err)
		}
		payloadLen, err := l.readU32()
		if err != nil {
			return nil, fmt.Errorf("loader: reading section length: %w", err)
		}

		switch sectionID(idByte) {
		case customSection:
			if _, err := io.CopyN(io.Discard, l.r, int64(payloadLen)); err != nil {
				return nil, fmt.Errorf("loader: skipping custom section: %w", err)
			}
		case typeSection:
			if types, err = readVector(l, l.readFunctionType); err != nil {
				return nil, err
			}
		case importSection:
			return nil, fmt.Errorf("loader: imports are not supported")
		case functionSection:
			if funcTypeIndexes, err = readVector(l, l.readU32); err != nil {
				return nil, err
			}
		case tableSection:
			if tables, err = readVector(l, l.readTableType); err != nil {
				return nil, err
			}
		case memorySection:
			if memories, err = readVector(l, l.readMemoryType); err != nil {
				return nil, err
			}
		case globalSection:
			if globals, err = readVector(l, l.readGlobalVariable); err != nil {
				return nil, err
			}
		case exportSection:
			if exports, err = readVector(l, l.readExport); err != nil {
				return nil, err
			}
		case startSection:
			if _, err := l.readU32(); err != nil {
				return nil, err
			}
		case elementSection:
			if elementSegments, err = readVector(l, l.readElementSegment); err != nil {
				return nil, err
			}
		case codeSection:
			if rawFuncs, err = readVector(l, l.readRawFunction); err != nil {
				return nil, err
			}
		case dataSection:
			if dataSegments, err = readVector(l, l.readDataSegment); err != nil {
				return nil, err
			}
		case dataCountSection:
			count, err := l.readU32()
			if err != nil {
				return nil, err
			}
			c := uint64(count)
			dataCount = &c
		default:
			return nil, fmt.Errorf("loader: unsupported section id %d", idByte)
		}
	}

	if dataCount != nil && *dataCount != uint64(len(dataSegments)) {
		return nil, fmt.Errorf("loader: data count does not match number of data segments")
	}
	if len(funcTypeIndexes) != len(rawFuncs) {
		return nil, fmt.Errorf("loader: function section/code section length mismatch")
	}

	funcs := make([]microwasm.Function, len(rawFuncs))
	for i, rf := range rawFuncs {
		if int(funcTypeIndexes[i]) >= len(types) {
			return nil, fmt.Errorf("loader: function %d references unknown type %d", i, funcTypeIndexes[i])
		}
		funcs[i] = microwasm.Function{Type: types[funcTypeIndexes[i]], Locals: rf.locals, Code: rf.code}
	}

	return &microwasm.Module{
		Types:           types,
		Exports:         exports,
		Tables:          tables,
		Memories:        memories,
		Funcs:           funcs,
		ElementSegments: elementSegments,
		Globals:         globals,
		DataSegments:    dataSegments,
	}, nil
}

func (l *Loader) readHeader() error {
	header := make([]byte, 8)
	if _, err := io.ReadFull(l.r, header); err != nil {
		return fmt.Errorf("loader: file too short for a WASM header: %w", err)
	}
	if !bytes.HasPrefix(header, []byte(wasmMagicNumber)) {
		return fmt.Errorf("loader: missing WASM magic number")
	}
	version := uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16 | uint32(header[7])<<24
	if version != supportedWasmVersion {
		return fmt.Errorf("loader: unsupported WASM version %d", version)
	}
	return nil
}

type rawFunction struct {
	locals []microwasm.LocalGroup
	code   []byte
}

func (l *Loader) readRawFunction() (rawFunction, error) {
	size, err := l.readU32()
	if err != nil {
		return rawFunction{}, err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(l.r, body); err != nil {
		return rawFunction{}, fmt.Errorf("loader: reading function body: %w", err)
	}
	br := &Loader{r: bufio.NewReader(bytes.NewReader(body))}

	locals, err := readVector(br, br.readLocalGroup)
	if err != nil {
		return rawFunction{}, fmt.Errorf("loader: reading locals: %w", err)
	}
	code, err := io.ReadAll(br.r)
	if err != nil {
		return rawFunction{}, err
	}
	if len(code) == 0 || code[len(code)-1] != opEnd {
		return rawFunction{}, fmt.Errorf("loader: function body must end with the end opcode")
	}
	return rawFunction{locals: locals, code: code}, nil
}

func (l *Loader) readLocalGroup() (microwasm.LocalGroup, error) {
	count, err := l.readU32()
	if err != nil {
		return microwasm.LocalGroup{}, err
	}
	kind, err := l.readValueKind()
	if err != nil {
		return microwasm.LocalGroup{}, err
	}
	return microwasm.LocalGroup{Count: count, Kind: kind}, nil
}

func (l *Loader) readFunctionType() (microwasm.FunctionType, error) {
	b, err := l.r.ReadByte()
	if err != nil {
		return microwasm.FunctionType{}, err
	}
	if b != 0x60 {
		return microwasm.FunctionType{}, fmt.Errorf("loader: invalid function type prefix 0x%02x", b)
	}
	params, err := readVector(l, l.readValueKind)
	if err != nil {
		return microwasm.FunctionType{}, fmt.Errorf("loader: reading param types: %w", err)
	}
	results, err := readVector(l, l.readValueKind)
	if err != nil {
		return microwasm.FunctionType{}, fmt.Errorf("loader: reading result types: %w", err)
	}
	return microwasm.FunctionType{Params: params, Results: results}, nil
}

// readValueKind maps a binary value-type byte onto a Kind, rejecting the
// vector and reference types this core does not implement (SIMD and
// multi-table reference types are explicit non-goals).
func (l *Loader) readValueKind() (microwasm.Kind, error) {
	b, err := l.r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0x7F:
		return microwasm.KindI32, nil
	case 0x7E:
		return microwasm.KindI64, nil
	case 0x7D:
		return microwasm.KindF32, nil
	case 0x7C:
		return microwasm.KindF64, nil
	default:
		return 0, fmt.Errorf("loader: unsupported value type 0x%02x", b)
	}
}

func (l *Loader) readTableType() (microwasm.TableType, error) {
	b, err := l.r.ReadByte()
	if err != nil {
		return microwasm.TableType{}, err
	}
	if b != 0x70 {
		return microwasm.TableType{}, fmt.Errorf("loader: unsupported reference type 0x%02x", b)
	}
	limits, err := l.readLimits()
	if err != nil {
		return microwasm.TableType{}, err
	}
	return microwasm.TableType{Limits: limits}, nil
}

func (l *Loader) readMemoryType() (microwasm.MemoryType, error) {
	limits, err := l.readLimits()
	if err != nil {
		return microwasm.MemoryType{}, err
	}
	return microwasm.MemoryType{Limits: limits}, nil
}

func (l *Loader) readLimits() (microwasm.Limits, error) {
	b, err := l.r.ReadByte()
	if err != nil {
		return microwasm.Limits{}, err
	}
	min, err := l.readU64()
	if err != nil {
		return microwasm.Limits{}, err
	}
	switch b {
	case 0:
		return microwasm.Limits{Min: min}, nil
	case 1:
		max, err := l.readU64()
		if err != nil {
			return microwasm.Limits{}, err
		}
		return microwasm.Limits{Min: min, Max: &max}, nil
	default:
		return microwasm.Limits{}, fmt.Errorf("loader: invalid limits flag 0x%02x", b)
	}
}

func (l *Loader) readGlobalVariable() (microwasm.GlobalVariable, error) {
	kind, err := l.readValueKind()
	if err != nil {
		return microwasm.GlobalVariable{}, err
	}
	mutByte, err := l.r.ReadByte()
	if err != nil {
		return microwasm.GlobalVariable{}, err
	}
	if mutByte != 0 && mutByte != 1 {
		return microwasm.GlobalVariable{}, fmt.Errorf("loader: invalid global mutability flag")
	}
	init, err := l.readConstExpr(kind)
	if err != nil {
		return microwasm.GlobalVariable{}, err
	}
	return microwasm.GlobalVariable{Type: microwasm.GlobalType{Kind: kind, IsMutable: mutByte == 1}, Init: init}, nil
}

func (l *Loader) readExport() (microwasm.Export, error) {
	name, err := l.readUtf8String()
	if err != nil {
		return microwasm.Export{}, err
	}
	kindByte, err := l.r.ReadByte()
	if err != nil {
		return microwasm.Export{}, err
	}
	index, err := l.readU32()
	if err != nil {
		return microwasm.Export{}, err
	}
	kind, err := exportKindFromByte(kindByte)
	if err != nil {
		return microwasm.Export{}, err
	}
	return microwasm.Export{Name: name, Kind: kind, Index: index}, nil
}

func exportKindFromByte(b byte) (microwasm.ExportKind, error) {
	switch b {
	case 0x00:
		return microwasm.ExportFunc, nil
	case 0x01:
		return microwasm.ExportTable, nil
	case 0x02:
		return microwasm.ExportMemory, nil
	case 0x03:
		return microwasm.ExportGlobal, nil
	default:
		return 0, fmt.Errorf("loader: invalid export kind 0x%02x", b)
	}
}

func (l *Loader) readDataSegment() (microwasm.DataSegment, error) {
	mode, err := l.readU32()
	if err != nil {
		return microwasm.DataSegment{}, err
	}
	if mode&1 != 0 {
		return microwasm.DataSegment{}, fmt.Errorf("loader: passive data segments are not supported")
	}
	memoryIndex := uint32(0)
	if mode != 0 {
		memoryIndex, err = l.readU32()
		if err != nil {
			return microwasm.DataSegment{}, err
		}
	}
	offset, err := l.readConstExprOffset()
	if err != nil {
		return microwasm.DataSegment{}, err
	}
	content, err := readVector(l, l.r.ReadByte)
	if err != nil {
		return microwasm.DataSegment{}, err
	}
	return microwasm.DataSegment{MemoryIndex: memoryIndex, Offset: offset, Content: content}, nil
}

func (l *Loader) readElementSegment() (microwasm.ElementSegment, error) {
	flags, err := l.readU32()
	if err != nil {
		return microwasm.ElementSegment{}, fmt.Errorf("loader: reading element segment flags: %w", err)
	}
	if flags != 0 {
		return microwasm.ElementSegment{}, fmt.Errorf("loader: only active, table-0 element segments are supported (flags=%d)", flags)
	}
	offset, err := l.readConstExprOffset()
	if err != nil {
		return microwasm.ElementSegment{}, err
	}
	indexes, err := readVector(l, l.readU32)
	if err != nil {
		return microwasm.ElementSegment{}, err
	}
	return microwasm.ElementSegment{TableIndex: 0, Offset: offset, FuncIndexes: indexes}, nil
}

// readConstExprOffset reads a constant i32 expression used as a table or
// memory offset, per the binary format's restriction that segment offsets
// are always i32.
func (l *Loader) readConstExprOffset() (uint32, error) {
	v, err := l.readConstExpr(microwasm.KindI32)
	if err != nil {
		return 0, err
	}
	n, err := v.I32()
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// readConstExpr evaluates the tiny constant-expression grammar used for
// global initializers and segment offsets: a single const instruction of
// the expected kind followed by end. global.get is intentionally not
// supported since this core does not implement imports.
func (l *Loader) readConstExpr(want microwasm.Kind) (microwasm.Value, error) {
	op, err := l.r.ReadByte()
	if err != nil {
		return microwasm.Value{}, err
	}
	var v microwasm.Value
	switch op {
	case opI32Const:
		n, err := l.readSleb(32)
		if err != nil {
			return microwasm.Value{}, err
		}
		v = microwasm.I32Value(int32(n))
	case opI64Const:
		n, err := l.readSleb(64)
		if err != nil {
			return microwasm.Value{}, err
		}
		v = microwasm.I64Value(n)
	case opF32Const:
		var raw [4]byte
		if _, err := io.ReadFull(l.r, raw[:]); err != nil {
			return microwasm.Value{}, err
		}
		v = microwasm.F32Value(math.Float32frombits(leU32(raw[:])))
	case opF64Const:
		var raw [8]byte
		if _, err := io.ReadFull(l.r, raw[:]); err != nil {
			return microwasm.Value{}, err
		}
		v = microwasm.F64Value(math.Float64frombits(leU64(raw[:])))
	default:
		return microwasm.Value{}, fmt.Errorf("loader: unsupported constant expression opcode 0x%02x", op)
	}
	if v.Kind() != want {
		return microwasm.Value{}, fmt.Errorf("loader: constant expression kind mismatch: expected %s, got %s", want, v.Kind())
	}
	endByte, err := l.r.ReadByte()
	if err != nil {
		return microwasm.Value{}, err
	}
	if endByte != opEnd {
		return microwasm.Value{}, fmt.Errorf("loader: constant expression must be a single instruction terminated by end")
	}
	return v, nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func readVector[T any](l *Loader, read func() (T, error)) ([]T, error) {
	count, err := l.readU32()
	if err != nil {
		return nil, err
	}
	items := make([]T, count)
	for i := range items {
		v, err := read()
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func (l *Loader) readUtf8String() (string, error) {
	n, err := l.readU32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(l.r, buf); err != nil {
		return "", fmt.Errorf("loader: reading string bytes: %w", err)
	}
	return string(buf), nil
}

// readU32 reads an unsigned LEB128 value, used throughout the binary
// format for counts, indexes, and section lengths.
func (l *Loader) readU32() (uint32, error) {
	v, err := l.readU64()
	return uint32(v), err
}

func (l *Loader) readU64() (uint64, error) {
	var value uint64
	var shift uint
	for {
		b, err := l.r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, fmt.Errorf("loader: LEB128 value too long")
		}
	}
	return value, nil
}

func (l *Loader) readSleb(bitWidth int) (int64, error) {
	var value int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = l.r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < uint(bitWidth) && b&0x40 != 0 {
		value |= -1 << shift
	}
	return value, nil
}
