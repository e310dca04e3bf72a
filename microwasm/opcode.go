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

// opcode identifies a single instruction byte in the WASM 1.0 MVP encoding.
// Only the instructions this core implements are named; everything else
// falls through to the dispatcher's default case and traps.
type opcode byte

const (
	unreachable opcode = 0x00
	nop         opcode = 0x01
	block       opcode = 0x02
	loop        opcode = 0x03
	ifOp        opcode = 0x04
	elseOp      opcode = 0x05
	end         opcode = 0x0B
	br          opcode = 0x0C
	brIf        opcode = 0x0D
	brTable     opcode = 0x0E
	returnOp    opcode = 0x0F
	call        opcode = 0x10
	callIndirect opcode = 0x11

	drop     opcode = 0x1A
	selectOp opcode = 0x1B

	localGet  opcode = 0x20
	localSet  opcode = 0x21
	localTee  opcode = 0x22
	globalGet opcode = 0x23
	globalSet opcode = 0x24

	i32Load    opcode = 0x28
	i64Load    opcode = 0x29
	f32Load    opcode = 0x2A
	f64Load    opcode = 0x2B
	i32Load8S  opcode = 0x2C
	i32Load8U  opcode = 0x2D
	i32Load16S opcode = 0x2E
	i32Load16U opcode = 0x2F
	i64Load8S  opcode = 0x30
	i64Load8U  opcode = 0x31
	i64Load16S opcode = 0x32
	i64Load16U opcode = 0x33
	i64Load32S opcode = 0x34
	i64Load32U opcode = 0x35
	i32Store   opcode = 0x36
	i64Store   opcode = 0x37
	f32Store   opcode = 0x38
	f64Store   opcode = 0x39
	i32Store8  opcode = 0x3A
	i32Store16 opcode = 0x3B
	i64Store8  opcode = 0x3C
	i64Store16 opcode = 0x3D
	i64Store32 opcode = 0x3E
	memorySize opcode = 0x3F
	memoryGrow opcode = 0x40

	i32Const opcode = 0x41
	i64Const opcode = 0x42
	f32Const opcode = 0x43
	f64Const opcode = 0x44

	i32Eqz opcode = 0x45
	i32Eq  opcode = 0x46
	i32Ne  opcode = 0x47
	i32LtS opcode = 0x48
	i32LtU opcode = 0x49
	i32GtS opcode = 0x4A
	i32GtU opcode = 0x4B
	i32LeS opcode = 0x4C
	i32LeU opcode = 0x4D
	i32GeS opcode = 0x4E
	i32GeU opcode = 0x4F

	i64Eqz opcode = 0x50
	i64Eq  opcode = 0x51
	i64Ne  opcode = 0x52
	i64LtS opcode = 0x53
	i64LtU opcode = 0x54
	i64GtS opcode = 0x55
	i64GtU opcode = 0x56
	i64LeS opcode = 0x57
	i64LeU opcode = 0x58
	i64GeS opcode = 0x59
	i64GeU opcode = 0x5A

	f32Eq opcode = 0x5B
	f32Ne opcode = 0x5C
	f32Lt opcode = 0x5D
	f32Gt opcode = 0x5E
	f32Le opcode = 0x5F
	f32Ge opcode = 0x60

	f64Eq opcode = 0x61
	f64Ne opcode = 0x62
	f64Lt opcode = 0x63
	f64Gt opcode = 0x64
	f64Le opcode = 0x65
	f64Ge opcode = 0x66

	i32Clz    opcode = 0x67
	i32Ctz    opcode = 0x68
	i32Popcnt opcode = 0x69
	i32Add    opcode = 0x6A
	i32Sub    opcode = 0x6B
	i32Mul    opcode = 0x6C
	i32DivS   opcode = 0x6D
	i32DivU   opcode = 0x6E
	i32RemS   opcode = 0x6F
	i32RemU   opcode = 0x70
	i32And    opcode = 0x71
	i32Or     opcode = 0x72
	i32Xor    opcode = 0x73
	i32Shl    opcode = 0x74
	i32ShrS   opcode = 0x75
	i32ShrU   opcode = 0x76
	i32Rotl   opcode = 0x77
	i32Rotr   opcode = 0x78

	i64Clz    opcode = 0x79
	i64Ctz    opcode = 0x7A
	i64Popcnt opcode = 0x7B
	i64Add    opcode = 0x7C
	i64Sub    opcode = 0x7D
	i64Mul    opcode = 0x7E
	i64DivS   opcode = 0x7F
	i64DivU   opcode = 0x80
	i64RemS   opcode = 0x81
	i64RemU   opcode = 0x82
	i64And    opcode = 0x83
	i64Or     opcode = 0x84
	i64Xor    opcode = 0x85
	i64Shl    opcode = 0x86
	i64ShrS   opcode = 0x87
	i64ShrU   opcode = 0x88
	i64Rotl   opcode = 0x89
	i64Rotr   opcode = 0x8A

	f32Abs      opcode = 0x8B
	f32Neg      opcode = 0x8C
	f32Ceil     opcode = 0x8D
	f32Floor    opcode = 0x8E
	f32Trunc    opcode = 0x8F
	f32Nearest  opcode = 0x90
	f32Sqrt     opcode = 0x91
	f32Add      opcode = 0x92
	f32Sub      opcode = 0x93
	f32Mul      opcode = 0x94
	f32Div      opcode = 0x95
	f32Min      opcode = 0x96
	f32Max      opcode = 0x97
	f32Copysign opcode = 0x98

	f64Abs      opcode = 0x99
	f64Neg      opcode = 0x9A
	f64Ceil     opcode = 0x9B
	f64Floor    opcode = 0x9C
	f64Trunc    opcode = 0x9D
	f64Nearest  opcode = 0x9E
	f64Sqrt     opcode = 0x9F
	f64Add      opcode = 0xA0
	f64Sub      opcode = 0xA1
	f64Mul      opcode = 0xA2
	f64Div      opcode = 0xA3
	f64Min      opcode = 0xA4
	f64Max      opcode = 0xA5
	f64Copysign opcode = 0xA6

	i32WrapI64     opcode = 0xA7
	i32TruncF32S   opcode = 0xA8
	i32TruncF32U   opcode = 0xA9
	i32TruncF64S   opcode = 0xAA
	i32TruncF64U   opcode = 0xAB
	i64ExtendI32S  opcode = 0xAC
	i64ExtendI32U  opcode = 0xAD
	i64TruncF32S   opcode = 0xAE
	i64TruncF32U   opcode = 0xAF
	i64TruncF64S   opcode = 0xB0
	i64TruncF64U   opcode = 0xB1
	f32ConvertI32S opcode = 0xB2
	f32ConvertI32U opcode = 0xB3
	f32ConvertI64S opcode = 0xB4
	f32ConvertI64U opcode = 0xB5
	f32DemoteF64   opcode = 0xB6
	f64ConvertI32S opcode = 0xB7
	f64ConvertI32U opcode = 0xB8
	f64ConvertI64S opcode = 0xB9
	f64ConvertI64U opcode = 0xBA
	f64PromoteF32  opcode = 0xBB

	i32ReinterpretF32 opcode = 0xBC
	i64ReinterpretF64 opcode = 0xBD
	f32ReinterpretI32 opcode = 0xBE
	f64ReinterpretI64 opcode = 0xBF
)

// mnemonic returns a human-readable name for an opcode, used in trap
// diagnostics.
func (o opcode) mnemonic() string {
	if m, ok := opcodeMnemonics[o]; ok {
		return m
	}
	return "unknown"
}

var opcodeMnemonics = map[opcode]string{
	unreachable: "unreachable", nop: "nop", block: "block", loop: "loop",
	ifOp: "if", elseOp: "else", end: "end", br: "br", brIf: "br_if",
	brTable: "br_table", returnOp: "return", call: "call",
	callIndirect: "call_indirect", drop: "drop", selectOp: "select",
	localGet: "local.get", localSet: "local.set", localTee: "local.tee",
	globalGet: "global.get", globalSet: "global.set",
	i32Const: "i32.const", i64Const: "i64.const", f32Const: "f32.const",
	f64Const: "f64.const",
}
