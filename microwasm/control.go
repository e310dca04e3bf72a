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

// labelKind classifies a structured control region, matching spec §3's
// Label.kind domain.
type labelKind uint8

const (
	labelImplicitFunction labelKind = iota
	labelBlock
	labelLoop
	labelIf
)

// ctrlEntry is the pre-indexed metadata for one block/loop/if header,
// keyed in a ctrlMap by the header's byte offset.
type ctrlEntry struct {
	Kind   labelKind
	BodyPC uint32 // first instruction inside the region, just past the blocktype byte
	ElsePC uint32 // first instruction after `else`; 0 if the if has no else
	EndPC  uint32 // offset of the matching `end` opcode byte itself
}

// ctrlMap maps a block/loop/if header's byte offset to its pre-indexed
// metadata. Computed once per function and cached; depends only on the
// function's immutable code bytes.
type ctrlMap map[uint32]ctrlEntry

type pendingEntry struct {
	headerPC uint32
	kind     labelKind
	bodyPC   uint32
	elsePC   uint32
}

// preIndex performs the one-pass scan described in spec §4.1: it pairs
// every block/loop/if header byte with its else (if any) and end target,
// trapping on unmatched end, else without if, or an unclosed region at
// end-of-code.
func preIndex(code []byte) (ctrlMap, error) {
	m := make(ctrlMap)
	stack := []pendingEntry{{kind: labelImplicitFunction}}
	c := newCursor(code)

	for !c.atEnd() {
		headerPC := c.pc
		op, err := c.readOpcode()
		if err != nil {
			return nil, err
		}

		switch op {
		case block, loop, ifOp:
			if err := c.readBlockType(); err != nil {
				return nil, err
			}
			kind := labelBlock
			if op == loop {
				kind = labelLoop
			} else if op == ifOp {
				kind = labelIf
			}
			stack = append(stack, pendingEntry{headerPC: headerPC, kind: kind, bodyPC: c.pc})

		case elseOp:
			if len(stack) == 0 || stack[len(stack)-1].kind != labelIf {
				return nil, newTrap(errMalformedControlFlow, "else without matching if")
			}
			stack[len(stack)-1].elsePC = c.pc

		case end:
			if len(stack) == 0 {
				return nil, newTrap(errMalformedControlFlow, "unmatched end")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.kind != labelImplicitFunction {
				m[top.headerPC] = ctrlEntry{
					Kind:   top.kind,
					BodyPC: top.bodyPC,
					ElsePC: top.elsePC,
					EndPC:  headerPC,
				}
			}

		default:
			if err := skipImmediate(c, op); err != nil {
				return nil, err
			}
		}
	}

	// A well-formed function body's own trailing `end` closes the implicit
	// function-level scope pushed above, the same as any other block/loop/if
	// end closes its opener: the stack should be fully unwound by the time
	// the scan runs out of bytes. Anything left over means a block, loop, or
	// if never found its `end`.
	if len(stack) != 0 {
		return nil, newTrap(errMalformedControlFlow, "unclosed structured region at end of code")
	}
	return m, nil
}

var singleLebOpcodes = map[opcode]bool{
	localGet: true, localSet: true, localTee: true,
	globalGet: true, globalSet: true,
	br: true, brIf: true, call: true,
	memorySize: true, memoryGrow: true,
}

var twoLebOpcodes = map[opcode]bool{
	i32Load: true, i64Load: true, f32Load: true, f64Load: true,
	i32Load8S: true, i32Load8U: true, i32Load16S: true, i32Load16U: true,
	i64Load8S: true, i64Load8U: true, i64Load16S: true, i64Load16U: true,
	i64Load32S: true, i64Load32U: true,
	i32Store: true, i64Store: true, f32Store: true, f64Store: true,
	i32Store8: true, i32Store16: true, i64Store8: true, i64Store16: true,
	i64Store32: true,
	callIndirect: true,
}

// skipImmediate advances the cursor past the immediate operands of op,
// per the skip table in spec §4.1: single-byte, single-LEB, two-LEB,
// br_table, and the typed constants.
func skipImmediate(c *cursor, op opcode) error {
	switch {
	case op == brTable:
		n, err := c.readU32Leb()
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := c.readU32Leb(); err != nil {
				return err
			}
		}
		_, err = c.readU32Leb() // default target
		return err

	case op == i32Const:
		_, err := c.readI32Leb()
		return err
	case op == i64Const:
		_, err := c.readI64Leb()
		return err
	case op == f32Const:
		_, err := c.readRawF32()
		return err
	case op == f64Const:
		_, err := c.readRawF64()
		return err

	case singleLebOpcodes[op]:
		_, err := c.readU32Leb()
		return err

	case twoLebOpcodes[op]:
		if _, err := c.readU32Leb(); err != nil {
			return err
		}
		_, err := c.readU32Leb()
		return err

	default:
		// Single-byte instruction: no immediates to skip (unreachable, nop,
		// drop, select, return, and the full arithmetic/comparison/conversion
		// set all carry no operand-encoded immediates).
		return nil
	}
}
