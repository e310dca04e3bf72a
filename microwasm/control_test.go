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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreIndexMatchesBlockEnd(t *testing.T) {
	code := newCode().op(block).blockType().op(nop).op(end).op(end).code()
	m, err := preIndex(code)
	require.NoError(t, err)
	require.Contains(t, m, uint32(0))
	require.Equal(t, labelBlock, m[0].Kind)
}

func TestPreIndexMatchesIfElse(t *testing.T) {
	code := newCode().
		op(ifOp).blockType().
		op(nop).
		op(elseOp).
		op(nop).
		op(end).
		op(end).code()
	m, err := preIndex(code)
	require.NoError(t, err)
	entry, ok := m[0]
	require.True(t, ok)
	require.Equal(t, labelIf, entry.Kind)
	require.NotZero(t, entry.ElsePC)
}

func TestPreIndexUnmatchedEndTraps(t *testing.T) {
	code := newCode().op(nop).op(end).op(end).code()
	_, err := preIndex(code)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestPreIndexUnclosedBlockTraps(t *testing.T) {
	code := newCode().op(block).blockType().op(nop).op(end).code()
	_, err := preIndex(code)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestPreIndexElseWithoutIfTraps(t *testing.T) {
	code := newCode().op(elseOp).op(end).op(end).code()
	_, err := preIndex(code)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}
