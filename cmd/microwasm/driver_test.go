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

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmforge/microwasm/microwasm"
)

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]microwasm.Kind{microwasm.KindI32, microwasm.KindF64}, []string{"42", "3.5"})
	require.NoError(t, err)
	require.Len(t, args, 2)

	i, err := args[0].I32()
	require.NoError(t, err)
	require.Equal(t, int32(42), i)

	f, err := args[1].F64()
	require.NoError(t, err)
	require.Equal(t, 3.5, f)
}

func TestParseArgsArityMismatch(t *testing.T) {
	_, err := parseArgs([]microwasm.Kind{microwasm.KindI32}, []string{"1", "2"})
	require.Error(t, err)
}

func TestParseArgsInvalidNumber(t *testing.T) {
	_, err := parseArgs([]microwasm.Kind{microwasm.KindI32}, []string{"not-a-number"})
	require.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	s, err := formatResult(microwasm.I32Value(-7))
	require.NoError(t, err)
	require.Equal(t, "-7", s)

	s, err = formatResult(microwasm.F64Value(1.5))
	require.NoError(t, err)
	require.Equal(t, "1.500000", s)

	s, err = formatResult(microwasm.F32Value(2))
	require.NoError(t, err)
	require.Equal(t, "2.000000", s)
}

// identityModule returns a module exporting a single-parameter "main" that
// returns its i32 argument unchanged, mirroring spec §8's identity scenario.
func identityModule() *microwasm.Module {
	return &microwasm.Module{
		Funcs: []microwasm.Function{{
			Type: microwasm.FunctionType{Params: []microwasm.Kind{microwasm.KindI32}, Results: []microwasm.Kind{microwasm.KindI32}},
			Code: []byte{0x20, 0x00, 0x0B}, // local.get 0; end
		}},
		Exports: []microwasm.Export{{Name: "main", Kind: microwasm.ExportFunc, Index: 0}},
	}
}

func TestRunModulePrintsResult(t *testing.T) {
	var out bytes.Buffer
	err := runModule(microwasm.NewRuntime(), identityModule(), []string{"9"}, &out)
	require.NoError(t, err)
	require.Equal(t, "9\n", out.String())
}

func TestRunModulePrintsTrapLine(t *testing.T) {
	trapModule := &microwasm.Module{
		Funcs: []microwasm.Function{{
			Type: microwasm.FunctionType{},
			Code: []byte{0x00, 0x0B}, // unreachable; end
		}},
		Exports: []microwasm.Export{{Name: "main", Kind: microwasm.ExportFunc, Index: 0}},
	}
	var out bytes.Buffer
	err := runModule(microwasm.NewRuntime(), trapModule, nil, &out)
	require.NoError(t, err)
	require.Equal(t, trapLine+"\n", out.String())
}

func TestRunModuleMissingMainExport(t *testing.T) {
	empty := &microwasm.Module{}
	var out bytes.Buffer
	err := runModule(microwasm.NewRuntime(), empty, nil, &out)
	require.Error(t, err)
}
