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
	"fmt"
	"io"
	"strconv"

	"github.com/wasmforge/microwasm/microwasm"
)

// parseArgs converts textual CLI arguments into Values according to main's
// declared parameter kinds, per the driver's argument-parsing contract.
func parseArgs(kinds []microwasm.Kind, raw []string) ([]microwasm.Value, error) {
	if len(raw) != len(kinds) {
		return nil, fmt.Errorf("main expects %d argument(s), got %d", len(kinds), len(raw))
	}
	args := make([]microwasm.Value, len(raw))
	for i, kind := range kinds {
		v, err := parseArg(kind, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(kind microwasm.Kind, text string) (microwasm.Value, error) {
	switch kind {
	case microwasm.KindI32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return microwasm.Value{}, fmt.Errorf("invalid i32 %q: %w", text, err)
		}
		return microwasm.I32Value(int32(n)), nil
	case microwasm.KindI64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return microwasm.Value{}, fmt.Errorf("invalid i64 %q: %w", text, err)
		}
		return microwasm.I64Value(n), nil
	case microwasm.KindF32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return microwasm.Value{}, fmt.Errorf("invalid f32 %q: %w", text, err)
		}
		return microwasm.F32Value(float32(f)), nil
	case microwasm.KindF64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return microwasm.Value{}, fmt.Errorf("invalid f64 %q: %w", text, err)
		}
		return microwasm.F64Value(f), nil
	default:
		return microwasm.Value{}, fmt.Errorf("unsupported parameter kind %s", kind)
	}
}

// printResults writes one result per line to w, in declaration order:
// integers in decimal, floats fixed-point with six fractional digits.
func printResults(w io.Writer, results []microwasm.Value) error {
	for _, v := range results {
		line, err := formatResult(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatResult(v microwasm.Value) (string, error) {
	switch v.Kind() {
	case microwasm.KindI32:
		n, err := v.I32()
		return strconv.FormatInt(int64(n), 10), err
	case microwasm.KindI64:
		n, err := v.I64()
		return strconv.FormatInt(n, 10), err
	case microwasm.KindF32:
		f, err := v.F32()
		return strconv.FormatFloat(float64(f), 'f', 6, 32), err
	case microwasm.KindF64:
		f, err := v.F64()
		return strconv.FormatFloat(f, 'f', 6, 64), err
	default:
		return "", fmt.Errorf("unsupported result kind %s", v.Kind())
	}
}

// trapLine is the literal line printed to stdout when a run traps.
const trapLine = "!trap"

// runModule drives one call to main: parse args against main's signature,
// invoke it, and print either its results or the trap line. The returned
// error is only ever an environmental error (never a trap, which is
// reported on stdout per the driver contract rather than surfaced here).
func runModule(rt *microwasm.Runtime, module *microwasm.Module, rawArgs []string, stdout io.Writer) error {
	inst, err := rt.Instantiate(module)
	if err != nil {
		return fmt.Errorf("instantiating module: %w", err)
	}

	export, ok := module.FindExport("main", microwasm.ExportFunc)
	if !ok {
		return fmt.Errorf("module has no exported function named \"main\"")
	}
	if int(export.Index) >= len(module.Funcs) {
		return fmt.Errorf("main export references unknown function %d", export.Index)
	}
	main := module.Funcs[export.Index]

	args, err := parseArgs(main.Type.Params, rawArgs)
	if err != nil {
		return fmt.Errorf("parsing arguments: %w", err)
	}

	results, err := inst.CallExport("main", args)
	if err != nil {
		if microwasm.IsTrap(err) {
			_, werr := fmt.Fprintln(stdout, trapLine)
			return werr
		}
		return err
	}
	return printResults(stdout, results)
}
