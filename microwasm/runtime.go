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

import "fmt"

// Runtime is the public entry point for instantiating modules. It holds
// configuration shared across instantiations; the Instance it produces is
// the thing that actually executes code. Runtime deliberately takes an
// already-decoded *Module rather than raw bytes: turning bytes into a
// Module is the loader package's job, not the engine's, so the engine
// stays importable without ever pulling in a binary-format decoder.
type Runtime struct {
	config Config
}

// NewRuntime creates a Runtime with default settings.
func NewRuntime() *Runtime {
	return &Runtime{config: DefaultConfig()}
}

// WithConfig sets the configuration used by subsequent Instantiate calls.
func (r *Runtime) WithConfig(config Config) *Runtime {
	r.config = config
	return r
}

// Instantiate materializes linear memory, tables, and globals from module's
// declared segments and initializers.
func (r *Runtime) Instantiate(module *Module) (*Instance, error) {
	return NewInstance(module, r.config)
}

// CallExport invokes the exported function named name with args, kind-checked
// against the function's declared parameter types, and returns its results
// in declaration order. A trap during execution is returned as an error
// satisfying IsTrap; callers distinguish it from an environmental error
// (unknown export, arity/kind mismatch building the call) by that predicate.
func (inst *Instance) CallExport(name string, args []Value) ([]Value, error) {
	export, ok := inst.module.FindExport(name, ExportFunc)
	if !ok {
		return nil, fmt.Errorf("microwasm: no exported function named %q", name)
	}
	if int(export.Index) >= len(inst.module.Funcs) {
		return nil, fmt.Errorf("microwasm: export %q references unknown function %d", name, export.Index)
	}
	fn := &inst.module.Funcs[export.Index]
	if len(args) != len(fn.Type.Params) {
		return nil, fmt.Errorf("microwasm: %q expects %d arguments, got %d", name, len(fn.Type.Params), len(args))
	}
	for i, a := range args {
		if a.Kind() != fn.Type.Params[i] {
			return nil, fmt.Errorf("microwasm: %q argument %d: expected %s, got %s", name, i, fn.Type.Params[i], a.Kind())
		}
	}

	for _, a := range args {
		inst.operandStack.push(a)
	}
	if err := inst.pushFrame(export.Index); err != nil {
		return nil, err
	}
	if err := inst.run(); err != nil {
		return nil, err
	}

	results, err := inst.operandStack.popN(uint32(len(fn.Type.Results)))
	if err != nil {
		return nil, fmt.Errorf("microwasm: %q returned fewer values than declared: %w", name, err)
	}
	return results, nil
}
