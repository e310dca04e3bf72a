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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wasmforge/microwasm/loader"
	"github.com/wasmforge/microwasm/microwasm"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "microwasm",
		Short:         "A minimal WebAssembly 1.0 MVP interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <module-file> [arg...]",
		Short: "Instantiate a module and invoke its main export",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(args[0], args[1:])
		},
	}
}

// runCommand is the single-shot driver: load, instantiate, invoke main,
// print results or the trap line. Everything it returns is an
// environmental error; traps are already handled (and printed to stdout)
// by runModule.
func runCommand(modulePath string, mainArgs []string) error {
	logger := newLogger()
	defer logger.Sync()

	f, err := os.Open(modulePath)
	if err != nil {
		logger.Error("failed to open module file", zap.String("path", modulePath), zap.Error(err))
		return fmt.Errorf("opening %s: %w", modulePath, err)
	}
	defer f.Close()

	module, err := loader.Load(f)
	if err != nil {
		logger.Error("failed to load module", zap.String("path", modulePath), zap.Error(err))
		return err
	}

	rt := microwasm.NewRuntime()
	if err := runModule(rt, module, mainArgs, os.Stdout); err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}
	return nil
}

// newLogger builds the CLI's diagnostic logger. It is never threaded into
// the engine or loader packages, which stay free of logging dependencies;
// it only ever reports environmental errors around a run.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
