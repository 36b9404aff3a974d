// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aclements/go-nettrace/analysis"
	"github.com/aclements/go-nettrace/eventpipe"
)

func newFlameCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "flame <trace-file>",
		Short: "Print the flattened flame-graph node list as tab-separated text (no rendering: spec Non-goal)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := eventpipe.Parse(readTrace(args[0]))
			resolver := analysis.NewResolver(result)

			var root *analysis.FlameNode
			switch mode {
			case "cpu":
				root = analysis.BuildCPUFlame(result, resolver)
			case "alloc":
				root = analysis.BuildAllocationFlame(result, resolver)
			default:
				return fmt.Errorf("unknown --mode %q, want cpu or alloc", mode)
			}

			printFlame(analysis.Flatten(root))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "cpu", "flame mode: cpu or alloc")
	return cmd
}

func printFlame(rows []analysis.FlameRow) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	fmt.Fprintln(w, "method\tdepth\tweight\tx0\tx1")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.6f\t%.6f\n", r.Method, r.Depth, r.Weight, r.X0, r.X1)
	}
}
