// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aclements/go-nettrace/analysis"
	"github.com/aclements/go-nettrace/eventpipe"
)

func newProfileCmd() *cobra.Command {
	var kind string
	var top int

	cmd := &cobra.Command{
		Use:   "profile <trace-file>",
		Short: "Print a per-method CPU or allocation profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := eventpipe.Parse(readTrace(args[0]))
			resolver := analysis.NewResolver(result)

			var profs []*analysis.MethodProfile
			switch kind {
			case "cpu":
				profs = analysis.BuildCPUProfile(result, resolver)
			case "alloc":
				profs = analysis.BuildAllocationProfile(result, resolver)
			default:
				return fmt.Errorf("unknown --kind %q, want cpu or alloc", kind)
			}

			if top > 0 && len(profs) > top {
				profs = profs[:top]
			}
			printProfile(kind, profs)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "cpu", "profile kind: cpu or alloc")
	cmd.Flags().IntVar(&top, "top", 20, "limit output to the N highest-inclusive methods (0 for no limit)")
	return cmd
}

type profileRow struct {
	Method        string           `json:"method"`
	Inclusive     uint64           `json:"inclusive"`
	Exclusive     uint64           `json:"exclusive"`
	InclusiveTime string           `json:"inclusiveTime"`
	ExclusiveTime string           `json:"exclusiveTime"`
	Stats         analysis.Summary `json:"stats"`
}

// printProfile prints each method's own roll-up (including its
// InclusiveTime/ExclusiveTime and Stats, the per-method distribution
// of exclusive sample counts, SPEC_FULL.md §4.11) plus one overall
// Summary computed across the inclusive weights of the methods in
// profs. The caller has already applied the --top limit, so methods
// cut from the output are not part of that Summary.
func printProfile(kind string, profs []*analysis.MethodProfile) {
	rows := make([]profileRow, len(profs))
	for i, p := range profs {
		rows[i] = profileRow{
			Method:        p.Method.FullName(),
			Inclusive:     p.Inclusive,
			Exclusive:     p.Exclusive,
			InclusiveTime: p.InclusiveTime.String(),
			ExclusiveTime: p.ExclusiveTime.String(),
			Stats:         p.Stats,
		}
	}

	var weights []uint64
	for _, p := range profs {
		weights = append(weights, p.Inclusive)
	}
	summary := analysis.Summarize(weights)

	fmt.Println(prettyJSON(struct {
		Kind    string           `json:"kind"`
		Methods []profileRow     `json:"methods"`
		Summary analysis.Summary `json:"summary"`
	}{Kind: kind, Methods: rows, Summary: summary}))
}
