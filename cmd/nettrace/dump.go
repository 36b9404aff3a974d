// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aclements/go-nettrace/eventpipe"
)

func newDumpCmd() *cobra.Command {
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "dump <trace-file>",
		Short: "Print the trace header, schema table, and event/allocation totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := eventpipe.Parse(readTrace(args[0]))
			runDump(result, showErrors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showErrors, "errors", false, "print recovered decode errors")
	return cmd
}

type dumpSummary struct {
	Trace           *eventpipe.TraceInfo `json:"trace"`
	TotalEvents     uint64               `json:"totalEvents"`
	AllocationTicks uint64               `json:"allocationTicks"`
	SchemaCount     int                  `json:"schemaCount"`
	StackCount      int                  `json:"stackCount"`
	MethodCount     int                  `json:"methodCount"`
	Providers       []string             `json:"providers"`
	TopAllocations  []allocationTotal    `json:"topAllocations"`
}

type allocationTotal struct {
	TypeName  string `json:"typeName"`
	Count     uint64 `json:"count"`
	TotalSize uint64 `json:"totalSize"`
}

func runDump(result *eventpipe.ParseResult, showErrors bool) {
	providers := make([]string, 0, len(result.Providers))
	for p := range result.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	allocs := make([]allocationTotal, 0, len(result.Allocations))
	for _, a := range result.Allocations {
		allocs = append(allocs, allocationTotal{TypeName: a.TypeName, Count: a.Count, TotalSize: a.TotalSize})
	}
	sort.Slice(allocs, func(i, j int) bool { return allocs[i].TotalSize > allocs[j].TotalSize })
	if len(allocs) > 20 {
		allocs = allocs[:20]
	}

	summary := dumpSummary{
		Trace:           result.Trace,
		TotalEvents:     result.TotalEvents,
		AllocationTicks: result.AllocationTicks,
		SchemaCount:     len(result.Schemas),
		StackCount:      len(result.Stacks),
		MethodCount:     len(result.MethodsByID),
		Providers:       providers,
		TopAllocations:  allocs,
	}

	fmt.Println(prettyJSON(summary))

	if showErrors {
		for _, e := range result.Errors {
			fmt.Println("error:", e)
		}
	}
}

func prettyJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return buf.String()
}
