// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"fmt"
	"sort"

	"github.com/aclements/go-nettrace/eventpipe"
)

// Resolver maps a raw stack address to the method whose [start, end)
// range contains it. This is the address→method binary search from
// spec.md §4.9, shaped after the teacher's perfsession/ranges.go and
// perfsession/symbolize.go: a flat slice sorted once by start address,
// searched with sort.Search rather than an interval tree, since method
// ranges are a static set, assumed non-overlapping, known entirely up
// front.
type Resolver struct {
	methods []*eventpipe.MethodRecord
}

// NewResolver builds a Resolver from every method eventpipe.Parse
// discovered. Methods are sorted by start address; when two methods'
// ranges overlap (spec.md's Open Question: JIT rundown can report a
// stale range alongside its replacement), the earliest-loaded method
// for a given start address wins, matching the order Parse observed
// them in (first writer wins). Only identical start addresses are
// de-duplicated; ranges that overlap with different starts are kept.
func NewResolver(result *eventpipe.ParseResult) *Resolver {
	methods := append([]*eventpipe.MethodRecord(nil), result.MethodsByAddr()...)
	sort.SliceStable(methods, func(i, j int) bool {
		return methods[i].StartAddress < methods[j].StartAddress
	})

	// De-duplicate identical start addresses in place, keeping the
	// first (earliest-loaded) record.
	out := methods[:0]
	var lastAddr uint64
	haveLast := false
	for _, m := range methods {
		if haveLast && m.StartAddress == lastAddr {
			continue
		}
		out = append(out, m)
		lastAddr = m.StartAddress
		haveLast = true
	}

	return &Resolver{methods: out}
}

// Resolve returns the method containing addr, or nil if no known
// method's range covers it (spec.md §4.9: addresses outside every
// known range resolve to nil, not an error).
func (r *Resolver) Resolve(addr uint64) *eventpipe.MethodRecord {
	i := sort.Search(len(r.methods), func(i int) bool {
		return addr < r.methods[i].EndAddress()
	})
	if i < len(r.methods) && r.methods[i].StartAddress <= addr && addr < r.methods[i].EndAddress() {
		return r.methods[i]
	}
	return nil
}

// ResolveStack resolves every address in addrs, in order (top of
// stack first). Unresolved frames are reported as a synthetic method
// named by their raw address so callers building a flame graph always
// have a label to key on (spec.md §4.9).
func (r *Resolver) ResolveStack(addrs []uint64) []*eventpipe.MethodRecord {
	out := make([]*eventpipe.MethodRecord, len(addrs))
	for i, a := range addrs {
		if m := r.Resolve(a); m != nil {
			out[i] = m
		} else {
			out[i] = unresolvedMethod(a)
		}
	}
	return out
}

func unresolvedMethod(addr uint64) *eventpipe.MethodRecord {
	return &eventpipe.MethodRecord{
		StartAddress: addr,
		Size:         1,
		Name:         fmt.Sprintf("0x%x", addr),
	}
}
