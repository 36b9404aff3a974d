// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

// typeDef is one in-band type definition discovered during container
// parsing (spec.md §4.2).
type typeDef struct {
	index            int
	version          int32
	minReaderVersion int32
	name             string
}

// typeRegistry is the append-only, densely-indexed set of type
// definitions seen so far. No cycles are possible (spec.md §9: "The
// type registry is strictly append-only and referenced by dense
// indices; no cycles exist"), so a flat slice indexed by integer is
// the natural representation — same shape as perfsession/ranges.go's
// flat-slice-plus-lookup approach, minus the sorting since registry
// lookups are by dense index, not by range containment.
type typeRegistry struct {
	defs []typeDef
}

// define assigns the next sequential index to a new type and returns
// it.
func (t *typeRegistry) define(version, minReaderVersion int32, name string) *typeDef {
	d := typeDef{index: len(t.defs), version: version, minReaderVersion: minReaderVersion, name: name}
	t.defs = append(t.defs, d)
	return &t.defs[len(t.defs)-1]
}

// lookup resolves a back-reference index. ok is false if the index
// has never been defined (KindUnknownTypeIndex in the caller).
func (t *typeRegistry) lookup(index uint32) (*typeDef, bool) {
	if int(index) < 0 || int(index) >= len(t.defs) {
		return nil, false
	}
	return &t.defs[index], true
}
