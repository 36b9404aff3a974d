// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eventpipe decodes the .NET EventPipe trace file format
// ("nettrace") into an in-memory analytical model: a trace header, an
// event-schema table, call-stack samples, JIT method address ranges,
// and per-type allocation aggregates.
//
// Parse is the single entry point; it consumes a fully-buffered trace
// and returns a ParseResult. Decoding never panics on malformed input:
// most errors are local to the block or object in which they occur
// and are recorded in ParseResult.Errors rather than aborting the
// whole parse.
package eventpipe
