// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eventpipe

import "strconv"

const (
	providerCLRRuntime        = "Microsoft-Windows-DotNETRuntime"
	providerCLRRundown        = "Microsoft-Windows-DotNETRuntimeRundown"
	providerSampleProfiler    = "Microsoft-DotNETCore-SampleProfiler"

	eventGCAllocationTick    = 10
	eventMethodLoadVerbose   = 143
	eventMethodDCEndVerbose  = 144
	eventMethodJittingStart  = 145
)

// dispatchEvent recognizes a small set of well-known provider/event
// pairs and aggregates them (spec.md §4.6). Every event, recognized or
// not, increments the total-event counters.
func dispatchEvent(result *ParseResult, hdr eventHeader, payload []byte) {
	result.TotalEvents++

	schema, known := result.Schemas[hdr.metadataID]

	var key string
	if known {
		key = schema.ProviderName + ":" + strconv.FormatUint(uint64(schema.EventID), 10)
		result.Providers[schema.ProviderName] = true
	} else {
		key = "unknown:" + strconv.FormatUint(uint64(hdr.metadataID), 10)
	}
	ec, ok := result.EventCounts[key]
	if !ok {
		ec = &EventCount{EventID: hdr.metadataID}
		if known {
			ec.Provider = schema.ProviderName
			ec.EventID = schema.EventID
		}
		result.EventCounts[key] = ec
	}
	ec.Count++

	if !known {
		return
	}

	switch {
	case schema.ProviderName == providerCLRRuntime && schema.EventID == eventGCAllocationTick:
		result.AllocationTicks++
		typeName, size, err := parseAllocationTick(payload, pointerSizeOf(result))
		if err != nil {
			result.addError(errf(KindMalformedPayload, "GC allocation tick: %v", err))
			return
		}
		recordAllocation(result, typeName, size, hdr.timestamp, hdr.stackID)

	case schema.ProviderName == providerCLRRuntime && schema.EventID == eventMethodLoadVerbose:
		m, err := parseMethodLoad(payload)
		if err != nil {
			result.addError(errf(KindMalformedPayload, "method load: %v", err))
			return
		}
		storeMethod(result, m)

	case schema.ProviderName == providerCLRRundown && schema.EventID == eventMethodDCEndVerbose:
		m, err := parseMethodLoad(payload)
		if err != nil {
			result.addError(errf(KindMalformedPayload, "method DCEnd: %v", err))
			return
		}
		storeMethod(result, m)

	case schema.ProviderName == providerCLRRuntime && schema.EventID == eventMethodJittingStart:
		m, err := parseMethodJitStart(payload)
		if err != nil {
			result.addError(errf(KindMalformedPayload, "method jit start: %v", err))
			return
		}
		// Load-verbose carries strictly more information; only
		// record if we don't already know this method (spec.md §4.6.3).
		if _, exists := result.MethodsByID[m.MethodID]; !exists {
			storeMethod(result, m)
		}

	case schema.ProviderName == providerSampleProfiler:
		result.recordCPUSample(hdr.stackID)
	}
}

func pointerSizeOf(result *ParseResult) int {
	if result.Trace != nil && (result.Trace.PointerSize == 4 || result.Trace.PointerSize == 8) {
		return result.Trace.PointerSize
	}
	return 8
}

// parseAllocationTick parses the GC allocation tick payload
// defensively, since it has four additive versions (spec.md §4.6.1):
// every field beyond clrInstanceId is read only if enough bytes
// remain to plausibly hold it, rather than branching on the schema's
// version number.
func parseAllocationTick(payload []byte, pointerSize int) (typeName string, size uint64, err error) {
	c := newCursor(payload)

	amount, err := c.u32()
	if err != nil {
		return "", 0, err
	}
	if _, err := c.u32(); err != nil { // allocationKind
		return "", 0, err
	}
	if _, err := c.u16(); err != nil { // clrInstanceId
		return "", 0, err
	}

	size = uint64(amount)
	if c.remaining() >= 8 {
		amount64, err := c.u64()
		if err == nil {
			size = amount64
		}
	}
	if c.remaining() >= pointerSize {
		c.skip(pointerSize) // typeId
	}

	typeName, _ = c.utf16String()
	if typeName == "" {
		typeName = "<unknown>"
	}
	return typeName, size, nil
}

func parseMethodLoad(payload []byte) (*MethodRecord, error) {
	c := newCursor(payload)

	methodID, err := c.u64()
	if err != nil {
		return nil, err
	}
	moduleID, err := c.u64()
	if err != nil {
		return nil, err
	}
	startAddr, err := c.u64()
	if err != nil {
		return nil, err
	}
	size, err := c.u32()
	if err != nil {
		return nil, err
	}
	token, err := c.u32()
	if err != nil {
		return nil, err
	}
	flags, err := c.u32()
	if err != nil {
		return nil, err
	}
	ns, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	name, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	sig, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	// Trailing clrInstanceId is ignored (spec.md §4.6.2).

	return &MethodRecord{
		MethodID:     methodID,
		ModuleID:     moduleID,
		StartAddress: startAddr,
		Size:         size,
		MethodToken:  token,
		Flags:        flags,
		Namespace:    ns,
		Name:         name,
		Signature:    sig,
	}, nil
}

func parseMethodJitStart(payload []byte) (*MethodRecord, error) {
	c := newCursor(payload)

	methodID, err := c.u64()
	if err != nil {
		return nil, err
	}
	moduleID, err := c.u64()
	if err != nil {
		return nil, err
	}
	token, err := c.u32()
	if err != nil {
		return nil, err
	}
	ilSize, err := c.u32()
	if err != nil {
		return nil, err
	}
	ns, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	name, err := c.utf16String()
	if err != nil {
		return nil, err
	}
	sig, err := c.utf16String()
	if err != nil {
		return nil, err
	}

	return &MethodRecord{
		MethodID:    methodID,
		ModuleID:    moduleID,
		MethodToken: token,
		Size:        ilSize, // best estimate available pre-JIT-completion
		Namespace:   ns,
		Name:        name,
		Signature:   sig,
	}, nil
}

// AddMethod registers a method record directly, bypassing event
// decoding. Exposed so callers can merge externally-sourced methods
// (e.g. ahead-of-time-compiled images the trace never JITs) into a
// result before resolving stacks against it.
func (r *ParseResult) AddMethod(m *MethodRecord) {
	storeMethod(r, m)
}

func storeMethod(result *ParseResult, m *MethodRecord) {
	result.MethodsByID[m.MethodID] = m
	result.methodsByAddr = append(result.methodsByAddr, m)
}
