// Package otlpprofiles holds the OTLP profiles dictionary wire types
// consumed by the ingestion service. The profiles signal was still
// experimental upstream at the time of writing, with no stable generated Go
// module to import, so these are hand-maintained structs mirroring the
// proto shape directly — the same thing the teacher repo does for the
// experimental profiles descriptors it vendors under
// proto/experiments/opentelemetry/proto/profiles/v1. Attribute values reuse
// the stable, released common/v1 AnyValue rather than reinventing it.
package otlpprofiles

import commonpb "go.opentelemetry.io/proto/otlp/common/v1"

// ValueType describes the semantic type and unit of a sample value or a
// profile's period, both as indices into the owning dictionary's string
// table.
type ValueType struct {
	TypeStrindex int32
	UnitStrindex int32
}

// Function is one named, callable unit.
type Function struct {
	NameStrindex       int32
	SystemNameStrindex int32
	FilenameStrindex   int32
	StartLine          int64
}

// Line attributes one program-counter range to a function at a source line,
// possibly inlined (a Location may carry several Lines, outermost last).
type Line struct {
	FunctionIndex int32
	Line          int64
	Column        int64
}

// Mapping is one loaded binary or shared object.
type Mapping struct {
	MemoryStart      uint64
	MemoryLimit      uint64
	FileOffset       uint64
	FilenameStrindex int32
	AttributeIndices []int32
}

// Location is one resolved program-counter sample point: an address,
// optionally inside a Mapping, optionally resolved to one or more Lines
// (multiple when the innermost frame was inlined).
type Location struct {
	MappingIndex     *int32
	Address          uint64
	Lines            []Line
	AttributeIndices []int32
}

// Stack is an ordered sequence of location-table indices, leaf-first
// (stack[0] is the innermost/leaf frame).
type Stack struct {
	LocationIndices []int32
}

// Sample is one observation: a stack reference plus value(s) and, for the
// timestamp-delta profiling type, the exact unix-nano timestamps it
// represents.
type Sample struct {
	StackIndex         int32
	Values             []int64
	TimestampsUnixNano []uint64
	AttributeIndices   []int32
}

// Profile is one self-contained sample set referencing its owning
// dictionary by array index.
type Profile struct {
	SampleType       []ValueType
	Sample           []*Sample
	TimeNanos        int64
	DurationNanos    int64
	PeriodType       ValueType
	Period           int64
	AttributeIndices []int32
}

// Dictionary is the string/attribute/mapping/location/function/stack
// dictionary shared by every Profile in one export request.
type Dictionary struct {
	MappingTable   []*Mapping
	LocationTable  []*Location
	FunctionTable  []*Function
	StackTable     []*Stack
	StringTable    []string
	AttributeTable []*commonpb.KeyValue
}

// String resolves a string-table index, returning "" for an out-of-range
// index rather than panicking — dictionaries arrive from an untrusted peer.
func (d *Dictionary) String(idx int32) string {
	if idx < 0 || int(idx) >= len(d.StringTable) {
		return ""
	}
	return d.StringTable[idx]
}

// Attribute resolves one attribute-table entry by index.
func (d *Dictionary) Attribute(idx int32) *commonpb.KeyValue {
	if idx < 0 || int(idx) >= len(d.AttributeTable) {
		return nil
	}
	return d.AttributeTable[idx]
}

// AttributeString looks up key among the KeyValue entries named by indices
// and returns its string value, if the value is a string.
func (d *Dictionary) AttributeString(indices []int32, key string) (string, bool) {
	for _, idx := range indices {
		kv := d.Attribute(idx)
		if kv == nil || kv.Key != key {
			continue
		}
		if sv, ok := kv.Value.GetValue().(*commonpb.AnyValue_StringValue); ok {
			return sv.StringValue, true
		}
	}
	return "", false
}
