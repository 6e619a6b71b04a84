// Package metrics provides allocation-free operation counters for the
// marshalling layer. Counters live in cache-line-padded slots and are
// incremented atomically; exporters read consistent-enough Snapshot values
// and never touch the write path.
package metrics

import "sync/atomic"

// ID indexes one counter.
type ID uint8

const (
	CompressOps ID = iota
	CompressErrors
	CompressBytesIn
	CompressBytesOut
	DecompressOps
	DecompressErrors
	DecompressBytesIn
	DecompressBytesOut

	numMetrics
)

// Def describes one counter for exporters.
type Def struct {
	ID   ID
	Name string
	Help string
}

// Defs lists every counter in ID order.
var Defs = []Def{
	{CompressOps, "openzl_compress_ops_total", "Completed compression calls."},
	{CompressErrors, "openzl_compress_errors_total", "Failed compression calls."},
	{CompressBytesIn, "openzl_compress_bytes_in_total", "Raw bytes submitted for compression."},
	{CompressBytesOut, "openzl_compress_bytes_out_total", "Frame bytes produced by compression."},
	{DecompressOps, "openzl_decompress_ops_total", "Completed decompression calls."},
	{DecompressErrors, "openzl_decompress_errors_total", "Failed decompression calls."},
	{DecompressBytesIn, "openzl_decompress_bytes_in_total", "Frame bytes submitted for decompression."},
	{DecompressBytesOut, "openzl_decompress_bytes_out_total", "Raw bytes produced by decompression."},
}

type paddedUint64 struct {
	v uint64
	_ [56]byte
}

// Set is one independent group of counters. The zero value is ready to use.
type Set struct {
	slots [numMetrics]paddedUint64
}

var defaultSet Set

// Default returns the process-wide counter set sessions use unless given
// their own.
func Default() *Set {
	return &defaultSet
}

// Add increments one counter.
func (s *Set) Add(id ID, n uint64) {
	atomic.AddUint64(&s.slots[id].v, n)
}

// Snapshot is a point-in-time copy of every counter value.
type Snapshot [numMetrics]uint64

// Snapshot reads all counters. Values are individually atomic, not mutually
// consistent, which is sufficient for monotonic counters.
func (s *Set) Snapshot() Snapshot {
	var snap Snapshot
	for i := range s.slots {
		snap[i] = atomic.LoadUint64(&s.slots[i].v)
	}
	return snap
}

// Get returns the value for one counter.
func (snap Snapshot) Get(id ID) uint64 {
	return snap[id]
}
