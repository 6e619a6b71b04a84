// Package zeng is the reference implementation of the engine boundary. It
// produces self-describing multi-output frames whose payload blocks are
// zstd-compressed, with optional per-kind pre-transforms (currently delta
// coding for numeric outputs) selected by a compiled format description.
//
// The frame layout is owned by this package and opaque to everything above
// the engine contract. Blocks that zstd cannot shrink are stored raw so a
// frame never exceeds the bound reported by CompressBound.
package zeng

import (
	"fmt"

	"github.com/awksedgreep/go-openzl/engine"
)

const (
	// currentFormatVersion is the newest frame encoding this engine writes.
	currentFormatVersion = 2
	minFormatVersion     = 1

	minLevel     = 1
	maxLevel     = 19
	defaultLevel = 3

	libraryVersion = 10402 // major*10000 + minor*100 + patch
)

// Engine implements the engine boundary contract. The zero value is not
// usable; construct with New.
type Engine struct{}

// New returns a zeng engine instance.
func New() *Engine {
	return &Engine{}
}

var defaultEngine = New()

// Default returns a process-wide shared engine instance. The instance holds
// no mutable state, so sharing it is safe.
func Default() *Engine {
	return defaultEngine
}

func (e *Engine) Version() string {
	return fmt.Sprintf("%d.%d.%d", libraryVersion/10000, (libraryVersion/100)%100, libraryVersion%100)
}

func (e *Engine) DefaultFormatVersion() int {
	return currentFormatVersion
}

// CompressBound returns a destination size sufficient for any frame built
// from srcLen input bytes, where string columns count their packed lengths
// sidecar (4 bytes per element) as input. The slack covers frame and
// per-output headers plus the stored-block fallback.
func (e *Engine) CompressBound(srcLen int) int {
	return srcLen + srcLen>>8 + 1024
}

func (e *Engine) NewCCtx() (engine.CCtx, error) {
	return newCCtx(), nil
}

func (e *Engine) NewDCtx() (engine.DCtx, error) {
	return newDCtx()
}

func (e *Engine) NewGraph() (engine.Graph, error) {
	return newGraph(), nil
}

func (e *Engine) NewTypedRef(kind engine.Kind, data []byte, eltWidth int, lengths []uint32) (*engine.TypedRef, error) {
	switch kind {
	case engine.KindNumeric, engine.KindStruct:
		if eltWidth <= 0 || len(data)%eltWidth != 0 {
			return nil, fmt.Errorf("typed ref shape mismatch: %d bytes with element width %d", len(data), eltWidth)
		}
		if lengths != nil {
			return nil, fmt.Errorf("lengths are only valid for string refs")
		}
	case engine.KindString:
		var total int
		for _, n := range lengths {
			total += int(n)
		}
		if total != len(data) {
			return nil, fmt.Errorf("string lengths sum to %d, payload is %d bytes", total, len(data))
		}
	default:
		return nil, fmt.Errorf("unsupported typed ref kind %q", kind)
	}
	return &engine.TypedRef{Kind: kind, Data: data, EltWidth: eltWidth, Lengths: lengths}, nil
}

func (e *Engine) NewTypedBuffer() (*engine.TypedBuffer, error) {
	return &engine.TypedBuffer{}, nil
}

func (e *Engine) CompileDescription(source string) ([]byte, error) {
	return compileDescription(source)
}

func (e *Engine) FrameOutputCount(frame []byte) (int, error) {
	hdr, err := parseFrameHeader(frame)
	if err != nil {
		return 0, err
	}
	return hdr.numOutputs, nil
}

func (e *Engine) FrameDecompressedSize(frame []byte) (int, error) {
	_, outs, err := parseFrame(frame)
	if err != nil {
		return 0, err
	}
	var total int
	for _, out := range outs {
		total += int(out.rawSize)
	}
	return total, nil
}

func (e *Engine) OpenFrame(frame []byte) (engine.FrameReader, error) {
	return openFrameReader(frame)
}

var _ engine.Engine = (*Engine)(nil)
