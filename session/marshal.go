package session

import (
	"encoding/binary"

	"github.com/awksedgreep/go-openzl/column"
	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
)

// refFor hands one validated column to the engine as a typed reference.
// The switch is exhaustive over the column variants.
func (s *Compression) refFor(op string, col column.Column) (*engine.TypedRef, error) {
	var (
		ref *engine.TypedRef
		err error
		// what names the handle kind in allocation failures.
		what string
	)
	switch c := col.(type) {
	case column.Numeric:
		what = "numeric typed ref"
		ref, err = s.eng.NewTypedRef(engine.KindNumeric, c.Data, c.Width, nil)
	case column.Struct:
		what = "struct typed ref"
		ref, err = s.eng.NewTypedRef(engine.KindStruct, c.Data, c.RecordWidth, nil)
	case column.String:
		what = "string typed ref"
		ref, err = s.eng.NewTypedRef(engine.KindString, c.Data, 0, unpackLengths(c.Lengths))
	default:
		return nil, zerrors.Validation(op, "unknown column variant %T", col)
	}
	if err != nil {
		return nil, zerrors.Allocation(op, err, what)
	}
	return ref, nil
}

// outputFrom converts a filled engine buffer into the caller-facing output,
// repacking string lengths into the little-endian byte layout used on the
// encode side.
func outputFrom(buf *engine.TypedBuffer) *column.Output {
	out := &column.Output{
		Kind:         buf.Kind,
		Data:         buf.Data,
		ElementWidth: buf.EltWidth,
		NumElements:  buf.NumElts,
	}
	if buf.Kind == engine.KindString && buf.Lengths != nil {
		out.StringLengths = packLengths(buf.Lengths)
	}
	return out
}

func packLengths(lengths []uint32) []byte {
	out := make([]byte, len(lengths)*4)
	for i, n := range lengths {
		binary.LittleEndian.PutUint32(out[i*4:], n)
	}
	return out
}

func unpackLengths(raw []byte) []uint32 {
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out
}
