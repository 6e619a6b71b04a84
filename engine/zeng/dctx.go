package zeng

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/awksedgreep/go-openzl/engine"
)

// dctx is a reusable decompression context. Like cctx it is single-owner;
// the embedded zstd decoder state is mutated by every call.
type dctx struct {
	dec    *zstd.Decoder
	closed bool
}

func newDCtx() (*dctx, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxOutputSize))
	if err != nil {
		return nil, fmt.Errorf("cannot create block decoder: %v", err)
	}
	return &dctx{dec: dec}, nil
}

func (d *dctx) Decompress(dst, frame []byte) (int, error) {
	if d.closed {
		return 0, fmt.Errorf("decompression context is closed")
	}
	_, outs, err := parseFrame(frame)
	if err != nil {
		return 0, err
	}
	written := 0
	for i := range outs {
		raw, err := d.decodeOutput(&outs[i])
		if err != nil {
			return 0, fmt.Errorf("output %d: %v", i, err)
		}
		if written+len(raw) > len(dst) {
			return 0, fmt.Errorf("destination buffer too small (%d bytes)", len(dst))
		}
		written += copy(dst[written:], raw)
	}
	return written, nil
}

func (d *dctx) DecompressTyped(bufs []*engine.TypedBuffer, frame []byte) error {
	if d.closed {
		return fmt.Errorf("decompression context is closed")
	}
	_, outs, err := parseFrame(frame)
	if err != nil {
		return err
	}
	if len(outs) != len(bufs) {
		return fmt.Errorf("frame has %d outputs, %d buffers provided", len(outs), len(bufs))
	}
	for i := range outs {
		out := &outs[i]
		raw, err := d.decodeOutput(out)
		if err != nil {
			return fmt.Errorf("output %d: %v", i, err)
		}
		buf := bufs[i]
		buf.Kind = out.kind
		buf.Data = raw
		buf.NumElts = int(out.numElts)
		buf.EltWidth = int(out.eltWidth)
		buf.Lengths = nil
		if out.kind == engine.KindString {
			lensRaw, err := d.decodeBlock(out.lensEnc, out.lensBlock, int(out.numElts)*4)
			if err != nil {
				return fmt.Errorf("output %d lengths: %v", i, err)
			}
			buf.Lengths = unpackLengths(lensRaw)
		}
	}
	return nil
}

// maxOutputSize caps the raw size and element count a frame may declare.
// Anything larger is a corrupt header, not a payload to allocate for.
const maxOutputSize = 1 << 31

// checkOutputShape rejects width and size combinations no encoder produces,
// before any block is decoded or transformed.
func checkOutputShape(out *outputHeader) error {
	if out.rawSize > maxOutputSize {
		return fmt.Errorf("declared raw size %d exceeds limit", out.rawSize)
	}
	if out.numElts > maxOutputSize {
		return fmt.Errorf("declared element count %d exceeds limit", out.numElts)
	}
	// String elements each carry a 4-byte lengths sidecar entry, so counts
	// past maxOutputSize/4 cannot decode anyway.
	if out.kind == engine.KindString && out.numElts > maxOutputSize/4 {
		return fmt.Errorf("declared element count %d exceeds limit", out.numElts)
	}
	switch out.kind {
	case engine.KindNumeric:
		switch out.eltWidth {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("invalid element width %d for numeric output", out.eltWidth)
		}
	case engine.KindStruct:
		if out.eltWidth == 0 || out.eltWidth > maxOutputSize {
			return fmt.Errorf("invalid element width %d for struct output", out.eltWidth)
		}
	}
	if out.eltWidth != 0 && out.rawSize%out.eltWidth != 0 {
		return fmt.Errorf("raw size %d is not a multiple of element width %d", out.rawSize, out.eltWidth)
	}
	if out.transform == transformDelta {
		switch out.eltWidth {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("delta transform with element width %d", out.eltWidth)
		}
	}
	return nil
}

func (d *dctx) decodeOutput(out *outputHeader) ([]byte, error) {
	if err := checkOutputShape(out); err != nil {
		return nil, err
	}
	raw, err := d.decodeBlock(out.enc, out.block, int(out.rawSize))
	if err != nil {
		return nil, err
	}
	switch out.transform {
	case transformNone:
	case transformDelta:
		raw = deltaDecode(raw, int(out.eltWidth))
	default:
		return nil, fmt.Errorf("unknown transform %d", out.transform)
	}
	return raw, nil
}

func (d *dctx) decodeBlock(enc byte, block []byte, rawSize int) ([]byte, error) {
	var raw []byte
	switch enc {
	case encStored:
		raw = append([]byte(nil), block...)
	case encZstd:
		var err error
		raw, err = d.dec.DecodeAll(block, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("block decode: %v", err)
		}
	default:
		return nil, fmt.Errorf("unknown block encoding %d", enc)
	}
	if len(raw) != rawSize {
		return nil, fmt.Errorf("block decoded to %d bytes, header declares %d", len(raw), rawSize)
	}
	return raw, nil
}

func (d *dctx) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.dec.Close()
	return nil
}
