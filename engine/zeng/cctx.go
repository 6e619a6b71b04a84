package zeng

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/awksedgreep/go-openzl/engine"
)

// cctx is a reusable compression context. Parameter state is mutated in
// place by every call, so a cctx must not be shared between goroutines.
type cctx struct {
	level         int
	formatVersion int
	sticky        bool
	graph         *graph
	enc           *zstd.Encoder
	closed        bool
}

func newCCtx() *cctx {
	return &cctx{
		level:         defaultLevel,
		formatVersion: currentFormatVersion,
	}
}

func (c *cctx) SetParameter(p engine.Param, value int) error {
	if c.closed {
		return fmt.Errorf("compression context is closed")
	}
	switch p {
	case engine.ParamCompressionLevel:
		if value < minLevel || value > maxLevel {
			return fmt.Errorf("compression level %d out of range [%d, %d]", value, minLevel, maxLevel)
		}
		c.level = value
		c.dropEncoder()
	case engine.ParamFormatVersion:
		if value < minFormatVersion || value > currentFormatVersion {
			return fmt.Errorf("unsupported format version %d", value)
		}
		c.formatVersion = value
	case engine.ParamStickyParameters:
		c.sticky = value != 0
	default:
		return fmt.Errorf("unknown parameter %d", p)
	}
	return nil
}

func (c *cctx) RefGraph(g engine.Graph) error {
	if c.closed {
		return fmt.Errorf("compression context is closed")
	}
	zg, ok := g.(*graph)
	if !ok {
		return fmt.Errorf("graph was not created by this engine")
	}
	c.graph = zg
	return nil
}

func (c *cctx) Compress(dst, src []byte) (int, error) {
	ref := &engine.TypedRef{Kind: engine.KindSerial, Data: src, EltWidth: 1}
	return c.CompressTyped(dst, []*engine.TypedRef{ref})
}

func (c *cctx) CompressTyped(dst []byte, refs []*engine.TypedRef) (int, error) {
	if c.closed {
		return 0, fmt.Errorf("compression context is closed")
	}
	prof := c.profile()
	enc, err := c.encoder()
	if err != nil {
		return 0, err
	}

	frame := appendFrameHeader(nil, c.formatVersion, len(refs))
	for i, ref := range refs {
		out, err := c.encodeOutput(enc, prof, ref)
		if err != nil {
			return 0, fmt.Errorf("output %d: %v", i, err)
		}
		frame = appendOutput(frame, out)
	}
	if len(frame) > len(dst) {
		return 0, fmt.Errorf("destination buffer too small for frame (%d bytes needed, %d available)", len(frame), len(dst))
	}
	n := copy(dst, frame)
	if !c.sticky {
		c.resetParameters()
	}
	return n, nil
}

func (c *cctx) encodeOutput(enc *zstd.Encoder, prof profile, ref *engine.TypedRef) (outputHeader, error) {
	out := outputHeader{
		kind:     ref.Kind,
		eltWidth: uint64(ref.EltWidth),
		numElts:  uint64(ref.NumElts()),
		rawSize:  uint64(len(ref.Data)),
	}
	raw := ref.Data
	if ref.Kind == engine.KindNumeric && prof.deltaNumeric {
		raw = deltaEncode(ref.Data, ref.EltWidth)
		out.transform = transformDelta
	}
	out.enc, out.block = encodeBlock(enc, raw)
	if ref.Kind == engine.KindString {
		out.eltWidth = 0
		lensRaw := packLengths(ref.Lengths)
		out.lensEnc, out.lensBlock = encodeBlock(enc, lensRaw)
	}
	return out, nil
}

// encodeBlock falls back to storing the raw bytes when zstd does not shrink
// them, keeping frames within CompressBound.
func encodeBlock(enc *zstd.Encoder, raw []byte) (byte, []byte) {
	block := enc.EncodeAll(raw, nil)
	if len(block) >= len(raw) {
		return encStored, raw
	}
	return encZstd, block
}

func (c *cctx) profile() profile {
	if c.graph == nil {
		return profile{}
	}
	return c.graph.activeProfile()
}

func (c *cctx) encoder() (*zstd.Encoder, error) {
	if c.enc != nil {
		return c.enc, nil
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("cannot create block encoder: %v", err)
	}
	c.enc = enc
	return enc, nil
}

func (c *cctx) dropEncoder() {
	if c.enc != nil {
		c.enc.Close()
		c.enc = nil
	}
}

func (c *cctx) resetParameters() {
	if c.level != defaultLevel {
		c.level = defaultLevel
		c.dropEncoder()
	}
	c.formatVersion = currentFormatVersion
}

func (c *cctx) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.dropEncoder()
	c.graph = nil
	return nil
}
