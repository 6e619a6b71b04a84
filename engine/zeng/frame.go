package zeng

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/awksedgreep/go-openzl/engine"
)

// Frame layout, all integers little-endian or uvarint:
//
//	magic "ZENG" | version u8 | flags u8 | numOutputs uvarint | outputs...
//
// Each output:
//
//	kind u8 | enc u8 | transform u8
//	eltWidth uvarint | numElts uvarint | rawSize uvarint
//	blockLen uvarint | block
//	string only: lensEnc u8 | lensBlockLen uvarint | lensBlock
//
// enc selects the block encoding (zstd or stored), transform the reversible
// pre-transform applied before block encoding.
var frameMagic = []byte("ZENG")

const (
	encZstd   = 0
	encStored = 1

	transformNone  = 0
	transformDelta = 1

	// Smallest possible encoded output: three fixed bytes plus four
	// single-byte uvarints. Bounds the output count a header may declare.
	minOutputBytes = 7
)

type outputHeader struct {
	kind      engine.Kind
	enc       byte
	transform byte
	eltWidth  uint64
	numElts   uint64
	rawSize   uint64
	block     []byte
	lensEnc   byte
	lensBlock []byte
}

type frameHeader struct {
	version    int
	numOutputs int
	rest       []byte
}

func parseFrameHeader(frame []byte) (frameHeader, error) {
	var hdr frameHeader
	if len(frame) < len(frameMagic)+2 {
		return hdr, fmt.Errorf("frame too short (%d bytes)", len(frame))
	}
	if !bytes.Equal(frame[:len(frameMagic)], frameMagic) {
		return hdr, fmt.Errorf("bad frame magic")
	}
	version := int(frame[len(frameMagic)])
	if version < minFormatVersion || version > currentFormatVersion {
		return hdr, fmt.Errorf("unsupported frame format version %d", version)
	}
	rest := frame[len(frameMagic)+2:]
	n, read := binary.Uvarint(rest)
	if read <= 0 {
		return hdr, fmt.Errorf("cannot read output count")
	}
	body := rest[read:]
	if n > uint64(len(body))/minOutputBytes {
		return hdr, fmt.Errorf("declared output count %d exceeds frame size", n)
	}
	hdr.version = version
	hdr.numOutputs = int(n)
	hdr.rest = body
	return hdr, nil
}

// parseFrame reads the whole frame strictly; any unreadable field is an
// error. Decompression uses this path.
func parseFrame(frame []byte) (int, []outputHeader, error) {
	hdr, err := parseFrameHeader(frame)
	if err != nil {
		return 0, nil, err
	}
	outs := make([]outputHeader, 0, hdr.numOutputs)
	rest := hdr.rest
	for i := 0; i < hdr.numOutputs; i++ {
		out, tail, err := parseOutput(rest)
		if err != nil {
			return 0, nil, fmt.Errorf("output %d: %v", i, err)
		}
		outs = append(outs, out)
		rest = tail
	}
	return hdr.version, outs, nil
}

func parseOutput(b []byte) (outputHeader, []byte, error) {
	var out outputHeader
	if len(b) < 3 {
		return out, nil, fmt.Errorf("truncated output header")
	}
	kind := b[0]
	if kind > uint8(engine.KindString) {
		out.kind = engine.KindUnknown
	} else {
		out.kind = engine.Kind(kind)
	}
	out.enc = b[1]
	out.transform = b[2]
	b = b[3:]

	var err error
	if out.eltWidth, b, err = readUvarint(b, "element width"); err != nil {
		return out, nil, err
	}
	if out.numElts, b, err = readUvarint(b, "element count"); err != nil {
		return out, nil, err
	}
	if out.rawSize, b, err = readUvarint(b, "raw size"); err != nil {
		return out, nil, err
	}
	var blockLen uint64
	if blockLen, b, err = readUvarint(b, "block length"); err != nil {
		return out, nil, err
	}
	if uint64(len(b)) < blockLen {
		return out, nil, fmt.Errorf("truncated block (%d of %d bytes)", len(b), blockLen)
	}
	out.block = b[:blockLen]
	b = b[blockLen:]

	if out.kind == engine.KindString {
		if len(b) < 1 {
			return out, nil, fmt.Errorf("truncated string lengths header")
		}
		out.lensEnc = b[0]
		b = b[1:]
		var lensLen uint64
		if lensLen, b, err = readUvarint(b, "lengths block length"); err != nil {
			return out, nil, err
		}
		if uint64(len(b)) < lensLen {
			return out, nil, fmt.Errorf("truncated lengths block (%d of %d bytes)", len(b), lensLen)
		}
		out.lensBlock = b[:lensLen]
		b = b[lensLen:]
	}
	return out, b, nil
}

func readUvarint(b []byte, what string) (uint64, []byte, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, fmt.Errorf("cannot read %s", what)
	}
	return v, b[n:], nil
}

func appendOutput(dst []byte, out outputHeader) []byte {
	dst = append(dst, uint8(out.kind), out.enc, out.transform)
	dst = binary.AppendUvarint(dst, out.eltWidth)
	dst = binary.AppendUvarint(dst, out.numElts)
	dst = binary.AppendUvarint(dst, out.rawSize)
	dst = binary.AppendUvarint(dst, uint64(len(out.block)))
	dst = append(dst, out.block...)
	if out.kind == engine.KindString {
		dst = append(dst, out.lensEnc)
		dst = binary.AppendUvarint(dst, uint64(len(out.lensBlock)))
		dst = append(dst, out.lensBlock...)
	}
	return dst
}

func appendFrameHeader(dst []byte, version, numOutputs int) []byte {
	dst = append(dst, frameMagic...)
	dst = append(dst, byte(version), 0)
	return binary.AppendUvarint(dst, uint64(numOutputs))
}

// frameReader is the tolerant metadata view behind OpenFrame. Parsing stops
// at the first unreadable field; everything after it reports per-field
// errors instead of failing the open.
type frameReader struct {
	version    int
	numOutputs int
	outputs    []outputMeta
}

type outputMeta struct {
	kind      engine.Kind
	kindOK    bool
	size      int
	sizeOK    bool
	numElts   int
	numEltsOK bool
}

func openFrameReader(frame []byte) (engine.FrameReader, error) {
	hdr, err := parseFrameHeader(frame)
	if err != nil {
		return nil, err
	}
	r := &frameReader{
		version:    hdr.version,
		numOutputs: hdr.numOutputs,
		outputs:    make([]outputMeta, hdr.numOutputs),
	}
	rest := hdr.rest
	for i := 0; i < hdr.numOutputs; i++ {
		out, tail, err := parseOutput(rest)
		meta := &r.outputs[i]
		// Record whatever parsed before the failure point.
		meta.kind = out.kind
		meta.kindOK = len(rest) >= 3
		if err != nil {
			// The failed field and everything after it stay unknown.
			break
		}
		meta.size = int(out.rawSize)
		meta.sizeOK = true
		meta.numElts = int(out.numElts)
		meta.numEltsOK = true
		rest = tail
	}
	return r, nil
}

func (r *frameReader) FormatVersion() (int, error) {
	return r.version, nil
}

func (r *frameReader) NumOutputs() (int, error) {
	return r.numOutputs, nil
}

func (r *frameReader) outputAt(i int) (*outputMeta, error) {
	if i < 0 || i >= len(r.outputs) {
		return nil, fmt.Errorf("output index %d out of range", i)
	}
	return &r.outputs[i], nil
}

func (r *frameReader) OutputKind(i int) (engine.Kind, error) {
	out, err := r.outputAt(i)
	if err != nil {
		return engine.KindUnknown, err
	}
	if !out.kindOK {
		return engine.KindUnknown, fmt.Errorf("output %d kind unreadable", i)
	}
	return out.kind, nil
}

func (r *frameReader) OutputSize(i int) (int, error) {
	out, err := r.outputAt(i)
	if err != nil {
		return 0, err
	}
	if !out.sizeOK {
		return 0, fmt.Errorf("output %d size unreadable", i)
	}
	return out.size, nil
}

func (r *frameReader) OutputNumElts(i int) (int, error) {
	out, err := r.outputAt(i)
	if err != nil {
		return 0, err
	}
	if !out.numEltsOK {
		return 0, fmt.Errorf("output %d element count unreadable", i)
	}
	return out.numElts, nil
}

func (r *frameReader) Close() error {
	return nil
}
