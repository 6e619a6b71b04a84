package session

import (
	"github.com/sirupsen/logrus"

	"github.com/awksedgreep/go-openzl/column"
	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
	"github.com/awksedgreep/go-openzl/metrics"
)

// Decompression is a reusable decompression session. Not safe for
// concurrent use.
type Decompression struct {
	eng    engine.Engine
	ctx    engine.DCtx
	id     string
	log    *logrus.Entry
	met    *metrics.Set
	closed bool
}

// NewDecompression creates a decompression session.
func NewDecompression(opts ...Option) (*Decompression, error) {
	o := buildOptions(opts)
	ctx, err := o.eng.NewDCtx()
	if err != nil {
		return nil, zerrors.Allocation("create_decompression_session", err, "decompression context")
	}
	s := &Decompression{
		eng: o.eng,
		ctx: ctx,
		id:  shortID(),
		met: o.met,
	}
	s.log = o.logger.WithFields(logrus.Fields{
		"component":  "session",
		"session_id": s.id,
	})
	s.log.Debug("decompression session created")
	return s, nil
}

// Decompress decodes a serial frame, sizing the output from the frame's
// declared decompressed size.
func (s *Decompression) Decompress(frame []byte) ([]byte, error) {
	const op = "decompress"
	if s.closed {
		return nil, zerrors.Validation(op, "session is closed")
	}
	if len(frame) == 0 {
		return nil, zerrors.Validation(op, "input must not be empty")
	}
	size, err := s.eng.FrameDecompressedSize(frame)
	if err != nil {
		s.met.Add(metrics.DecompressErrors, 1)
		return nil, zerrors.Engine(op, err, "failed to read decompressed size from frame")
	}
	dst := make([]byte, size)
	n, err := s.ctx.Decompress(dst, frame)
	if err != nil {
		s.met.Add(metrics.DecompressErrors, 1)
		return nil, zerrors.Engine(op, err, "decompression failed")
	}
	s.recordDecompress(op, len(frame), n)
	return dst[:n], nil
}

// DecompressColumn decodes a single-output frame into one typed output,
// reconstructing kind, element shape, raw bytes, and string lengths.
func (s *Decompression) DecompressColumn(frame []byte) (*column.Output, error) {
	const op = "decompress_column"
	if s.closed {
		return nil, zerrors.Validation(op, "session is closed")
	}
	if len(frame) == 0 {
		return nil, zerrors.Validation(op, "input must not be empty")
	}
	buf, err := s.eng.NewTypedBuffer()
	if err != nil {
		return nil, zerrors.Allocation(op, err, "typed buffer")
	}
	if err := s.ctx.DecompressTyped([]*engine.TypedBuffer{buf}, frame); err != nil {
		s.met.Add(metrics.DecompressErrors, 1)
		return nil, zerrors.Engine(op, err, "typed decompression failed")
	}
	s.recordDecompress(op, len(frame), len(buf.Data))
	return outputFrom(buf), nil
}

// DecompressColumns decodes every output of a frame, in encode order. The
// frame's declared output count is read first; a frame whose count cannot
// be read fails before any output allocation.
func (s *Decompression) DecompressColumns(frame []byte) ([]*column.Output, error) {
	const op = "decompress_columns"
	if s.closed {
		return nil, zerrors.Validation(op, "session is closed")
	}
	if len(frame) == 0 {
		return nil, zerrors.Validation(op, "input must not be empty")
	}
	count, err := s.eng.FrameOutputCount(frame)
	if err != nil {
		s.met.Add(metrics.DecompressErrors, 1)
		return nil, zerrors.Engine(op, err, "failed to get number of outputs from frame")
	}
	bufs := make([]*engine.TypedBuffer, count)
	for i := range bufs {
		if bufs[i], err = s.eng.NewTypedBuffer(); err != nil {
			return nil, zerrors.Allocation(op, err, "typed buffer")
		}
	}
	if err := s.ctx.DecompressTyped(bufs, frame); err != nil {
		s.met.Add(metrics.DecompressErrors, 1)
		return nil, zerrors.Engine(op, err, "multi-typed decompression failed")
	}
	outputs := make([]*column.Output, count)
	raw := 0
	for i, buf := range bufs {
		outputs[i] = outputFrom(buf)
		raw += len(buf.Data)
	}
	s.recordDecompress(op, len(frame), raw)
	return outputs, nil
}

func (s *Decompression) recordDecompress(op string, in, out int) {
	s.met.Add(metrics.DecompressOps, 1)
	s.met.Add(metrics.DecompressBytesIn, uint64(in))
	s.met.Add(metrics.DecompressBytesOut, uint64(out))
	s.log.WithFields(logrus.Fields{
		"op":        op,
		"bytes_in":  in,
		"bytes_out": out,
	}).Debug("decompressed")
}

// Close releases the engine context. Idempotent.
func (s *Decompression) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.ctx.Close()
	s.log.Debug("decompression session closed")
	return err
}
