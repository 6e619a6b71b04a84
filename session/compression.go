package session

import (
	"github.com/sirupsen/logrus"

	"github.com/awksedgreep/go-openzl/column"
	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
	"github.com/awksedgreep/go-openzl/metrics"
)

// Compression is a reusable compression session. It owns one engine
// compression context, carries sticky configuration (compression level),
// and holds at most one attached Compressor. Not safe for concurrent use;
// see the package documentation for the affinity rules.
type Compression struct {
	eng      engine.Engine
	ctx      engine.CCtx
	defGraph engine.Graph
	attached *Compressor
	id       string
	log      *logrus.Entry
	met      *metrics.Set
	closed   bool
}

// NewCompression creates a compression session. The fresh session has the
// engine's generic graph installed, so typed encoding works before any
// Compressor is attached, and sticky parameters enabled, so SetLevel
// persists across calls.
func NewCompression(opts ...Option) (*Compression, error) {
	o := buildOptions(opts)
	ctx, err := o.eng.NewCCtx()
	if err != nil {
		return nil, zerrors.Allocation("create_compression_session", err, "compression context")
	}
	s := &Compression{
		eng: o.eng,
		ctx: ctx,
		id:  shortID(),
		met: o.met,
	}
	s.log = o.logger.WithFields(logrus.Fields{
		"component":  "session",
		"session_id": s.id,
	})

	// Engine defaults mirror the engine's own: current format version,
	// sticky parameters. Failures here leave the engine defaults in place.
	if err := ctx.SetParameter(engine.ParamFormatVersion, o.eng.DefaultFormatVersion()); err != nil {
		s.log.WithError(err).Debug("could not set default format version")
	}
	if err := ctx.SetParameter(engine.ParamStickyParameters, 1); err != nil {
		s.log.WithError(err).Debug("could not enable sticky parameters")
	}

	// Install the default generic graph. Best effort: a session without it
	// still handles serial compression.
	if g, gerr := o.eng.NewGraph(); gerr == nil {
		if serr := g.SelectStarting(engine.GraphGeneric); serr == nil {
			if rerr := ctx.RefGraph(g); rerr == nil {
				s.defGraph = g
			} else {
				g.Close()
				s.log.WithError(rerr).Debug("could not install default graph")
			}
		} else {
			g.Close()
			s.log.WithError(serr).Debug("could not select generic graph")
		}
	}

	s.log.Debug("compression session created")
	return s, nil
}

// SetLevel sets the compression level for all subsequent encode calls on
// this session until changed again. The value is forwarded to the engine
// unvalidated; out-of-range levels come back as engine errors.
func (s *Compression) SetLevel(level int) error {
	if s.closed {
		return zerrors.Validation("set_level", "session is closed")
	}
	if err := s.ctx.SetParameter(engine.ParamCompressionLevel, level); err != nil {
		return zerrors.Engine("set_level", err, "failed to set compression level")
	}
	s.log.WithField("level", level).Debug("compression level set")
	return nil
}

// Attach replaces the session's active compression graph with c's graph and
// retains c for the session's remaining lifetime. Attaching a different
// compressor releases the previously attached one.
func (s *Compression) Attach(c *Compressor) error {
	const op = "attach_compressor"
	if s.closed {
		return zerrors.Validation(op, "session is closed")
	}
	if c == nil {
		return zerrors.Validation(op, "compressor must not be nil")
	}
	if err := c.retain(); err != nil {
		return err
	}
	if err := s.ctx.RefGraph(c.graph); err != nil {
		c.release()
		return zerrors.Engine(op, err, "failed to set compressor")
	}
	if s.attached != nil {
		s.attached.release()
	}
	s.attached = c
	s.log.WithField("compressor_id", c.id).Debug("compressor attached")
	return nil
}

// Compress encodes src as a plain serial frame through this session's
// context and configuration.
func (s *Compression) Compress(src []byte) ([]byte, error) {
	const op = "compress"
	if s.closed {
		return nil, zerrors.Validation(op, "session is closed")
	}
	if len(src) == 0 {
		return nil, zerrors.Validation(op, "input must not be empty")
	}
	dst := make([]byte, s.eng.CompressBound(len(src)))
	n, err := s.ctx.Compress(dst, src)
	if err != nil {
		s.met.Add(metrics.CompressErrors, 1)
		return nil, zerrors.Engine(op, err, "compression failed")
	}
	s.recordCompress(op, len(src), n)
	return dst[:n], nil
}

// CompressColumn encodes one typed column into a single-output frame bound
// to the session's active graph.
func (s *Compression) CompressColumn(col column.Column) ([]byte, error) {
	const op = "compress_column"
	if s.closed {
		return nil, zerrors.Validation(op, "session is closed")
	}
	if col == nil {
		return nil, zerrors.Validation(op, "column must not be nil")
	}
	if err := col.Validate(); err != nil {
		return nil, zerrors.Validation(op, "%v", err)
	}
	ref, err := s.refFor(op, col)
	if err != nil {
		return nil, err
	}
	return s.encode(op, []*engine.TypedRef{ref}, len(ref.Data))
}

// CompressColumns encodes an ordered, non-empty sequence of typed columns
// into one multi-output frame. Validation is all-or-nothing: the first
// invalid column fails the whole call before the engine sees anything, and
// output order in the frame matches input order.
func (s *Compression) CompressColumns(cols []column.Column) ([]byte, error) {
	const op = "compress_columns"
	if s.closed {
		return nil, zerrors.Validation(op, "session is closed")
	}
	if len(cols) == 0 {
		return nil, zerrors.Validation(op, "column list must not be empty")
	}
	for i, col := range cols {
		if col == nil {
			return nil, zerrors.Validation(op, "column %d: must not be nil", i)
		}
		if err := col.Validate(); err != nil {
			return nil, zerrors.Validation(op, "column %d: %v", i, err)
		}
	}
	refs := make([]*engine.TypedRef, 0, len(cols))
	total := 0
	for _, col := range cols {
		ref, err := s.refFor(op, col)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		total += len(ref.Data)
	}
	return s.encode(op, refs, total)
}

func (s *Compression) encode(op string, refs []*engine.TypedRef, totalIn int) ([]byte, error) {
	// The bound input counts the string lengths sidecar along with the
	// payload; string frames carry a packed lengths block per output.
	boundIn := 0
	for _, ref := range refs {
		boundIn += len(ref.Data) + 4*len(ref.Lengths)
	}
	dst := make([]byte, s.eng.CompressBound(boundIn))
	n, err := s.ctx.CompressTyped(dst, refs)
	if err != nil {
		s.met.Add(metrics.CompressErrors, 1)
		return nil, zerrors.Engine(op, err, "typed compression failed")
	}
	s.recordCompress(op, totalIn, n)
	return dst[:n], nil
}

func (s *Compression) recordCompress(op string, in, out int) {
	s.met.Add(metrics.CompressOps, 1)
	s.met.Add(metrics.CompressBytesIn, uint64(in))
	s.met.Add(metrics.CompressBytesOut, uint64(out))
	s.log.WithFields(logrus.Fields{
		"op":        op,
		"bytes_in":  in,
		"bytes_out": out,
	}).Debug("compressed")
}

// Close releases the engine context, the default graph, and any reference
// to an attached compressor. Idempotent.
func (s *Compression) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.attached != nil {
		s.attached.release()
		s.attached = nil
	}
	if s.defGraph != nil {
		s.defGraph.Close()
		s.defGraph = nil
	}
	err := s.ctx.Close()
	s.log.Debug("compression session closed")
	return err
}
