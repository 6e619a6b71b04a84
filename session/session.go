// Package session manages compression and decompression sessions: reusable,
// caller-owned handles to engine-side state, plus the typed-column
// marshalling that packs heterogeneous columns into a single frame and
// recovers them again.
//
// A session is affine to one logical owner: its engine state is mutated in
// place by every call, so concurrent use of one session is undefined.
// Callers that need parallelism create one session per goroutine. A
// Compressor, by contrast, is read-only once built and may be attached to
// any number of sessions at once.
package session

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/engine/zeng"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
	"github.com/awksedgreep/go-openzl/metrics"
)

type options struct {
	eng    engine.Engine
	logger *logrus.Logger
	met    *metrics.Set
}

// Option configures session construction.
type Option func(*options)

// WithEngine selects the engine backing the session. The default is the
// in-process reference engine.
func WithEngine(e engine.Engine) Option {
	return func(o *options) { o.eng = e }
}

// WithLogger enables structured debug logging through l. Without it the
// session is silent.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics routes the session's counters to m instead of the
// process-wide default set.
func WithMetrics(m *metrics.Set) Option {
	return func(o *options) { o.met = m }
}

func buildOptions(opts []Option) options {
	o := options{
		eng: zeng.Default(),
		met: metrics.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.logger = l
	}
	return o
}

// Version reports the default engine's library version string.
func Version() string {
	return zeng.Default().Version()
}

// CompressBound returns an upper bound on the frame size produced from
// srcLen input bytes, per the default engine.
func CompressBound(srcLen int) int {
	return zeng.Default().CompressBound(srcLen)
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Error kind predicates, re-exported so callers can branch on failure
// class without reaching into internal packages.

// IsValidationError reports whether err is a locally rejected input. No
// engine resources were touched.
func IsValidationError(err error) bool { return zerrors.IsValidation(err) }

// IsEngineError reports whether err came back from the engine.
func IsEngineError(err error) bool { return zerrors.IsEngine(err) }

// IsCompilationError reports whether err is a format description compiler
// diagnostic.
func IsCompilationError(err error) bool { return zerrors.IsCompilation(err) }

// IsAllocationError reports whether err is an engine-side handle creation
// failure.
func IsAllocationError(err error) bool { return zerrors.IsAllocation(err) }
