// Package engine defines the boundary contract with the format-aware
// compression engine. The engine performs the actual byte-level work
// (entropy coding, typed transforms, graph execution); everything above it
// (sessions, column marshalling, frame introspection) talks to the engine
// exclusively through the types in this package.
//
// Handle types returned by an Engine (CCtx, DCtx, Graph, FrameReader) wrap
// engine-side state and must be released with Close when no longer needed.
package engine

// Kind identifies the typed representation of one frame output.
type Kind uint8

const (
	KindSerial Kind = iota
	KindStruct
	KindNumeric
	KindString
	KindUnknown
)

// String returns the wire-level name used in logs and frame introspection.
func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindStruct:
		return "struct"
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Param is a session-wide engine parameter set through CCtx.SetParameter.
type Param int

const (
	// ParamFormatVersion selects the frame encoding version written by the
	// context.
	ParamFormatVersion Param = iota + 1
	// ParamCompressionLevel selects the effort/ratio trade-off. The engine
	// owns the accepted range; values outside it are rejected with an
	// engine error, not clamped.
	ParamCompressionLevel
	// ParamStickyParameters makes parameter values persist across compress
	// calls on the same context instead of resetting after each call.
	ParamStickyParameters
)

// GraphID names a compression graph inside a Graph handle.
type GraphID int

// GraphGeneric is the engine's built-in generic compression graph. It is
// valid as a starting graph on any Graph handle.
const GraphGeneric GraphID = 1

// TypedRef is a read-only reference to one column of caller data, shaped so
// the engine can run typed transforms over it. Created via Engine.NewTypedRef
// and valid only for the duration of one compress call.
type TypedRef struct {
	Kind     Kind
	Data     []byte
	EltWidth int
	// Lengths holds the per-string byte lengths. Set only for KindString,
	// in which case EltWidth is ignored.
	Lengths []uint32
}

// NumElts returns the element count implied by the reference shape.
func (r *TypedRef) NumElts() int {
	if r.Kind == KindString {
		return len(r.Lengths)
	}
	if r.EltWidth == 0 {
		return 0
	}
	return len(r.Data) / r.EltWidth
}

// TypedBuffer receives one decoded frame output. The engine allocates the
// payload and fills in the shape during DecompressTyped.
type TypedBuffer struct {
	Kind     Kind
	Data     []byte
	EltWidth int
	NumElts  int
	// Lengths is set only when Kind == KindString.
	Lengths []uint32
}

// CCtx is a reusable engine-side compression context. Not safe for
// concurrent use.
type CCtx interface {
	// SetParameter updates one session-wide parameter. Out-of-range values
	// are rejected by the engine.
	SetParameter(p Param, value int) error

	// Compress encodes src as a single serial-output frame into dst and
	// returns the number of bytes written. dst must be at least
	// Engine.CompressBound(len(src)) bytes; a too-small dst is an error,
	// never a truncated frame.
	Compress(dst, src []byte) (int, error)

	// CompressTyped encodes the referenced columns, in order, into one
	// multi-output frame in dst and returns the number of bytes written.
	CompressTyped(dst []byte, refs []*TypedRef) (int, error)

	// RefGraph installs g's starting graph as the context's active
	// compression graph. The context only reads the graph; g may be shared
	// with other contexts.
	RefGraph(g Graph) error

	Close() error
}

// DCtx is a reusable engine-side decompression context. Not safe for
// concurrent use.
type DCtx interface {
	// Decompress decodes a serial frame into dst and returns the number of
	// bytes written.
	Decompress(dst, frame []byte) (int, error)

	// DecompressTyped decodes every output of frame into bufs. len(bufs)
	// must equal the frame's output count.
	DecompressTyped(bufs []*TypedBuffer, frame []byte) error

	Close() error
}

// Graph is an engine-side compiled compression graph.
type Graph interface {
	// SetupProfile loads a compiled format description into the graph and
	// returns the id of the graph it produced.
	SetupProfile(description []byte) (GraphID, error)

	// SelectStarting validates id and makes it the graph executed when the
	// graph is installed on a context.
	SelectStarting(id GraphID) error

	Close() error
}

// FrameReader exposes frame metadata without decoding payloads. Per-output
// accessors may fail individually on damaged frames; each failure is scoped
// to that accessor.
type FrameReader interface {
	FormatVersion() (int, error)
	NumOutputs() (int, error)
	OutputKind(i int) (Kind, error)
	OutputSize(i int) (int, error)
	OutputNumElts(i int) (int, error)
	Close() error
}

// Engine is the capability surface of the external compression engine.
type Engine interface {
	// Version reports the engine library version string.
	Version() string

	// DefaultFormatVersion is the frame encoding version new contexts
	// write by default.
	DefaultFormatVersion() int

	// CompressBound returns a dst size guaranteed to hold any frame
	// produced from srcLen input bytes. String columns count as their
	// payload plus 4 bytes per element for the lengths sidecar.
	CompressBound(srcLen int) int

	NewCCtx() (CCtx, error)
	NewDCtx() (DCtx, error)
	NewGraph() (Graph, error)

	// NewTypedRef wraps one column of caller data. lengths is required for
	// KindString and forbidden otherwise.
	NewTypedRef(kind Kind, data []byte, eltWidth int, lengths []uint32) (*TypedRef, error)
	NewTypedBuffer() (*TypedBuffer, error)

	// CompileDescription compiles format description source text into an
	// opaque compiled description, or fails with a diagnostic.
	CompileDescription(source string) ([]byte, error)

	// FrameOutputCount reads the declared output count from a frame.
	FrameOutputCount(frame []byte) (int, error)

	// FrameDecompressedSize reads the total declared decompressed size of
	// all outputs in a frame.
	FrameDecompressedSize(frame []byte) (int, error)

	// OpenFrame opens a frame for metadata introspection.
	OpenFrame(frame []byte) (FrameReader, error)
}
