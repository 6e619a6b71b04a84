// Package sddl compiles textual format descriptions into compiled graph
// descriptions and builds attachable compressors from them.
//
// Compilation is a pure transform with no session dependency: source text in,
// opaque compiled description out, or a compiler diagnostic. The compiled
// description has no structure visible to callers; its only use is
// NewCompressor.
package sddl

import (
	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/engine/zeng"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
	"github.com/awksedgreep/go-openzl/session"
)

// Compile compiles format description source text with the default engine's
// compiler. Failures carry the compiler's own diagnostic message.
func Compile(source string) ([]byte, error) {
	return CompileWith(zeng.Default(), source)
}

// CompileWith compiles source through eng's description compiler.
func CompileWith(eng engine.Engine, source string) ([]byte, error) {
	const op = "compile"
	if source == "" {
		return nil, zerrors.Validation(op, "description source must not be empty")
	}
	compiled, err := eng.CompileDescription(source)
	if err != nil {
		return nil, zerrors.Compilation(op, err)
	}
	return compiled, nil
}

// NewCompressor builds a compressor from a compiled description. The
// resulting compressor is independent of any session and may be attached to
// many sessions at once.
func NewCompressor(description []byte, opts ...session.Option) (*session.Compressor, error) {
	return session.NewCompressor(description, opts...)
}
