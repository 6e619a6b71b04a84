// Package frameinfo reads frame metadata without a session and without
// decoding any payload.
//
// Per-output metadata degrades field by field: a damaged frame reports
// "unknown" for whatever cannot be read instead of failing the whole call.
// Only a frame that cannot be opened at all is a hard error. This partial
// failure behavior is deliberate; inspection is a diagnostic surface and a
// half-readable answer beats none.
package frameinfo

import (
	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/engine/zeng"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
)

// TypeUnknown marks an output whose type could not be read.
const TypeUnknown = "unknown"

// OutputInfo describes one frame output. DecompressedSize and NumElements
// are nil when the frame does not yield them.
type OutputInfo struct {
	Type             string  `yaml:"type" json:"type"`
	DecompressedSize *uint64 `yaml:"decompressed_size" json:"decompressed_size"`
	NumElements      *uint64 `yaml:"num_elements" json:"num_elements"`
}

// Info is the metadata of one frame.
type Info struct {
	FormatVersion int          `yaml:"format_version" json:"format_version"`
	NumOutputs    int          `yaml:"num_outputs" json:"num_outputs"`
	Outputs       []OutputInfo `yaml:"outputs" json:"outputs"`
}

// Inspect reads frame metadata using the default engine.
func Inspect(frame []byte) (*Info, error) {
	return InspectWith(zeng.Default(), frame)
}

// InspectWith reads frame metadata through eng.
func InspectWith(eng engine.Engine, frame []byte) (*Info, error) {
	const op = "frame_info"
	if len(frame) == 0 {
		return nil, zerrors.Validation(op, "input must not be empty")
	}
	r, err := eng.OpenFrame(frame)
	if err != nil {
		return nil, zerrors.Engine(op, err, "failed to open frame")
	}
	defer r.Close()

	version, err := r.FormatVersion()
	if err != nil {
		return nil, zerrors.Engine(op, err, "failed to get format version")
	}
	count, err := r.NumOutputs()
	if err != nil {
		return nil, zerrors.Engine(op, err, "failed to get number of outputs")
	}

	info := &Info{
		FormatVersion: version,
		NumOutputs:    count,
		Outputs:       make([]OutputInfo, count),
	}
	for i := 0; i < count; i++ {
		out := &info.Outputs[i]
		out.Type = TypeUnknown
		if kind, err := r.OutputKind(i); err == nil {
			out.Type = kind.String()
		}
		if size, err := r.OutputSize(i); err == nil {
			v := uint64(size)
			out.DecompressedSize = &v
		}
		if elts, err := r.OutputNumElts(i); err == nil {
			v := uint64(elts)
			out.NumElements = &v
		}
	}
	return info, nil
}
