// Package column defines the typed-column data model handed to a
// compression session: one homogeneous unit of input data (numeric, struct,
// or string) together with the shape metadata the engine needs.
//
// Columns are borrowed for the duration of a single encode call and never
// retained. Validation is local and runs before any engine resource is
// allocated.
package column

import (
	"fmt"

	"github.com/awksedgreep/go-openzl/engine"
)

// Column is the closed set of typed-column variants: Numeric, Struct, and
// String. Consumption sites switch exhaustively over these three.
type Column interface {
	// Validate checks the variant's shape invariants without touching the
	// engine. The returned error is a plain description of the violation.
	Validate() error

	isColumn()
}

// Numeric is a column of fixed-width integers in a caller-chosen byte order.
type Numeric struct {
	Data []byte
	// Width is the element width in bytes, one of 1, 2, 4, or 8.
	Width int
}

// Struct is a column of fixed-width records with no further visible
// structure.
type Struct struct {
	Data []byte
	// RecordWidth is the record size in bytes, > 0.
	RecordWidth int
}

// String is a column of variable-length strings. Data holds the string
// bytes concatenated; Lengths holds one little-endian uint32 per string
// with its byte length, packed back to back.
type String struct {
	Data    []byte
	Lengths []byte
}

func (Numeric) isColumn() {}
func (Struct) isColumn()  {}
func (String) isColumn()  {}

func (c Numeric) Validate() error {
	if len(c.Data) == 0 {
		return fmt.Errorf("input must not be empty")
	}
	switch c.Width {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("element width must be 1, 2, 4, or 8, got %d", c.Width)
	}
	if len(c.Data)%c.Width != 0 {
		return fmt.Errorf("data size %d is not a multiple of element width %d", len(c.Data), c.Width)
	}
	return nil
}

func (c Struct) Validate() error {
	if len(c.Data) == 0 {
		return fmt.Errorf("input must not be empty")
	}
	if c.RecordWidth <= 0 {
		return fmt.Errorf("record width must be > 0, got %d", c.RecordWidth)
	}
	if len(c.Data)%c.RecordWidth != 0 {
		return fmt.Errorf("data size %d is not a multiple of record width %d", len(c.Data), c.RecordWidth)
	}
	return nil
}

func (c String) Validate() error {
	if len(c.Data) == 0 {
		return fmt.Errorf("input must not be empty")
	}
	if len(c.Lengths)%4 != 0 {
		return fmt.Errorf("lengths size %d is not a multiple of 4", len(c.Lengths))
	}
	return nil
}

// Output is one decoded frame output. StringLengths mirrors the packed
// little-endian uint32 layout of String.Lengths and is nil for every kind
// other than string.
type Output struct {
	Kind          engine.Kind
	Data          []byte
	ElementWidth  int
	NumElements   int
	StringLengths []byte
}
