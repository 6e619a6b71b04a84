package session

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/awksedgreep/go-openzl/engine"
	"github.com/awksedgreep/go-openzl/internal/zerrors"
)

// Compressor owns one engine-side compiled compression graph. It is
// independent of any session and reference-counted: each session that
// attaches it holds a reference until the session closes or attaches a
// different compressor, and the engine graph is released only when the
// creator and every attached session have let go. Attachment only reads the
// graph, so one Compressor may be held by sessions on different goroutines.
type Compressor struct {
	graph  engine.Graph
	id     string
	refs   atomic.Int32
	closed atomic.Bool
}

// NewCompressor builds a compressor from a compiled format description and
// validates it by selecting the resulting graph as the starting graph.
// Partial engine resources are released on any failure.
func NewCompressor(description []byte, opts ...Option) (*Compressor, error) {
	const op = "create_compressor"
	o := buildOptions(opts)
	if len(description) == 0 {
		return nil, zerrors.Validation(op, "compiled description must not be empty")
	}
	g, err := o.eng.NewGraph()
	if err != nil {
		return nil, zerrors.Allocation(op, err, "compressor")
	}
	gid, err := g.SetupProfile(description)
	if err != nil {
		g.Close()
		return nil, zerrors.Engine(op, err, "failed to build graph from description")
	}
	if err := g.SelectStarting(gid); err != nil {
		g.Close()
		return nil, zerrors.Engine(op, err, "failed to select starting graph")
	}
	c := &Compressor{graph: g, id: shortID()}
	c.refs.Store(1)
	o.logger.WithFields(logrus.Fields{
		"compressor_id": c.id,
		"graph_id":      int(gid),
	}).Debug("compressor created")
	return c, nil
}

// Close releases the creator's reference. The engine graph survives until
// every attached session has also released it. Idempotent.
func (c *Compressor) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.release()
	return nil
}

// retain takes a reference for a session about to attach. It fails if the
// last reference is already gone.
func (c *Compressor) retain() error {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return zerrors.Validation("attach_compressor", "compressor has been released")
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

func (c *Compressor) release() {
	if c.refs.Add(-1) == 0 {
		c.graph.Close()
	}
}
