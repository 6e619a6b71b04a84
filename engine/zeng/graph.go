package zeng

import (
	"fmt"

	"github.com/awksedgreep/go-openzl/engine"
)

// graphDescribed is the graph id produced by loading a compiled format
// description into a graph handle.
const graphDescribed engine.GraphID = 2

// profile is what a compiled description collapses to inside this engine:
// per-kind transform selections applied ahead of block encoding.
type profile struct {
	deltaNumeric bool
}

// graph holds a compiled compression graph. Contexts only read it through
// activeProfile, so one graph can be installed on many contexts at once.
type graph struct {
	starting   engine.GraphID
	prof       profile
	profLoaded bool
	closed     bool
}

func newGraph() *graph {
	return &graph{}
}

func (g *graph) SetupProfile(description []byte) (engine.GraphID, error) {
	if g.closed {
		return 0, fmt.Errorf("graph is closed")
	}
	prof, err := decodeDescription(description)
	if err != nil {
		return 0, err
	}
	g.prof = prof
	g.profLoaded = true
	return graphDescribed, nil
}

func (g *graph) SelectStarting(id engine.GraphID) error {
	if g.closed {
		return fmt.Errorf("graph is closed")
	}
	switch id {
	case engine.GraphGeneric:
	case graphDescribed:
		if !g.profLoaded {
			return fmt.Errorf("graph %d has no loaded description", id)
		}
	default:
		return fmt.Errorf("unknown graph id %d", id)
	}
	g.starting = id
	return nil
}

func (g *graph) activeProfile() profile {
	if g.starting == graphDescribed {
		return g.prof
	}
	return profile{}
}

func (g *graph) Close() error {
	g.closed = true
	return nil
}
