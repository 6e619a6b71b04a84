// Package otelexport bridges the layer's counters to OpenTelemetry as
// observable instruments. Registration reads Snapshot values on collection;
// nothing is pushed and the counter write path stays allocation-free.
package otelexport

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/awksedgreep/go-openzl/metrics"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type snapshotSource interface {
	Snapshot() metrics.Snapshot
}

type observedCounter struct {
	id         metrics.ID
	instrument metric.Int64ObservableCounter
}

// Exporter republishes one counter set through an OTel meter until
// Shutdown.
type Exporter struct {
	source       snapshotSource
	registration metric.Registration
	counters     []observedCounter
}

// Register creates one observable counter per metric definition and hooks
// them to src. Pass metrics.Default() to export the process-wide set.
func Register(meter metric.Meter, src snapshotSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if src == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   src,
		counters: make([]observedCounter, 0, len(metrics.Defs)),
	}
	observables := make([]metric.Observable, 0, len(metrics.Defs))
	for _, def := range metrics.Defs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		snap := e.source.Snapshot()
		for _, c := range e.counters {
			obs.ObserveInt64(c.instrument, int64(snap.Get(c.id)))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register metrics callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

// Shutdown unregisters the collection callback.
func (e *Exporter) Shutdown() error {
	if e.registration == nil {
		return nil
	}
	err := e.registration.Unregister()
	e.registration = nil
	return err
}
