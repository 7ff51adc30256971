package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/rafaelcs/userhub/backend/internal/store"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ProbeFunc checks connectivity to a single backing store.
type ProbeFunc func(ctx context.Context) error

// StoreHealth probes every configured store and reports which ones are
// unreachable. A degraded store fails the probe; stores with no probe
// registered are treated as healthy.
type StoreHealth struct {
	Probes map[store.Name]ProbeFunc
}

// Probe implements the HealthService interface.
func (s StoreHealth) Probe(ctx context.Context) error {
	var errs []error
	for _, name := range store.WriteOrder {
		probe, ok := s.Probes[name]
		if !ok || probe == nil {
			continue
		}
		if err := probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Report returns a per-store status map for the health endpoint body.
func (s StoreHealth) Report(ctx context.Context) map[string]string {
	out := make(map[string]string, len(store.WriteOrder))
	for _, name := range store.WriteOrder {
		probe, ok := s.Probes[name]
		if !ok || probe == nil {
			out[string(name)] = "unconfigured"
			continue
		}
		if err := probe(ctx); err != nil {
			out[string(name)] = "down"
			continue
		}
		out[string(name)] = "up"
	}
	return out
}
