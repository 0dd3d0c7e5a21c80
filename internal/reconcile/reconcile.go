// Package reconcile merges accepted manifests into the shared state
// store with last-writer-wins-by-content-time semantics.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bakmon/internal/manifest"
	"bakmon/internal/store"
)

// Outcome reports what a reconciliation did.
type Outcome string

const (
	// Published means the manifest won and is now the stored state.
	Published Outcome = "published"
	// Superseded means stored state was at least as fresh; no write.
	Superseded Outcome = "superseded"
)

// Result carries the outcome and, for Published, the written state.
type Result struct {
	Outcome Outcome
	State   *store.PublishedState
}

// Reconciler applies accepted manifests to a Store. Safe for use from
// multiple collector goroutines; contention is resolved per key via
// the store's conditional writes.
type Reconciler struct {
	store      store.Store
	log        *slog.Logger
	now        func() time.Time
	maxRetries int
}

// New returns a Reconciler over the given store.
func New(s store.Store, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		store:      s,
		log:        log,
		now:        time.Now,
		maxRetries: 3,
	}
}

// Reconcile publishes m if its freshness is strictly newer than the
// stored state for (hostname, vendor). A lost compare-and-set race is
// re-read and retried; if the winner is at least as fresh the incoming
// manifest yields with Superseded.
func (r *Reconciler) Reconcile(ctx context.Context, m *manifest.Manifest) (Result, error) {
	freshness := m.Freshness()
	fingerprint := m.Fingerprint()

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		current, err := r.store.Get(ctx, m.Hostname, m.Vendor)
		switch {
		case errors.Is(err, store.ErrNotFound):
			st := &store.PublishedState{
				Hostname:    m.Hostname,
				Vendor:      m.Vendor,
				Manifest:    *m,
				Freshness:   freshness,
				Fingerprint: fingerprint,
				LastUpdated: r.now().UTC(),
			}
			if err := r.store.Create(ctx, st); err != nil {
				if errors.Is(err, store.ErrConflict) {
					continue
				}
				return Result{}, fmt.Errorf("failed to publish state for %s/%s: %w", m.Vendor, m.Hostname, err)
			}
			r.log.Info("Published new backup state",
				"vendor", m.Vendor, "hostname", m.Hostname,
				"freshness", freshness, "version", st.Version)
			return Result{Outcome: Published, State: st}, nil

		case err != nil:
			return Result{}, fmt.Errorf("failed to read state for %s/%s: %w", m.Vendor, m.Hostname, err)
		}

		if !freshness.After(current.Freshness) {
			if fingerprint != current.Fingerprint && freshness.Equal(current.Freshness) {
				r.log.Warn("Manifest content changed without a newer timestamp",
					"vendor", m.Vendor, "hostname", m.Hostname, "freshness", freshness)
			}
			return Result{Outcome: Superseded, State: current}, nil
		}

		st := &store.PublishedState{
			Hostname:    m.Hostname,
			Vendor:      m.Vendor,
			Manifest:    *m,
			Freshness:   freshness,
			Fingerprint: fingerprint,
			LastUpdated: r.now().UTC(),
		}
		if err := r.store.Update(ctx, st, current.Version); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return Result{}, fmt.Errorf("failed to publish state for %s/%s: %w", m.Vendor, m.Hostname, err)
		}
		r.log.Info("Published updated backup state",
			"vendor", m.Vendor, "hostname", m.Hostname,
			"freshness", freshness, "version", st.Version)
		return Result{Outcome: Published, State: st}, nil
	}

	return Result{}, fmt.Errorf("gave up reconciling %s/%s after %d conflicts", m.Vendor, m.Hostname, r.maxRetries+1)
}
