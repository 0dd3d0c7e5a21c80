// Package collector drives the per-vendor polling loops: each source
// is collected on a fixed interval, every raw manifest is validated
// and reconciled inline, and no failure short of process shutdown
// stops the loop.
package collector

import (
	"context"
	"log/slog"
	"time"

	"bakmon/internal/reconcile"
	"bakmon/internal/schema"
	"bakmon/internal/validate"
)

// RawManifest is one host's document as obtained from a vendor source,
// before validation. Hostname is a hint for logging only; the document
// itself is authoritative.
type RawManifest struct {
	Hostname string
	Body     []byte
}

// Source produces raw manifests for a single vendor. Collect returns
// every host document visible this cycle; a source that cannot reach
// its upstream at all returns an error and is retried next cycle.
type Source interface {
	Vendor() string
	Collect(ctx context.Context) ([]RawManifest, error)
}

// Runner owns one source's polling loop.
type Runner struct {
	source       Source
	registry     *schema.Registry
	reconciler   *reconcile.Reconciler
	interval     time.Duration
	cycleTimeout time.Duration
	log          *slog.Logger
}

// NewRunner builds a runner. cycleTimeout bounds a whole collect cycle
// including reconciliation; it defaults to the polling interval.
func NewRunner(source Source, reg *schema.Registry, rec *reconcile.Reconciler, interval, cycleTimeout time.Duration, log *slog.Logger) *Runner {
	if cycleTimeout <= 0 || cycleTimeout > interval {
		cycleTimeout = interval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		source:       source,
		registry:     reg,
		reconciler:   rec,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		log:          log.With("vendor", source.Vendor()),
	}
}

// Run polls until ctx is cancelled. The first cycle starts
// immediately. Cancellation is honoured at cycle boundaries; a cycle
// in flight finishes its current host first.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("Collector started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Collector stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one collect-validate-reconcile pass. Each host is
// evaluated independently: a rejected or failing manifest never blocks
// the others in the same cycle.
func (r *Runner) RunOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, r.cycleTimeout)
	defer cancel()

	manifests, err := r.source.Collect(cycleCtx)
	if err != nil {
		r.log.Error("Collection cycle failed, retrying next interval", "error", err)
		return
	}

	var published, superseded, rejected int
	for _, raw := range manifests {
		if cycleCtx.Err() != nil {
			r.log.Warn("Cycle cancelled before all hosts were processed",
				"processed", published+superseded+rejected, "total", len(manifests))
			return
		}

		result := validate.Validate(raw.Body, r.registry)
		if !result.Accepted() {
			rejected++
			for _, v := range result.Violations {
				r.log.Warn("Manifest rejected",
					"hostname", raw.Hostname, "code", v.Code,
					"field", v.Field, "detail", v.Detail)
			}
			continue
		}

		outcome, err := r.reconciler.Reconcile(cycleCtx, result.Manifest)
		if err != nil {
			r.log.Error("Reconciliation failed",
				"hostname", result.Manifest.Hostname, "error", err)
			continue
		}
		switch outcome.Outcome {
		case reconcile.Published:
			published++
		case reconcile.Superseded:
			superseded++
		}
	}

	r.log.Info("Collection cycle finished",
		"hosts", len(manifests), "published", published,
		"superseded", superseded, "rejected", rejected)
}
