// Package store holds the durable last-known-good backup state per
// (hostname, vendor) key. Every consumer goes through the Store port;
// nothing reads ambient state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bakmon/internal/manifest"
)

var (
	// ErrNotFound is returned when no state exists for the key.
	ErrNotFound = errors.New("published state not found")
	// ErrConflict is returned when a conditional write lost its race:
	// the key already exists on Create, or the stored version moved on
	// Update. Callers re-read and retry or yield.
	ErrConflict = errors.New("published state version conflict")
)

// PublishedState is the durable record for one (hostname, vendor) key:
// the most recently accepted manifest plus bookkeeping. Version grows
// monotonically with each winning write and is the compare-and-set
// token for concurrent reconcilers.
type PublishedState struct {
	Hostname    string            `json:"hostname"`
	Vendor      string            `json:"vendor"`
	Manifest    manifest.Manifest `json:"manifest"`
	Freshness   time.Time         `json:"freshness"`
	Fingerprint string            `json:"fingerprint"`
	Version     int64             `json:"version"`
	LastUpdated time.Time         `json:"last_updated"`
}

// Compliance document kinds published next to a host's backups in the
// object store.
const (
	ComplianceOperationalStatus = "operational_status"
	ComplianceValidation        = "validation"
)

// ComplianceRecord is one host's compliance document of a given kind,
// stored verbatim. Unlike backup state there is no version token:
// compliance documents are observational and the latest fetch wins.
type ComplianceRecord struct {
	Hostname    string          `json:"hostname"`
	Vendor      string          `json:"vendor"`
	Kind        string          `json:"kind"`
	Document    json.RawMessage `json:"document"`
	LastUpdated time.Time       `json:"last_updated"`
}

// ComplianceStore holds the compliance documents keyed
// (hostname, vendor, kind).
type ComplianceStore interface {
	// UpsertCompliance inserts or overwrites the record for its key.
	UpsertCompliance(ctx context.Context, rec *ComplianceRecord) error
	// GetCompliance returns the record for the key or ErrNotFound.
	GetCompliance(ctx context.Context, hostname, vendor, kind string) (*ComplianceRecord, error)
	// ListCompliance returns all records, optionally filtered by vendor.
	ListCompliance(ctx context.Context, vendor string) ([]ComplianceRecord, error)
}

// Store is the narrow port over the shared state. Writes for a given
// key are atomic with respect to concurrent writers of the same key;
// there is no cross-key coordination.
type Store interface {
	// Get returns the state for the key or ErrNotFound.
	Get(ctx context.Context, hostname, vendor string) (*PublishedState, error)
	// List returns all states, optionally filtered by vendor.
	List(ctx context.Context, vendor string) ([]PublishedState, error)
	// Create inserts a new record with Version 1, failing with
	// ErrConflict if the key already exists.
	Create(ctx context.Context, st *PublishedState) error
	// Update overwrites the record only if the stored version equals
	// expectedVersion, bumping Version to expectedVersion+1. Returns
	// ErrConflict on a lost race or a vanished record.
	Update(ctx context.Context, st *PublishedState, expectedVersion int64) error
}
