package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"bakmon/internal/manifest"
)

// publishedStateModel maps the published_state table for Bun.
type publishedStateModel struct {
	bun.BaseModel `bun:"table:published_state"`
	Hostname      string    `bun:"hostname,pk"`
	Vendor        string    `bun:"vendor,pk"`
	Document      string    `bun:"document"`
	Freshness     time.Time `bun:"freshness"`
	Fingerprint   string    `bun:"fingerprint"`
	Version       int64     `bun:"version"`
	LastUpdated   time.Time `bun:"last_updated"`
}

// complianceModel maps the compliance table for Bun.
type complianceModel struct {
	bun.BaseModel `bun:"table:compliance"`
	Hostname      string    `bun:"hostname,pk"`
	Vendor        string    `bun:"vendor,pk"`
	Kind          string    `bun:"kind,pk"`
	Document      string    `bun:"document"`
	LastUpdated   time.Time `bun:"last_updated"`
}

var createTableSQL = []string{`
CREATE TABLE IF NOT EXISTS published_state (
	hostname     TEXT NOT NULL,
	vendor       TEXT NOT NULL,
	document     TEXT NOT NULL,
	freshness    TIMESTAMP NOT NULL,
	fingerprint  TEXT NOT NULL,
	version      INTEGER NOT NULL,
	last_updated TIMESTAMP NOT NULL,
	PRIMARY KEY (hostname, vendor)
)`, `
CREATE TABLE IF NOT EXISTS compliance (
	hostname     TEXT NOT NULL,
	vendor       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	document     TEXT NOT NULL,
	last_updated TIMESTAMP NOT NULL,
	PRIMARY KEY (hostname, vendor, kind)
)`}

// SQLite is the Store implementation backed by Bun over SQLite.
type SQLite struct {
	db *bun.DB
}

// OpenSQLite opens (and if needed creates) the state database at path.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent reconcilers.
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	for _, stmt := range createTableSQL {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate state database: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(ctx context.Context, hostname, vendor string) (*PublishedState, error) {
	var m publishedStateModel
	err := s.db.NewSelect().Model(&m).
		Where("hostname = ?", hostname).
		Where("vendor = ?", vendor).
		Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read published state: %w", err)
	}
	return modelToState(m)
}

func (s *SQLite) List(ctx context.Context, vendor string) ([]PublishedState, error) {
	var models []publishedStateModel
	q := s.db.NewSelect().Model(&models).OrderExpr("vendor, hostname")
	if vendor != "" {
		q = q.Where("vendor = ?", vendor)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list published state: %w", err)
	}

	states := make([]PublishedState, 0, len(models))
	for _, m := range models {
		st, err := modelToState(m)
		if err != nil {
			return nil, err
		}
		states = append(states, *st)
	}
	return states, nil
}

func (s *SQLite) Create(ctx context.Context, st *PublishedState) error {
	st.Version = 1
	m, err := stateToModel(st)
	if err != nil {
		return err
	}

	res, err := s.db.NewInsert().Model(m).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert published state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, st *PublishedState, expectedVersion int64) error {
	st.Version = expectedVersion + 1
	m, err := stateToModel(st)
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().Model(m).
		WherePK().
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update published state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) UpsertCompliance(ctx context.Context, rec *ComplianceRecord) error {
	m := &complianceModel{
		Hostname:    rec.Hostname,
		Vendor:      rec.Vendor,
		Kind:        rec.Kind,
		Document:    string(rec.Document),
		LastUpdated: rec.LastUpdated.UTC(),
	}
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (hostname, vendor, kind) DO UPDATE").
		Set("document = EXCLUDED.document").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert compliance record: %w", err)
	}
	return nil
}

func (s *SQLite) GetCompliance(ctx context.Context, hostname, vendor, kind string) (*ComplianceRecord, error) {
	var m complianceModel
	err := s.db.NewSelect().Model(&m).
		Where("hostname = ?", hostname).
		Where("vendor = ?", vendor).
		Where("kind = ?", kind).
		Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read compliance record: %w", err)
	}
	return complianceToRecord(m), nil
}

func (s *SQLite) ListCompliance(ctx context.Context, vendor string) ([]ComplianceRecord, error) {
	var models []complianceModel
	q := s.db.NewSelect().Model(&models).OrderExpr("vendor, hostname, kind")
	if vendor != "" {
		q = q.Where("vendor = ?", vendor)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list compliance records: %w", err)
	}

	records := make([]ComplianceRecord, 0, len(models))
	for _, m := range models {
		records = append(records, *complianceToRecord(m))
	}
	return records, nil
}

func complianceToRecord(m complianceModel) *ComplianceRecord {
	return &ComplianceRecord{
		Hostname:    m.Hostname,
		Vendor:      m.Vendor,
		Kind:        m.Kind,
		Document:    json.RawMessage(m.Document),
		LastUpdated: m.LastUpdated,
	}
}

func stateToModel(st *PublishedState) (*publishedStateModel, error) {
	doc, err := json.Marshal(st.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest document: %w", err)
	}
	return &publishedStateModel{
		Hostname:    st.Hostname,
		Vendor:      st.Vendor,
		Document:    string(doc),
		Freshness:   st.Freshness.UTC(),
		Fingerprint: st.Fingerprint,
		Version:     st.Version,
		LastUpdated: st.LastUpdated.UTC(),
	}, nil
}

func modelToState(m publishedStateModel) (*PublishedState, error) {
	var doc manifest.Manifest
	if err := json.Unmarshal([]byte(m.Document), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode stored manifest for %s/%s: %w", m.Vendor, m.Hostname, err)
	}
	return &PublishedState{
		Hostname:    m.Hostname,
		Vendor:      m.Vendor,
		Manifest:    doc,
		Freshness:   m.Freshness,
		Fingerprint: m.Fingerprint,
		Version:     m.Version,
		LastUpdated: m.LastUpdated,
	}, nil
}
