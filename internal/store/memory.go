package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store with the same conditional-write
// semantics as the SQLite store. It backs unit tests and ad-hoc runs
// without a database file.
type Memory struct {
	mu         sync.Mutex
	states     map[memKey]PublishedState
	compliance map[complianceKey]ComplianceRecord
}

type memKey struct {
	hostname string
	vendor   string
}

type complianceKey struct {
	hostname string
	vendor   string
	kind     string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		states:     make(map[memKey]PublishedState),
		compliance: make(map[complianceKey]ComplianceRecord),
	}
}

func (m *Memory) Get(_ context.Context, hostname, vendor string) (*PublishedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[memKey{hostname, vendor}]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (m *Memory) List(_ context.Context, vendor string) ([]PublishedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedState, 0, len(m.states))
	for _, st := range m.states {
		if vendor != "" && st.Vendor != vendor {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Hostname < out[j].Hostname
	})
	return out, nil
}

func (m *Memory) Create(_ context.Context, st *PublishedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{st.Hostname, st.Vendor}
	if _, exists := m.states[key]; exists {
		return ErrConflict
	}
	st.Version = 1
	m.states[key] = *st
	return nil
}

func (m *Memory) Update(_ context.Context, st *PublishedState, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{st.Hostname, st.Vendor}
	current, exists := m.states[key]
	if !exists || current.Version != expectedVersion {
		return ErrConflict
	}
	st.Version = expectedVersion + 1
	m.states[key] = *st
	return nil
}

func (m *Memory) UpsertCompliance(_ context.Context, rec *ComplianceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.compliance[complianceKey{rec.Hostname, rec.Vendor, rec.Kind}] = *rec
	return nil
}

func (m *Memory) GetCompliance(_ context.Context, hostname, vendor, kind string) (*ComplianceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.compliance[complianceKey{hostname, vendor, kind}]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) ListCompliance(_ context.Context, vendor string) ([]ComplianceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ComplianceRecord, 0, len(m.compliance))
	for _, rec := range m.compliance {
		if vendor != "" && rec.Vendor != vendor {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}
