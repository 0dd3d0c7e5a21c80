package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakmon/internal/manifest"
	"bakmon/internal/store"
)

func seededServer(t *testing.T) *Server {
	t.Helper()

	mem := store.NewMemory()
	ctx := context.Background()
	freshness := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for _, host := range []struct{ hostname, vendor string }{
		{"fw01", "CheckPoint"},
		{"lb01", "F5"},
	} {
		st := &store.PublishedState{
			Hostname: host.hostname,
			Vendor:   host.vendor,
			Manifest: manifest.Manifest{
				Hostname: host.hostname,
				Vendor:   host.vendor,
			},
			Freshness:   freshness,
			Fingerprint: "fp-" + host.hostname,
			LastUpdated: freshness,
		}
		require.NoError(t, mem.Create(ctx, st))
	}

	require.NoError(t, mem.UpsertCompliance(ctx, &store.ComplianceRecord{
		Hostname:    "fw01",
		Vendor:      "CheckPoint",
		Kind:        store.ComplianceOperationalStatus,
		Document:    json.RawMessage(`{"status": "ok"}`),
		LastUpdated: freshness,
	}))
	require.NoError(t, mem.UpsertCompliance(ctx, &store.ComplianceRecord{
		Hostname:    "fw01",
		Vendor:      "CheckPoint",
		Kind:        store.ComplianceValidation,
		Document:    json.RawMessage(`{"compliant": true}`),
		LastUpdated: freshness,
	}))

	srv := NewServer("", mem, mem)
	srv.startTime = time.Now()
	return srv
}

func doRequest(t *testing.T, srv *Server, path string) (int, map[string]json.RawMessage) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.routes().ServeHTTP(w, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth(t *testing.T) {
	code, body := doRequest(t, seededServer(t), "/api/health")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `"ok"`, string(body["status"]))
	assert.JSONEq(t, `2`, string(body["hosts"]))
}

func TestListBackups(t *testing.T) {
	srv := seededServer(t)

	t.Run("all vendors", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/backups")
		assert.Equal(t, http.StatusOK, code)

		var states []store.PublishedState
		require.NoError(t, json.Unmarshal(body["backups"], &states))
		require.Len(t, states, 2)
		assert.Equal(t, "fw01", states[0].Hostname)
		assert.Equal(t, "lb01", states[1].Hostname)
	})

	t.Run("vendor filter", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/backups?vendor=F5")
		assert.Equal(t, http.StatusOK, code)

		var states []store.PublishedState
		require.NoError(t, json.Unmarshal(body["backups"], &states))
		require.Len(t, states, 1)
		assert.Equal(t, "lb01", states[0].Hostname)
	})

	t.Run("unknown vendor is empty, not an error", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/backups?vendor=Cisco")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `[]`, string(body["backups"]))
	})
}

func TestGetBackup(t *testing.T) {
	srv := seededServer(t)

	t.Run("found", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/backups/CheckPoint/fw01")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `"fw01"`, string(body["hostname"]))
		assert.JSONEq(t, `"fp-fw01"`, string(body["fingerprint"]))
	})

	t.Run("unknown host", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/backups/CheckPoint/fw99")
		assert.Equal(t, http.StatusNotFound, code)
		assert.Contains(t, string(body["error"]), "no published state")
	})
}

func TestListCompliance(t *testing.T) {
	srv := seededServer(t)

	t.Run("all vendors", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/compliance")
		assert.Equal(t, http.StatusOK, code)

		var records []store.ComplianceRecord
		require.NoError(t, json.Unmarshal(body["compliance"], &records))
		require.Len(t, records, 2)
		assert.Equal(t, store.ComplianceOperationalStatus, records[0].Kind)
		assert.Equal(t, store.ComplianceValidation, records[1].Kind)
	})

	t.Run("vendor filter", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/compliance?vendor=F5")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `[]`, string(body["compliance"]))
	})
}

func TestGetCompliance(t *testing.T) {
	srv := seededServer(t)

	t.Run("found", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/compliance/CheckPoint/fw01")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `"fw01"`, string(body["hostname"]))

		var documents map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(body["documents"], &documents))
		assert.JSONEq(t, `{"status": "ok"}`, string(documents[store.ComplianceOperationalStatus]))
		assert.JSONEq(t, `{"compliant": true}`, string(documents[store.ComplianceValidation]))
	})

	t.Run("host without records", func(t *testing.T) {
		code, body := doRequest(t, srv, "/api/compliance/F5/lb01")
		assert.Equal(t, http.StatusNotFound, code)
		assert.Contains(t, string(body["error"]), "no compliance records")
	})
}
