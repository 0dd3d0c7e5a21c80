package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
	"hostname": "fw01",
	"vendor": "CheckPoint",
	"backup_list": [
		{"backup_file": "/media/fwbackup/backups/CheckPoint/fw01/cfg1.tgz", "date": "2024-01-01T00:00:00Z", "type": "config"},
		{"backup_file": "/media/fwbackup/backups/CheckPoint/fw01/sys1.tgz", "date": "2024-01-02T00:00:00Z", "type": "system"}
	]
}`

func TestDecodeStrict(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		m, issues := DecodeStrict([]byte(validDoc))
		require.Empty(t, issues)
		require.NotNil(t, m)
		assert.Equal(t, "fw01", m.Hostname)
		assert.Equal(t, "CheckPoint", m.Vendor)
		require.Len(t, m.Entries, 2)
		assert.Equal(t, "config", m.Entries[0].Kind)
		assert.Equal(t, "/media/fwbackup/backups/CheckPoint/fw01/sys1.tgz", m.Entries[1].Path)
	})

	t.Run("not json", func(t *testing.T) {
		m, issues := DecodeStrict([]byte("not json"))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueMalformed, issues[0].Reason)
	})

	t.Run("unknown top-level field", func(t *testing.T) {
		doc := `{"hostname":"fw01","vendor":"CheckPoint","backup_list":[],"extra":true}`
		m, issues := DecodeStrict([]byte(doc))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueUnknownField, issues[0].Reason)
		assert.Equal(t, "extra", issues[0].Field)
	})

	t.Run("missing top-level field", func(t *testing.T) {
		doc := `{"hostname":"fw01","backup_list":[]}`
		m, issues := DecodeStrict([]byte(doc))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueMissingField, issues[0].Reason)
		assert.Equal(t, "vendor", issues[0].Field)
	})

	t.Run("unknown entry field", func(t *testing.T) {
		doc := `{"hostname":"fw01","vendor":"CheckPoint","backup_list":[
			{"backup_file":"/a/b/c","date":"2024-01-01T00:00:00Z","type":"config","size":12}
		]}`
		m, issues := DecodeStrict([]byte(doc))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueUnknownField, issues[0].Reason)
		assert.Equal(t, "backup_list[0].size", issues[0].Field)
	})

	t.Run("missing entry field", func(t *testing.T) {
		doc := `{"hostname":"fw01","vendor":"CheckPoint","backup_list":[
			{"backup_file":"/a/b/c","type":"config"}
		]}`
		m, issues := DecodeStrict([]byte(doc))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueMissingField, issues[0].Reason)
		assert.Equal(t, "backup_list[0].date", issues[0].Field)
	})

	t.Run("entry must be an object", func(t *testing.T) {
		doc := `{"hostname":"fw01","vendor":"CheckPoint","backup_list":["nope"]}`
		m, issues := DecodeStrict([]byte(doc))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, "backup_list[0]", issues[0].Field)
	})

	t.Run("hostname must be a string", func(t *testing.T) {
		doc := `{"hostname":7,"vendor":"CheckPoint","backup_list":[]}`
		m, issues := DecodeStrict([]byte(doc))
		assert.Nil(t, m)
		require.Len(t, issues, 1)
		assert.Equal(t, "hostname", issues[0].Field)
	})
}

func TestEntryTime(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339",
			date: "2024-01-02T00:00:00Z",
			want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "offset without colon",
			date: "2024-06-01T12:30:00+0200",
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.FixedZone("", 2*3600)),
		},
		{
			name:    "garbage",
			date:    "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Entry{Date: tt.date}.Time()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
		})
	}
}

func TestFreshness(t *testing.T) {
	m, issues := DecodeStrict([]byte(validDoc))
	require.Empty(t, issues)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), m.Freshness())
}

func TestFingerprint(t *testing.T) {
	m1, issues := DecodeStrict([]byte(validDoc))
	require.Empty(t, issues)
	m2, issues := DecodeStrict([]byte(validDoc))
	require.Empty(t, issues)

	assert.NotEmpty(t, m1.Fingerprint())
	assert.Equal(t, m1.Fingerprint(), m2.Fingerprint(), "same content must fingerprint identically")

	m2.Entries[0].Date = "2024-03-01T00:00:00Z"
	assert.NotEqual(t, m1.Fingerprint(), m2.Fingerprint())
}
