package manifest

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/zeebo/blake3"
)

// Entry describes one physical backup artifact reported by a device.
// Date is kept as the raw wire string so the validator can report an
// unparseable timestamp on one entry without losing the others.
type Entry struct {
	Path string `json:"backup_file"`
	Date string `json:"date"`
	Kind string `json:"type"`
}

// Time parses the entry timestamp. RFC 3339 is the canonical form, but
// some appliances emit numeric offsets without a colon (+0200).
func (e Entry) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, e.Date)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05-0700", e.Date)
}

// Manifest is one host's reported backup state for a single vendor.
type Manifest struct {
	Hostname string  `json:"hostname"`
	Vendor   string  `json:"vendor"`
	Entries  []Entry `json:"backup_list"`
}

// Freshness is the maximum entry timestamp. Entries with unparseable
// dates are skipped; an accepted manifest has none.
func (m *Manifest) Freshness() time.Time {
	var max time.Time
	for _, e := range m.Entries {
		t, err := e.Time()
		if err != nil {
			continue
		}
		if t.After(max) {
			max = t
		}
	}
	return max
}

// Fingerprint returns the BLAKE3 hash of the manifest's canonical JSON
// encoding, used for change detection on reconciliation.
func (m *Manifest) Fingerprint() string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
