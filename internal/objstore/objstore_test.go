package objstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostObject(t *testing.T) {
	src := &Source{
		prefix:  "netops",
		rootDir: "backups",
		vendor:  "CheckPoint",
	}

	tests := []struct {
		name     string
		key      string
		hostname string
		object   string
		ok       bool
	}{
		{
			name:     "manifest under own vendor",
			key:      "netops/backups/firewall/CheckPoint/fw01/backup.json",
			hostname: "fw01",
			object:   "backup.json",
			ok:       true,
		},
		{
			name:     "operational status document",
			key:      "netops/backups/firewall/CheckPoint/fw01/operational_status.json",
			hostname: "fw01",
			object:   "operational_status.json",
			ok:       true,
		},
		{
			name:     "validation document",
			key:      "netops/backups/firewall/CheckPoint/fw02/validation.json",
			hostname: "fw02",
			object:   "validation.json",
			ok:       true,
		},
		{
			name:     "backup artifact is split but not a known document",
			key:      "netops/backups/firewall/CheckPoint/fw01/config.tgz",
			hostname: "fw01",
			object:   "config.tgz",
			ok:       true,
		},
		{
			name: "other vendor is skipped",
			key:  "netops/backups/loadbalancer/F5/lb01/backup.json",
			ok:   false,
		},
		{
			name: "object nested one level too deep",
			key:  "netops/backups/firewall/CheckPoint/fw01/archive/backup.json",
			ok:   false,
		},
		{
			name: "missing hostname segment",
			key:  "netops/backups/firewall/CheckPoint/backup.json",
			ok:   false,
		},
		{
			name: "outside the backups root",
			key:  "netops/other/firewall/CheckPoint/fw01/backup.json",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hostname, object, ok := src.hostObject(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.hostname, hostname)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestHostObjectWithoutPrefix(t *testing.T) {
	src := &Source{rootDir: "backups", vendor: "F5"}

	hostname, object, ok := src.hostObject("backups/loadbalancer/F5/lb01/backup.json")
	assert.True(t, ok)
	assert.Equal(t, "lb01", hostname)
	assert.Equal(t, "backup.json", object)
}
