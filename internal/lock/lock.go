// Package lock guards the daemon's local state directory against a
// second bakmon instance on the same machine. Reconciliation itself
// needs no lock; concurrent writers are resolved in the store.
package lock

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// Record identifies the running daemon instance, including which
// configuration it was started with so a conflicting start is easy to
// diagnose.
type Record struct {
	Pid        int    `yaml:"pid"`
	ConfigPath string `yaml:"config_path"`
	StartedAt  string `yaml:"started_at"`
}

func readLock(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func writeLock(path string, rec *Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	if err == syscall.ESRCH {
		return false
	}
	return true
}

// Acquire takes the daemon lock, replacing a stale lock left by a dead
// process. It returns a release function to defer.
func Acquire(lockPath, configPath string) (func() error, error) {
	existing, err := readLock(lockPath)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.Pid > 0 && isProcessAlive(existing.Pid) {
		return nil, fmt.Errorf("already locked by pid %d (config %s, started %s)",
			existing.Pid, existing.ConfigPath, existing.StartedAt)
	}

	rec := &Record{
		Pid:        os.Getpid(),
		ConfigPath: configPath,
		StartedAt:  time.Now().Format(time.RFC3339),
	}
	if err := writeLock(lockPath, rec); err != nil {
		return nil, err
	}

	release := func() error {
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	return release, nil
}
