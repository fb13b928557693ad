// Package vaultlock provides the process-local advisory lock that enforces
// the single-writer discipline from spec.md §5 for the operations that take
// it: passwordstore's Create, Rotate and Destroy, panicexecutor's Execute and
// backupcodec's Restore. passwordstore's Classify and Unwrap and backupcodec's
// Create and Verify do not take it. This is advisory only — it
// serializes goroutines within this process, not across processes or hosts.
package vaultlock

import (
	"sync"

	"vaultcore/internal/vaultroot"
)

var (
	registryMu sync.Mutex
	registry   = map[string]*sync.Mutex{}
)

// Lock acquires the exclusive lock for root, creating it on first use, and
// returns an unlock function the caller must defer immediately.
func Lock(root vaultroot.Root) (unlock func()) {
	registryMu.Lock()
	m, ok := registry[root.Dir()]
	if !ok {
		m = &sync.Mutex{}
		registry[root.Dir()] = m
	}
	registryMu.Unlock()

	m.Lock()
	return m.Unlock
}
