package audit

import (
	"sync"

	"github.com/neiii/stargate-better-auth/internal/core"
)

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps decision audit entries in memory.
type InMemoryAuditor struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		entries: make([]core.AuditEntry, 0),
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	return nil
}

func (i *InMemoryAuditor) Find(predicate func(entry core.AuditEntry) bool) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var found []core.AuditEntry
	for _, entry := range i.entries {
		if predicate(entry) {
			found = append(found, entry)
		}
	}
	return found, nil
}

// GetRecent returns up to limit of the newest entries.
func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.entries) {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]core.AuditEntry, limit)
	copy(entries, i.entries[start:])

	return entries, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil
}
