package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/neiii/stargate-better-auth/internal/core"
)

var _ core.Auditor = (*FileAuditor)(nil)

// FileAuditor appends decision audit entries to a file in JSON lines format.
type FileAuditor struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *json.Encoder
}

func NewFileAuditor(filePath string) (*FileAuditor, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	return &FileAuditor{
		path:    filePath,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (f *FileAuditor) Log(entry core.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(entry); err != nil {
		return fmt.Errorf("writing audit log entry: %w", err)
	}
	return nil
}

// Find re-reads the file and returns entries matching the predicate.
func (f *FileAuditor) Find(predicate func(entry core.AuditEntry) bool) ([]core.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading audit log file: %w", err)
	}

	var found []core.AuditEntry
	decoder := json.NewDecoder(bytes.NewReader(data))
	for decoder.More() {
		var entry core.AuditEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decoding audit log entry: %w", err)
		}
		if predicate(entry) {
			found = append(found, entry)
		}
	}
	return found, nil
}

func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
