package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is the interface for record persistence.
type Storage interface {
	// Save saves a record to persistent storage.
	Save(rec *Record) error

	// Load loads a record by run ID.
	Load(runID string) (*Record, error)

	// LoadAll loads all records.
	LoadAll() ([]*Record, error)

	// Delete deletes a record from storage.
	Delete(runID string) error

	// Exists checks if a record exists in storage.
	Exists(runID string) bool
}

// MemoryStorage stores records in memory (for testing).
type MemoryStorage struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*Record),
	}
}

func (m *MemoryStorage) Save(rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.RunID] = rec
	return nil
}

func (m *MemoryStorage) Load(runID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return rec, nil
}

func (m *MemoryStorage) LoadAll() ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, nil
}

func (m *MemoryStorage) Delete(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, runID)
	return nil
}

func (m *MemoryStorage) Exists(runID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[runID]
	return ok
}

// FileStorage stores records as JSON files, one per run.
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based storage.
func NewFileStorage(basePath string) *FileStorage {
	return &FileStorage{
		basePath: basePath,
	}
}

func (f *FileStorage) recordPath(runID string) string {
	return filepath.Join(f.basePath, runID+".json")
}

func (f *FileStorage) Save(rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	path := f.recordPath(rec.RunID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}

	return nil
}

func (f *FileStorage) Load(runID string) (*Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path := f.recordPath(runID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

func (f *FileStorage) LoadAll() ([]*Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, err := os.Stat(f.basePath); os.IsNotExist(err) {
		return []*Record{}, nil
	}

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(f.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue // Skip files we can't read
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue // Skip invalid files
		}

		records = append(records, &rec)
	}

	return records, nil
}

func (f *FileStorage) Delete(runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.recordPath(runID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record file: %w", err)
	}

	return nil
}

func (f *FileStorage) Exists(runID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, err := os.Stat(f.recordPath(runID))
	return err == nil
}
