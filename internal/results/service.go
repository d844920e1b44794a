package results

import (
	"fmt"
	"sort"
	"sync"
)

// Service provides run record management.
type Service struct {
	storage Storage
	records map[string]*Record
	mu      sync.RWMutex
}

// ServiceConfig holds configuration for the results service.
type ServiceConfig struct {
	// StoragePath is the directory for record files. Empty keeps
	// records in memory only.
	StoragePath string
}

// NewService creates a new results service.
func NewService(cfg ServiceConfig) (*Service, error) {
	var storage Storage
	if cfg.StoragePath != "" {
		storage = NewFileStorage(cfg.StoragePath)
	} else {
		storage = NewMemoryStorage()
	}

	svc := &Service{
		storage: storage,
		records: make(map[string]*Record),
	}

	if err := svc.loadRecords(); err != nil {
		return nil, fmt.Errorf("failed to load run records: %w", err)
	}

	return svc, nil
}

// loadRecords loads all records from storage.
func (s *Service) loadRecords() error {
	records, err := s.storage.LoadAll()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.records[rec.RunID] = rec
	}

	return nil
}

// Save validates and persists a run record.
func (s *Service) Save(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid run record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(rec); err != nil {
		return err
	}

	s.records[rec.RunID] = rec
	return nil
}

// Get returns a record by run ID.
func (s *Service) Get(runID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return rec, nil
}

// List returns all records, newest first.
func (s *Service) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].RunID < records[j].RunID
	})

	return records
}

// Delete removes a record.
func (s *Service) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[runID]; !ok {
		return fmt.Errorf("run %s not found", runID)
	}

	if err := s.storage.Delete(runID); err != nil {
		return err
	}

	delete(s.records, runID)
	return nil
}

// Exists reports whether a record exists.
func (s *Service) Exists(runID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[runID]
	return ok
}
