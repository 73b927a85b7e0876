package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sc1-labs/vaultops/types"
)

var _ Registry = (*MemoryStore)(nil)

// MemoryStore is a Registry that lives for the duration of the process. It backs dry runs
// and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]types.DeploymentRecord
	saves   []string
}

// NewMemoryStore returns a MemoryStore holding records.
func NewMemoryStore(records ...types.DeploymentRecord) *MemoryStore {
	s := &MemoryStore{records: make(map[string]types.DeploymentRecord, len(records))}
	for _, r := range records {
		s.records[r.Name] = r
	}

	return s
}

func (s *MemoryStore) Get(_ context.Context, name string) (types.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[name]
	if !ok {
		return types.DeploymentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return r, nil
}

func (s *MemoryStore) Save(_ context.Context, record types.DeploymentRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Name] = record
	s.saves = append(s.saves, record.Name)

	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, s, name)
}

// Saves returns the names passed to Save, in order.
func (s *MemoryStore) Saves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.saves)
}
