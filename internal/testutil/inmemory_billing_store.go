package testutil

import (
	"context"
	"sync"

	"github.com/notara/billing/internal/domain/billing"
	ierr "github.com/notara/billing/internal/errors"
)

// InMemoryBillingStore implements billing.Repository
type InMemoryBillingStore struct {
	mu      sync.RWMutex
	records map[string]*billing.Record

	// Forced per-entity failures for partial-failure tests
	FailGetFor    map[string]bool
	FailUpdateFor map[string]bool
}

// NewInMemoryBillingStore creates a new in-memory billing store
func NewInMemoryBillingStore() *InMemoryBillingStore {
	return &InMemoryBillingStore{
		records:       make(map[string]*billing.Record),
		FailGetFor:    make(map[string]bool),
		FailUpdateFor: make(map[string]bool),
	}
}

// Helper to copy a record so callers never share memory with the store
func copyRecord(r *billing.Record) *billing.Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.ExternalCustomerRef != nil {
		ref := *r.ExternalCustomerRef
		out.ExternalCustomerRef = &ref
	}
	if r.ExternalSubscriptionRef != nil {
		ref := *r.ExternalSubscriptionRef
		out.ExternalSubscriptionRef = &ref
	}
	if r.PlanStartedAt != nil {
		t := *r.PlanStartedAt
		out.PlanStartedAt = &t
	}
	if r.PlanEndedAt != nil {
		t := *r.PlanEndedAt
		out.PlanEndedAt = &t
	}
	return &out
}

func (s *InMemoryBillingStore) Get(ctx context.Context, entityID string) (*billing.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailGetFor[entityID] {
		return nil, ierr.NewError("forced lookup failure").Mark(ierr.ErrDatabase)
	}

	record, ok := s.records[entityID]
	if !ok {
		return nil, ierr.NewError("billing record not found").
			WithHintf("No billing record for entity: %s", entityID).
			Mark(ierr.ErrNotFound)
	}
	return copyRecord(record), nil
}

func (s *InMemoryBillingStore) Create(ctx context.Context, record *billing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.EntityID]; exists {
		return ierr.NewError("billing record already exists").
			WithHintf("A billing record already exists for entity: %s", record.EntityID).
			Mark(ierr.ErrAlreadyExists)
	}
	s.records[record.EntityID] = copyRecord(record)
	return nil
}

func (s *InMemoryBillingStore) Update(ctx context.Context, record *billing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdateFor[record.EntityID] {
		return ierr.NewError("forced update failure").Mark(ierr.ErrDatabase)
	}

	if _, exists := s.records[record.EntityID]; !exists {
		return ierr.NewError("billing record not found").
			WithHintf("No billing record for entity: %s", record.EntityID).
			Mark(ierr.ErrNotFound)
	}
	s.records[record.EntityID] = copyRecord(record)
	return nil
}

// Count returns the number of stored records
func (s *InMemoryBillingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Seed inserts a record bypassing first-write-wins checks
func (s *InMemoryBillingStore) Seed(record *billing.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.EntityID] = copyRecord(record)
}
