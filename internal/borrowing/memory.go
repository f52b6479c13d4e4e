package borrowing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"libretto/internal/apierror"
	"libretto/internal/catalog"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It shares the item state with a catalog MemoryStore and uses the same
// compare-and-set discipline as the PostgreSQL store, so the concurrency
// behavior matches: of two racing loans for one item, exactly one wins.
type MemoryStore struct {
	mu      sync.Mutex
	items   *catalog.MemoryStore
	records map[uuid.UUID]*Borrowing
}

func NewMemoryStore(items *catalog.MemoryStore) *MemoryStore {
	return &MemoryStore{
		items:   items,
		records: make(map[uuid.UUID]*Borrowing),
	}
}

func (s *MemoryStore) CreateBorrowing(ctx context.Context, b *Borrowing) error {
	// The CAS on the item is the lock: only the caller that flips
	// available → borrowed gets to insert a record.
	if _, err := s.items.GetItem(ctx, b.ItemID); err != nil {
		return err
	}
	if err := s.items.UpdateItemStatus(ctx, b.ItemID, catalog.StatusAvailable, catalog.StatusBorrowed); err != nil {
		return apierror.Conflict(fmt.Sprintf("item %s is not available", b.ItemID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	stored := *b
	s.records[b.ID] = &stored
	return nil
}

func (s *MemoryStore) CloseBorrowing(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.records[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("borrowing %s not found", id))
	}
	if b.ReturnedAt != nil {
		return nil, apierror.Conflict(fmt.Sprintf("borrowing %s is already closed", id))
	}

	if err := s.items.UpdateItemStatus(ctx, b.ItemID, catalog.StatusBorrowed, catalog.StatusAvailable); err != nil {
		return nil, err
	}

	t := returnedAt
	b.ReturnedAt = &t
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) ExtendBorrowing(_ context.Context, id uuid.UUID, days int) (*Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.records[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("borrowing %s not found", id))
	}
	if b.ReturnedAt != nil {
		return nil, apierror.Conflict(fmt.Sprintf("borrowing %s is already closed", id))
	}

	b.DueDate = b.DueDate.AddDate(0, 0, days)
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) DeleteBorrowing(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.records[id]
	if !ok {
		return apierror.NotFound(fmt.Sprintf("borrowing %s not found", id))
	}

	if b.ReturnedAt == nil {
		if err := s.items.UpdateItemStatus(ctx, b.ItemID, catalog.StatusBorrowed, catalog.StatusAvailable); err != nil {
			return err
		}
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) GetBorrowing(_ context.Context, id uuid.UUID) (*Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.records[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("borrowing %s not found", id))
	}
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) ListBorrowings(_ context.Context, filter Filter) ([]*Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var borrowings []*Borrowing
	for _, b := range s.records {
		if filter.UserID != uuid.Nil && b.UserID != filter.UserID {
			continue
		}
		if filter.OpenOnly && b.ReturnedAt != nil {
			continue
		}
		copied := *b
		borrowings = append(borrowings, &copied)
	}
	sortByDueDate(borrowings)
	return borrowings, nil
}

func (s *MemoryStore) ListOverdue(_ context.Context, now time.Time) ([]*Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var borrowings []*Borrowing
	for _, b := range s.records {
		if b.ReturnedAt == nil && b.DueDate.Before(now) {
			copied := *b
			borrowings = append(borrowings, &copied)
		}
	}
	sortByDueDate(borrowings)
	return borrowings, nil
}

func (s *MemoryStore) ListDueSoon(_ context.Context, from, until time.Time) ([]*Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var borrowings []*Borrowing
	for _, b := range s.records {
		if b.ReturnedAt != nil || b.DueDate.Before(from) || b.DueDate.After(until) {
			continue
		}
		copied := *b
		borrowings = append(borrowings, &copied)
	}
	sortByDueDate(borrowings)
	return borrowings, nil
}

func sortByDueDate(borrowings []*Borrowing) {
	sort.Slice(borrowings, func(i, j int) bool {
		if !borrowings[i].DueDate.Equal(borrowings[j].DueDate) {
			return borrowings[i].DueDate.Before(borrowings[j].DueDate)
		}
		return borrowings[i].BorrowDate.Before(borrowings[j].BorrowDate)
	})
}
