package borrowing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libretto/internal/apierror"
)

const (
	// Bounds on a single due-date extension, in days.
	minExtensionDays = 1
	maxExtensionDays = 30

	// How far ahead the due-soon listing looks.
	dueSoonWindowDays = 3
)

// service implements the Service interface.
type service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new borrowing service instance.
func NewService(store Store) Service {
	return &service{store: store, now: time.Now}
}

// Create opens a loan. The store guarantees the record insert and the item
// status flip happen in one transaction.
func (s *service) Create(ctx context.Context, userID, itemID uuid.UUID, dueDate time.Time) (*Borrowing, error) {
	fields := map[string]string{}
	if userID == uuid.Nil {
		fields["user_id"] = "must not be empty"
	}
	if itemID == uuid.Nil {
		fields["item_id"] = "must not be empty"
	}
	borrowDate := s.now()
	if !dueDate.After(borrowDate) {
		fields["due_date"] = "must be after the borrow date"
	}
	if len(fields) > 0 {
		return nil, apierror.ValidationFields("invalid borrowing", fields)
	}

	b := &Borrowing{
		ID:         uuid.New(),
		UserID:     userID,
		ItemID:     itemID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
	}
	if err := s.store.CreateBorrowing(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Return closes an open loan. Closed is terminal: returning twice is a
// conflict.
func (s *service) Return(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*Borrowing, error) {
	if returnedAt.IsZero() {
		returnedAt = s.now()
	}
	return s.store.CloseBorrowing(ctx, id, returnedAt)
}

// ExtendDueDate pushes an open loan's due date forward. Only the record's
// due date moves; the borrow date and item status are untouched.
func (s *service) ExtendDueDate(ctx context.Context, id uuid.UUID, days int) (*Borrowing, error) {
	if days < minExtensionDays || days > maxExtensionDays {
		return nil, apierror.ValidationFields("invalid extension", map[string]string{
			"days": fmt.Sprintf("must be between %d and %d", minExtensionDays, maxExtensionDays),
		})
	}
	return s.store.ExtendBorrowing(ctx, id, days)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	return s.store.GetBorrowing(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Borrowing, error) {
	return s.store.ListBorrowings(ctx, filter)
}

// ListOverdue returns open loans past their due date.
func (s *service) ListOverdue(ctx context.Context, now time.Time) ([]*Borrowing, error) {
	if now.IsZero() {
		now = s.now()
	}
	return s.store.ListOverdue(ctx, now)
}

// ListDueSoon returns open loans that must come back within the next few
// days. Overdue loans are not due soon; they show up in ListOverdue instead.
func (s *service) ListDueSoon(ctx context.Context, now time.Time) ([]*Borrowing, error) {
	if now.IsZero() {
		now = s.now()
	}
	return s.store.ListDueSoon(ctx, now, now.AddDate(0, 0, dueSoonWindowDays))
}

// Delete removes a record entirely. An open record reverts its item to
// available in the same transaction.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteBorrowing(ctx, id)
}
