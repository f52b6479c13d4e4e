package borrowing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the borrowing component. Role checks
// happen at the HTTP layer; the service enforces the state machine.
type Service interface {
	Create(ctx context.Context, userID, itemID uuid.UUID, dueDate time.Time) (*Borrowing, error)
	Return(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*Borrowing, error)
	ExtendDueDate(ctx context.Context, id uuid.UUID, days int) (*Borrowing, error)
	Get(ctx context.Context, id uuid.UUID) (*Borrowing, error)
	List(ctx context.Context, filter Filter) ([]*Borrowing, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*Borrowing, error)
	ListDueSoon(ctx context.Context, now time.Time) ([]*Borrowing, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store persists borrowings and owns the transactional coupling between a
// borrowing record and its item's status. Every mutation below is atomic:
// either both the record and the item status change, or neither does.
type Store interface {
	// CreateBorrowing inserts an open record and flips the item from
	// available to borrowed. Fails with Conflict when the item is not
	// available, NotFound when it does not exist.
	CreateBorrowing(ctx context.Context, b *Borrowing) error

	// CloseBorrowing sets the return date and flips the item back to
	// available. Fails with Conflict when the record is already closed.
	CloseBorrowing(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*Borrowing, error)

	// ExtendBorrowing pushes an open record's due date forward by the
	// given number of days. Fails with Conflict when the record is
	// already closed.
	ExtendBorrowing(ctx context.Context, id uuid.UUID, days int) (*Borrowing, error)

	// DeleteBorrowing removes a record. Deleting an open record reverts
	// the item to available so no item is left borrowed without a
	// tracking record.
	DeleteBorrowing(ctx context.Context, id uuid.UUID) error

	GetBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error)
	ListBorrowings(ctx context.Context, filter Filter) ([]*Borrowing, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*Borrowing, error)
	ListDueSoon(ctx context.Context, from, until time.Time) ([]*Borrowing, error)
}
