package borrowing

import (
	"time"

	"github.com/google/uuid"
)

// Borrowing is a loan of one item to one user. A record with no ReturnedAt
// is open; the referenced item is borrowed for exactly as long as one open
// record points at it.
type Borrowing struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	ItemID     uuid.UUID  `json:"item_id" db:"item_id"`
	BorrowDate time.Time  `json:"borrow_date" db:"borrow_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Open reports whether the loan has not been returned yet.
func (b *Borrowing) Open() bool {
	return b.ReturnedAt == nil
}

// DaysOverdue returns how many whole days the loan is past due as of now,
// or 0 when it is closed or not yet due.
func (b *Borrowing) DaysOverdue(now time.Time) int {
	if !b.Open() || !now.After(b.DueDate) {
		return 0
	}
	return int(now.Sub(b.DueDate).Hours() / 24)
}

// Fine is the accumulated charge for an overdue loan at the given daily rate.
func (b *Borrowing) Fine(now time.Time, dailyFine float64) float64 {
	return float64(b.DaysOverdue(now)) * dailyFine
}

// Filter narrows borrowing listings. Zero values match everything.
type Filter struct {
	UserID   uuid.UUID
	OpenOnly bool
}
