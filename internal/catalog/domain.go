package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Author of one or more books. Deleting an author that still has books is
// rejected.
type Author struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Book is a title in the catalog. Physical copies are tracked as Items.
type Book struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	ISBN      string    `json:"isbn" db:"isbn"`
	Subject   string    `json:"subject,omitempty" db:"subject"`
	PageCount int       `json:"page_count,omitempty" db:"page_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ItemStatus is the lending state of a single physical copy.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusBorrowed  ItemStatus = "borrowed"
	StatusReserved  ItemStatus = "reserved"
	StatusLost      ItemStatus = "lost"
)

// Valid reports whether s is one of the known statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBorrowed, StatusReserved, StatusLost:
		return true
	}
	return false
}

// Item is a single physical copy of a book. The borrowed status is owned by
// the borrowing component; it may not be set or cleared directly.
type Item struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	BookID    uuid.UUID  `json:"book_id" db:"book_id"`
	Barcode   string     `json:"barcode" db:"barcode"`
	Status    ItemStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// BookFilter narrows book listings. Zero values match everything.
type BookFilter struct {
	Title    string
	ISBN     string
	AuthorID uuid.UUID
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Status ItemStatus
}
