package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog component.
type Service interface {
	CreateAuthor(ctx context.Context, name, description string) (*Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, name, description string) (*Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	ListAuthors(ctx context.Context, name string) ([]*Author, error)

	CreateBook(ctx context.Context, book *Book) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateBook(ctx context.Context, book *Book) (*Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error)

	CreateItem(ctx context.Context, bookID uuid.UUID, barcode string) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	SetItemStatus(ctx context.Context, id uuid.UUID, status ItemStatus) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
	ListItemsForBook(ctx context.Context, bookID uuid.UUID) ([]*Item, error)
}

// Store persists the catalog. Implementations translate their storage
// errors into the apierror taxonomy.
type Store interface {
	CreateAuthor(ctx context.Context, author *Author) error
	GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error)
	UpdateAuthor(ctx context.Context, author *Author) error
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	ListAuthors(ctx context.Context, name string) ([]*Author, error)

	CreateBook(ctx context.Context, book *Book) error
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateBook(ctx context.Context, book *Book) error
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error)

	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateItemStatus(ctx context.Context, id uuid.UUID, from, to ItemStatus) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
	ListItemsForBook(ctx context.Context, bookID uuid.UUID) ([]*Item, error)
}
