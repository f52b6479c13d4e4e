package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libretto/internal/apierror"
)

// postgresStore persists the catalog in PostgreSQL.
type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a catalog store backed by the given database.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateAuthor(ctx context.Context, author *Author) error {
	query := `
		INSERT INTO authors (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query, author.ID, author.Name, author.Description).
		Scan(&author.CreatedAt, &author.UpdatedAt)
	if err != nil {
		return apierror.FromStore(err, "author not found")
	}
	return nil
}

func (s *postgresStore) GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM authors
		WHERE id = $1
	`
	author := &Author{}
	if err := s.db.GetContext(ctx, author, query, id); err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("author %s not found", id))
	}
	return author, nil
}

func (s *postgresStore) UpdateAuthor(ctx context.Context, author *Author) error {
	query := `
		UPDATE authors
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
	`
	res, err := s.db.ExecContext(ctx, query, author.Name, author.Description, author.ID)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("author %s not found", author.ID))
	}
	return nil
}

func (s *postgresStore) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("author %s not found", id))
	}
	return nil
}

func (s *postgresStore) ListAuthors(ctx context.Context, name string) ([]*Author, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM authors
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
	`
	var authors []*Author
	if err := s.db.SelectContext(ctx, &authors, query, name); err != nil {
		return nil, apierror.FromStore(err, "no authors")
	}
	return authors, nil
}

func (s *postgresStore) CreateBook(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (id, title, author_id, isbn, subject, page_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query,
		book.ID, book.Title, book.AuthorID, book.ISBN, book.Subject, book.PageCount,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return apierror.FromStore(err, "book not found")
	}
	return nil
}

func (s *postgresStore) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	query := `
		SELECT id, title, author_id, isbn, subject, page_count, created_at, updated_at
		FROM books
		WHERE id = $1
	`
	book := &Book{}
	if err := s.db.GetContext(ctx, book, query, id); err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("book %s not found", id))
	}
	return book, nil
}

func (s *postgresStore) UpdateBook(ctx context.Context, book *Book) error {
	query := `
		UPDATE books
		SET title = $1, author_id = $2, isbn = $3, subject = $4, page_count = $5, updated_at = NOW()
		WHERE id = $6
	`
	res, err := s.db.ExecContext(ctx, query,
		book.Title, book.AuthorID, book.ISBN, book.Subject, book.PageCount, book.ID)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("book %s not found", book.ID))
	}
	return nil
}

// DeleteBook relies on ON DELETE CASCADE from items to books; an item that
// still has borrowing records blocks the delete through the items FK.
func (s *postgresStore) DeleteBook(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("book %s not found", id))
	}
	return nil
}

func (s *postgresStore) ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error) {
	query := `
		SELECT id, title, author_id, isbn, subject, page_count, created_at, updated_at
		FROM books
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		AND ($2 = '' OR isbn = $2)
		AND ($3::uuid IS NULL OR author_id = $3)
		ORDER BY title
	`
	var authorID interface{}
	if filter.AuthorID != uuid.Nil {
		authorID = filter.AuthorID
	}
	var books []*Book
	if err := s.db.SelectContext(ctx, &books, query, filter.Title, filter.ISBN, authorID); err != nil {
		return nil, apierror.FromStore(err, "no books")
	}
	return books, nil
}

func (s *postgresStore) CreateItem(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO items (id, book_id, barcode, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query, item.ID, item.BookID, item.Barcode, item.Status).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return apierror.FromStore(err, "item not found")
	}
	return nil
}

func (s *postgresStore) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `
		SELECT id, book_id, barcode, status, created_at, updated_at
		FROM items
		WHERE id = $1
	`
	item := &Item{}
	if err := s.db.GetContext(ctx, item, query, id); err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("item %s not found", id))
	}
	return item, nil
}

// UpdateItemStatus is a compare-and-set on the status column. A vanished or
// concurrently mutated row reads as a conflict.
func (s *postgresStore) UpdateItemStatus(ctx context.Context, id uuid.UUID, from, to ItemStatus) error {
	query := `
		UPDATE items
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := s.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.Conflict(fmt.Sprintf("item %s is no longer %s", id, from))
	}
	return nil
}

func (s *postgresStore) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return apierror.FromStore(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound(fmt.Sprintf("item %s not found", id))
	}
	return nil
}

func (s *postgresStore) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	query := `
		SELECT id, book_id, barcode, status, created_at, updated_at
		FROM items
		WHERE $1 = '' OR status = $1
		ORDER BY barcode
	`
	var items []*Item
	if err := s.db.SelectContext(ctx, &items, query, string(filter.Status)); err != nil {
		return nil, apierror.FromStore(err, "no items")
	}
	return items, nil
}

func (s *postgresStore) ListItemsForBook(ctx context.Context, bookID uuid.UUID) ([]*Item, error) {
	query := `
		SELECT id, book_id, barcode, status, created_at, updated_at
		FROM items
		WHERE book_id = $1
		ORDER BY barcode
	`
	var items []*Item
	if err := s.db.SelectContext(ctx, &items, query, bookID); err != nil {
		return nil, apierror.FromStore(err, "no items")
	}
	return items, nil
}
