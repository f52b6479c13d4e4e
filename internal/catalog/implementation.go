package catalog

import (
	"context"

	"github.com/google/uuid"

	"libretto/internal/apierror"
)

// service implements the Service interface.
type service struct {
	store Store
}

// NewService creates a new catalog service instance.
func NewService(store Store) Service {
	return &service{store: store}
}

func (s *service) CreateAuthor(ctx context.Context, name, description string) (*Author, error) {
	if name == "" {
		return nil, apierror.ValidationFields("invalid author",
			map[string]string{"name": "must not be empty"})
	}

	author := &Author{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	if err := s.store.CreateAuthor(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

func (s *service) GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error) {
	return s.store.GetAuthor(ctx, id)
}

func (s *service) UpdateAuthor(ctx context.Context, id uuid.UUID, name, description string) (*Author, error) {
	if name == "" {
		return nil, apierror.ValidationFields("invalid author",
			map[string]string{"name": "must not be empty"})
	}

	author, err := s.store.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	author.Name = name
	author.Description = description
	if err := s.store.UpdateAuthor(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

// DeleteAuthor removes an author. Authors still referenced by books are
// protected by the foreign key and surface as a conflict.
func (s *service) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteAuthor(ctx, id)
}

func (s *service) ListAuthors(ctx context.Context, name string) ([]*Author, error) {
	return s.store.ListAuthors(ctx, name)
}

func (s *service) CreateBook(ctx context.Context, book *Book) (*Book, error) {
	if err := validateBook(book); err != nil {
		return nil, err
	}

	// Referencing a missing author must read as a validation problem, not
	// as a bare constraint violation.
	if _, err := s.store.GetAuthor(ctx, book.AuthorID); err != nil {
		if apierror.IsKind(err, apierror.KindNotFound) {
			return nil, apierror.ValidationFields("invalid book",
				map[string]string{"author_id": "author does not exist"})
		}
		return nil, err
	}

	book.ID = uuid.New()
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func validateBook(book *Book) error {
	fields := map[string]string{}
	if book.Title == "" {
		fields["title"] = "must not be empty"
	}
	if book.ISBN == "" {
		fields["isbn"] = "must not be empty"
	}
	if book.AuthorID == uuid.Nil {
		fields["author_id"] = "must not be empty"
	}
	if len(fields) > 0 {
		return apierror.ValidationFields("invalid book", fields)
	}
	return nil
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.store.GetBook(ctx, id)
}

func (s *service) UpdateBook(ctx context.Context, book *Book) (*Book, error) {
	if err := validateBook(book); err != nil {
		return nil, err
	}

	existing, err := s.store.GetBook(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	existing.Title = book.Title
	existing.AuthorID = book.AuthorID
	existing.ISBN = book.ISBN
	existing.Subject = book.Subject
	existing.PageCount = book.PageCount
	if err := s.store.UpdateBook(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteBook removes a book and cascades to its items. Items that are out
// on loan keep a borrowing reference and block the delete as a conflict.
func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteBook(ctx, id)
}

func (s *service) ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error) {
	return s.store.ListBooks(ctx, filter)
}

func (s *service) CreateItem(ctx context.Context, bookID uuid.UUID, barcode string) (*Item, error) {
	if barcode == "" {
		return nil, apierror.ValidationFields("invalid item",
			map[string]string{"barcode": "must not be empty"})
	}

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if apierror.IsKind(err, apierror.KindNotFound) {
			return nil, apierror.ValidationFields("invalid item",
				map[string]string{"book_id": "book does not exist"})
		}
		return nil, err
	}

	item := &Item{
		ID:      uuid.New(),
		BookID:  bookID,
		Barcode: barcode,
		Status:  StatusAvailable,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.store.GetItem(ctx, id)
}

// SetItemStatus performs a direct status write, e.g. marking a copy lost.
// Transitions touching the borrowed status belong to the borrowing
// component and are rejected here.
func (s *service) SetItemStatus(ctx context.Context, id uuid.UUID, status ItemStatus) (*Item, error) {
	if !status.Valid() {
		return nil, apierror.ValidationFields("invalid item",
			map[string]string{"status": "unknown status"})
	}
	if status == StatusBorrowed {
		return nil, apierror.Conflict("the borrowed status is set by creating a borrowing")
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == StatusBorrowed {
		return nil, apierror.Conflict("item is on loan; close the borrowing first")
	}

	if err := s.store.UpdateItemStatus(ctx, id, item.Status, status); err != nil {
		return nil, err
	}
	item.Status = status
	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == StatusBorrowed {
		return apierror.Conflict("item is on loan; close the borrowing first")
	}
	return s.store.DeleteItem(ctx, id)
}

func (s *service) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apierror.Validation("unknown status filter")
	}
	return s.store.ListItems(ctx, filter)
}

// ListItemsForBook returns the items of a book, failing with NotFound when
// the book itself does not exist.
func (s *service) ListItemsForBook(ctx context.Context, bookID uuid.UUID) ([]*Item, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.ListItemsForBook(ctx, bookID)
}
