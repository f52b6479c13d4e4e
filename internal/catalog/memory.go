package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"libretto/internal/apierror"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the uniqueness and reference rules of the PostgreSQL schema.
type MemoryStore struct {
	mu      sync.Mutex
	authors map[uuid.UUID]*Author
	books   map[uuid.UUID]*Book
	items   map[uuid.UUID]*Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		authors: make(map[uuid.UUID]*Author),
		books:   make(map[uuid.UUID]*Book),
		items:   make(map[uuid.UUID]*Item),
	}
}

func (s *MemoryStore) CreateAuthor(_ context.Context, author *Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	author.CreatedAt = now
	author.UpdatedAt = now
	stored := *author
	s.authors[author.ID] = &stored
	return nil
}

func (s *MemoryStore) GetAuthor(_ context.Context, id uuid.UUID) (*Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.authors[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("author %s not found", id))
	}
	copied := *author
	return &copied, nil
}

func (s *MemoryStore) UpdateAuthor(_ context.Context, author *Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.authors[author.ID]
	if !ok {
		return apierror.NotFound(fmt.Sprintf("author %s not found", author.ID))
	}
	stored.Name = author.Name
	stored.Description = author.Description
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteAuthor(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authors[id]; !ok {
		return apierror.NotFound(fmt.Sprintf("author %s not found", id))
	}
	for _, book := range s.books {
		if book.AuthorID == id {
			return apierror.Conflict("operation violates a reference constraint")
		}
	}
	delete(s.authors, id)
	return nil
}

func (s *MemoryStore) ListAuthors(_ context.Context, name string) ([]*Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var authors []*Author
	for _, author := range s.authors {
		if name == "" || strings.Contains(strings.ToLower(author.Name), strings.ToLower(name)) {
			copied := *author
			authors = append(authors, &copied)
		}
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })
	return authors, nil
}

func (s *MemoryStore) CreateBook(_ context.Context, book *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.books {
		if existing.ISBN == book.ISBN {
			return apierror.Conflict("duplicate value violates a uniqueness constraint")
		}
	}
	if _, ok := s.authors[book.AuthorID]; !ok {
		return apierror.Conflict("operation violates a reference constraint")
	}

	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	stored := *book
	s.books[book.ID] = &stored
	return nil
}

func (s *MemoryStore) GetBook(_ context.Context, id uuid.UUID) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("book %s not found", id))
	}
	copied := *book
	return &copied, nil
}

func (s *MemoryStore) UpdateBook(_ context.Context, book *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.books[book.ID]
	if !ok {
		return apierror.NotFound(fmt.Sprintf("book %s not found", book.ID))
	}
	for _, other := range s.books {
		if other.ID != book.ID && other.ISBN == book.ISBN {
			return apierror.Conflict("duplicate value violates a uniqueness constraint")
		}
	}
	stored.Title = book.Title
	stored.AuthorID = book.AuthorID
	stored.ISBN = book.ISBN
	stored.Subject = book.Subject
	stored.PageCount = book.PageCount
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteBook(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return apierror.NotFound(fmt.Sprintf("book %s not found", id))
	}
	for _, item := range s.items {
		if item.BookID == id && item.Status == StatusBorrowed {
			return apierror.Conflict("operation violates a reference constraint")
		}
	}
	for itemID, item := range s.items {
		if item.BookID == id {
			delete(s.items, itemID)
		}
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) ListBooks(_ context.Context, filter BookFilter) ([]*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var books []*Book
	for _, book := range s.books {
		if filter.Title != "" && !strings.Contains(strings.ToLower(book.Title), strings.ToLower(filter.Title)) {
			continue
		}
		if filter.ISBN != "" && book.ISBN != filter.ISBN {
			continue
		}
		if filter.AuthorID != uuid.Nil && book.AuthorID != filter.AuthorID {
			continue
		}
		copied := *book
		books = append(books, &copied)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (s *MemoryStore) CreateItem(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.Barcode == item.Barcode {
			return apierror.Conflict("duplicate value violates a uniqueness constraint")
		}
	}
	if _, ok := s.books[item.BookID]; !ok {
		return apierror.Conflict("operation violates a reference constraint")
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	stored := *item
	s.items[item.ID] = &stored
	return nil
}

func (s *MemoryStore) GetItem(_ context.Context, id uuid.UUID) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apierror.NotFound(fmt.Sprintf("item %s not found", id))
	}
	copied := *item
	return &copied, nil
}

// UpdateItemStatus is a compare-and-set on the status field, matching the
// PostgreSQL store's locking discipline.
func (s *MemoryStore) UpdateItemStatus(_ context.Context, id uuid.UUID, from, to ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.Status != from {
		return apierror.Conflict(fmt.Sprintf("item %s is no longer %s", id, from))
	}
	item.Status = to
	item.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apierror.NotFound(fmt.Sprintf("item %s not found", id))
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) ListItems(_ context.Context, filter ItemFilter) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*Item
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Barcode < items[j].Barcode })
	return items, nil
}

func (s *MemoryStore) ListItemsForBook(_ context.Context, bookID uuid.UUID) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*Item
	for _, item := range s.items {
		if item.BookID == bookID {
			copied := *item
			items = append(items, &copied)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Barcode < items[j].Barcode })
	return items, nil
}
