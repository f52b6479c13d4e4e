package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libretto/internal/apierror"
)

func seedBook(t *testing.T, svc Service) *Book {
	t.Helper()

	author, err := svc.CreateAuthor(context.Background(), "Jane Austen", "")
	require.NoError(t, err)

	book, err := svc.CreateBook(context.Background(), &Book{
		Title:    "Pride and Prejudice",
		AuthorID: author.ID,
		ISBN:     "9780141439518",
	})
	require.NoError(t, err)
	return book
}

func TestAuthorCRUD(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	author, err := svc.CreateAuthor(ctx, "Jane Austen", "English novelist")
	require.NoError(t, err)

	got, err := svc.GetAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Austen", got.Name)

	updated, err := svc.UpdateAuthor(ctx, author.ID, "J. Austen", "novelist")
	require.NoError(t, err)
	assert.Equal(t, "J. Austen", updated.Name)

	authors, err := svc.ListAuthors(ctx, "austen")
	require.NoError(t, err)
	require.Len(t, authors, 1)

	require.NoError(t, svc.DeleteAuthor(ctx, author.ID))
	_, err = svc.GetAuthor(ctx, author.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestCreateAuthorRequiresName(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.CreateAuthor(context.Background(), "", "")
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestDeleteAuthorWithBooksIsBlocked(t *testing.T) {
	svc := NewService(NewMemoryStore())
	book := seedBook(t, svc)

	err := svc.DeleteAuthor(context.Background(), book.AuthorID)
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestCreateBookWithUnknownAuthorIsValidationError(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.CreateBook(context.Background(), &Book{
		Title:    "Orphan",
		AuthorID: uuid.New(),
		ISBN:     "9780000000001",
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestDuplicateISBNIsConflict(t *testing.T) {
	svc := NewService(NewMemoryStore())
	book := seedBook(t, svc)

	_, err := svc.CreateBook(context.Background(), &Book{
		Title:    "Copycat",
		AuthorID: book.AuthorID,
		ISBN:     book.ISBN,
	})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestListBooksFilters(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	austen, err := svc.CreateAuthor(ctx, "Jane Austen", "")
	require.NoError(t, err)
	fitzgerald, err := svc.CreateAuthor(ctx, "F. Scott Fitzgerald", "")
	require.NoError(t, err)

	_, err = svc.CreateBook(ctx, &Book{Title: "Pride and Prejudice", AuthorID: austen.ID, ISBN: "9780141439518"})
	require.NoError(t, err)
	_, err = svc.CreateBook(ctx, &Book{Title: "The Great Gatsby", AuthorID: fitzgerald.ID, ISBN: "9780743273565"})
	require.NoError(t, err)

	byTitle, err := svc.ListBooks(ctx, BookFilter{Title: "gatsby"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "The Great Gatsby", byTitle[0].Title)

	byISBN, err := svc.ListBooks(ctx, BookFilter{ISBN: "9780141439518"})
	require.NoError(t, err)
	require.Len(t, byISBN, 1)

	byAuthor, err := svc.ListBooks(ctx, BookFilter{AuthorID: austen.ID})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Pride and Prejudice", byAuthor[0].Title)

	all, err := svc.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListItemsForBook(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	book := seedBook(t, svc)

	_, err := svc.CreateItem(ctx, book.ID, "BC-0001")
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, book.ID, "BC-0002")
	require.NoError(t, err)

	items, err := svc.ListItemsForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.ListItemsForBook(ctx, uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestNewItemsStartAvailable(t *testing.T) {
	svc := NewService(NewMemoryStore())
	book := seedBook(t, svc)

	item, err := svc.CreateItem(context.Background(), book.ID, "BC-0001")
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, item.Status)
}

func TestDirectStatusWriteCannotTouchBorrowed(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	book := seedBook(t, svc)

	item, err := svc.CreateItem(ctx, book.ID, "BC-0001")
	require.NoError(t, err)

	// Marking a copy lost is a plain staff action.
	lost, err := svc.SetItemStatus(ctx, item.ID, StatusLost)
	require.NoError(t, err)
	assert.Equal(t, StatusLost, lost.Status)

	// Setting borrowed directly is not.
	_, err = svc.SetItemStatus(ctx, item.ID, StatusBorrowed)
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))

	// Neither is overwriting a borrowed item's status.
	require.NoError(t, store.UpdateItemStatus(ctx, item.ID, StatusLost, StatusBorrowed))
	_, err = svc.SetItemStatus(ctx, item.ID, StatusAvailable)
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestDeleteBorrowedItemIsBlocked(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	book := seedBook(t, svc)

	item, err := svc.CreateItem(ctx, book.ID, "BC-0001")
	require.NoError(t, err)
	require.NoError(t, store.UpdateItemStatus(ctx, item.ID, StatusAvailable, StatusBorrowed))

	err = svc.DeleteItem(ctx, item.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}
