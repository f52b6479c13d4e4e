package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libretto/internal/accounts"
	"libretto/internal/auth"
	"libretto/internal/borrowing"
	"libretto/internal/catalog"
	"libretto/internal/config"
)

type testEnv struct {
	server    *httptest.Server
	accounts  accounts.Service
	catalog   catalog.Service
	borrowing borrowing.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:            "test-secret",
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           24 * time.Hour,
		AnonymousCatalogRead: true,
		DailyFine:            10.0,
	}

	items := catalog.NewMemoryStore()
	accountsSvc := accounts.NewService(accounts.NewMemoryStore())
	catalogSvc := catalog.NewService(items)
	borrowingSvc := borrowing.NewService(borrowing.NewMemoryStore(items))

	handler := New(Deps{
		Config:    cfg,
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Accounts:  accountsSvc,
		Catalog:   catalogSvc,
		Borrowing: borrowingSvc,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:    srv,
		accounts:  accountsSvc,
		catalog:   catalogSvc,
		borrowing: borrowingSvc,
	}
}

// registerAs creates a user via the API and promotes it through the service
// layer when a staff role is needed, then exchanges credentials for tokens.
func (e *testEnv) registerAs(t *testing.T, username string, role auth.Role) (uuid.UUID, string) {
	t.Helper()

	resp := e.do(t, "POST", "/auth/registration", "", map[string]string{
		"username":              username,
		"email":                 username + "@example.com",
		"password":              "pw123pw123",
		"password_confirmation": "pw123pw123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var user accounts.User
	decode(t, resp, &user)

	if role != auth.RoleMember {
		_, err := e.accounts.SetRole(context.Background(), user.ID, role)
		require.NoError(t, err)
	}

	resp = e.do(t, "POST", "/auth/token", "", map[string]string{
		"username": username,
		"password": "pw123pw123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair auth.TokenPair
	decode(t, resp, &pair)

	return user.ID, pair.Access
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorKind(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string            `json:"kind"`
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		} `json:"error"`
	}
	decode(t, resp, &body)
	return body.Error.Kind
}

func (e *testEnv) seedItem(t *testing.T, token string) catalog.Item {
	t.Helper()

	resp := e.do(t, "POST", "/library/authors", token, map[string]string{"name": "Jane Austen"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var author catalog.Author
	decode(t, resp, &author)

	resp = e.do(t, "POST", "/library/books", token, map[string]interface{}{
		"title":     "Pride and Prejudice",
		"author_id": author.ID,
		"isbn":      "9780141439518",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var book catalog.Book
	decode(t, resp, &book)

	resp = e.do(t, "POST", "/library/items", token, map[string]interface{}{
		"book_id": book.ID,
		"barcode": "BC-0001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item catalog.Item
	decode(t, resp, &item)
	return item
}

func TestRegistrationValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/auth/registration", "", map[string]string{
		"username":              "alice",
		"email":                 "alice@example.com",
		"password":              "pw123pw123",
		"password_confirmation": "something-else",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", errorKind(t, resp))

	// The failed attempt persisted nothing, so the name is still free.
	resp = env.do(t, "POST", "/auth/registration", "", map[string]string{
		"username":              "alice",
		"email":                 "alice@example.com",
		"password":              "pw123pw123",
		"password_confirmation": "pw123pw123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestTokenIssuanceAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.registerAs(t, "alice", auth.RoleMember)

	resp := env.do(t, "POST", "/auth/token", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication", errorKind(t, resp))

	resp = env.do(t, "POST", "/auth/token", "", map[string]string{
		"username": "alice",
		"password": "pw123pw123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair auth.TokenPair
	decode(t, resp, &pair)

	resp = env.do(t, "POST", "/auth/token/refresh", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed struct {
		Access string `json:"access"`
	}
	decode(t, resp, &refreshed)
	assert.NotEmpty(t, refreshed.Access)

	resp = env.do(t, "POST", "/auth/token/refresh", "", map[string]string{"refresh": pair.Access})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t)
	_, memberToken := env.registerAs(t, "alice", auth.RoleMember)
	_, librarianToken := env.registerAs(t, "bob", auth.RoleLibrarian)
	_, adminToken := env.registerAs(t, "carol", auth.RoleAdmin)

	// Anonymous writes are unauthorized, member writes forbidden.
	resp := env.do(t, "POST", "/library/authors", "", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "POST", "/library/authors", memberToken, map[string]string{"name": "X"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "authorization", errorKind(t, resp))

	// Member listing is staff-only; librarian listing is admin-only.
	resp = env.do(t, "GET", "/accounts/members", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/accounts/members", librarianToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/accounts/librarians", librarianToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/accounts/librarians", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var librarians []accounts.User
	decode(t, resp, &librarians)
	require.Len(t, librarians, 1)
	assert.Equal(t, "bob", librarians[0].Username)
}

func TestAnonymousCatalogRead(t *testing.T) {
	env := newTestEnv(t)
	_, librarianToken := env.registerAs(t, "bob", auth.RoleLibrarian)
	item := env.seedItem(t, librarianToken)

	resp := env.do(t, "GET", "/library/books", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var books []catalog.Book
	decode(t, resp, &books)
	require.Len(t, books, 1)

	resp = env.do(t, "GET", fmt.Sprintf("/library/books/%s/items", books[0].ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []catalog.Item
	decode(t, resp, &items)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	resp = env.do(t, "GET", fmt.Sprintf("/library/books/%s/items", uuid.New()), "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(t, resp))
}

func TestBorrowingLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.registerAs(t, "alice", auth.RoleMember)
	_, librarianToken := env.registerAs(t, "bob", auth.RoleLibrarian)
	item := env.seedItem(t, librarianToken)

	// Members cannot open loans, not even their own.
	resp := env.do(t, "POST", "/borrowings", aliceToken, map[string]interface{}{
		"user_id":  aliceID,
		"item_id":  item.ID,
		"due_date": time.Now().AddDate(0, 0, 14),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "POST", "/borrowings", librarianToken, map[string]interface{}{
		"user_id":  aliceID,
		"item_id":  item.ID,
		"due_date": time.Now().AddDate(0, 0, 14),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var loan borrowing.Borrowing
	decode(t, resp, &loan)

	resp = env.do(t, "GET", fmt.Sprintf("/library/items/%s", item.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated catalog.Item
	decode(t, resp, &updated)
	assert.Equal(t, catalog.StatusBorrowed, updated.Status)

	// A second loan for the same copy conflicts.
	resp = env.do(t, "POST", "/borrowings", librarianToken, map[string]interface{}{
		"user_id":  aliceID,
		"item_id":  item.ID,
		"due_date": time.Now().AddDate(0, 0, 14),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", errorKind(t, resp))

	resp = env.do(t, "POST", fmt.Sprintf("/borrowings/%s/return", loan.ID), librarianToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var closed borrowing.Borrowing
	decode(t, resp, &closed)
	require.NotNil(t, closed.ReturnedAt)

	resp = env.do(t, "GET", fmt.Sprintf("/library/items/%s", item.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Equal(t, catalog.StatusAvailable, updated.Status)

	resp = env.do(t, "POST", fmt.Sprintf("/borrowings/%s/return", loan.ID), librarianToken, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", errorKind(t, resp))
}

func TestExtendAndDueSoonOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.registerAs(t, "alice", auth.RoleMember)
	_, librarianToken := env.registerAs(t, "bob", auth.RoleLibrarian)
	item := env.seedItem(t, librarianToken)

	resp := env.do(t, "POST", "/borrowings", librarianToken, map[string]interface{}{
		"user_id":  aliceID,
		"item_id":  item.ID,
		"due_date": time.Now().AddDate(0, 0, 2),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var loan borrowing.Borrowing
	decode(t, resp, &loan)

	// Due within the window, so the loan is on the due-soon list. The
	// listing is staff-only.
	resp = env.do(t, "GET", "/borrowings/due-soon", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var due []borrowing.Borrowing
	resp = env.do(t, "GET", "/borrowings/due-soon", librarianToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &due)
	require.Len(t, due, 1)
	assert.Equal(t, loan.ID, due[0].ID)

	// Members cannot extend, and out-of-range extensions are refused.
	resp = env.do(t, "POST", fmt.Sprintf("/borrowings/%s/extend", loan.ID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "POST", fmt.Sprintf("/borrowings/%s/extend", loan.ID), librarianToken,
		map[string]int{"days": 45})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", errorKind(t, resp))

	// An empty body extends by the default week.
	resp = env.do(t, "POST", fmt.Sprintf("/borrowings/%s/extend", loan.ID), librarianToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var extended borrowing.Borrowing
	decode(t, resp, &extended)
	assert.True(t, extended.DueDate.Equal(loan.DueDate.AddDate(0, 0, 7)))

	// The extension pushed the loan out of the due-soon window.
	resp = env.do(t, "GET", "/borrowings/due-soon", librarianToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &due)
	assert.Empty(t, due)
}

func TestMembersSeeOnlyTheirOwnBorrowings(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.registerAs(t, "alice", auth.RoleMember)
	_, carolToken := env.registerAs(t, "carol", auth.RoleMember)
	_, librarianToken := env.registerAs(t, "bob", auth.RoleLibrarian)
	item := env.seedItem(t, librarianToken)

	resp := env.do(t, "POST", "/borrowings", librarianToken, map[string]interface{}{
		"user_id":  aliceID,
		"item_id":  item.ID,
		"due_date": time.Now().AddDate(0, 0, 14),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var loan borrowing.Borrowing
	decode(t, resp, &loan)

	var listed []borrowing.Borrowing

	resp = env.do(t, "GET", "/borrowings", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &listed)
	require.Len(t, listed, 1)

	// Asking for someone else's records still returns only your own.
	resp = env.do(t, "GET", "/borrowings?user_id="+aliceID.String(), carolToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &listed)
	assert.Empty(t, listed)

	resp = env.do(t, "GET", "/borrowings", librarianToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &listed)
	assert.Len(t, listed, 1)

	// Detail access follows the same rule.
	resp = env.do(t, "GET", fmt.Sprintf("/borrowings/%s", loan.ID), carolToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", fmt.Sprintf("/borrowings/%s", loan.ID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
