package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libretto/internal/apierror"
	"libretto/internal/auth"
)

type Handler struct {
	service Service

	// anonymousRead opens GET endpoints to unauthenticated callers.
	anonymousRead bool
}

func NewHandler(service Service, anonymousRead bool) *Handler {
	return &Handler{service: service, anonymousRead: anonymousRead}
}

// Routes mounts the catalog endpoints. Writes always require the catalog
// write capability; reads depend on the anonymous-read policy.
func (h *Handler) Routes(r chi.Router) {
	read := h.readMiddleware()
	write := auth.Require(auth.OpCatalogWrite)

	r.Route("/authors", func(r chi.Router) {
		r.With(read).Get("/", h.handleListAuthors)
		r.With(read).Get("/{id}", h.handleGetAuthor)
		r.With(write).Post("/", h.handleCreateAuthor)
		r.With(write).Put("/{id}", h.handleUpdateAuthor)
		r.With(write).Delete("/{id}", h.handleDeleteAuthor)
	})

	r.Route("/books", func(r chi.Router) {
		r.With(read).Get("/", h.handleListBooks)
		r.With(read).Get("/{id}", h.handleGetBook)
		r.With(read).Get("/{id}/items", h.handleListItemsForBook)
		r.With(write).Post("/", h.handleCreateBook)
		r.With(write).Put("/{id}", h.handleUpdateBook)
		r.With(write).Delete("/{id}", h.handleDeleteBook)
	})

	r.Route("/items", func(r chi.Router) {
		r.With(read).Get("/", h.handleListItems)
		r.With(read).Get("/{id}", h.handleGetItem)
		r.With(write).Post("/", h.handleCreateItem)
		r.With(write).Patch("/{id}/status", h.handleSetItemStatus)
		r.With(write).Delete("/{id}", h.handleDeleteItem)
	})
}

func (h *Handler) readMiddleware() func(http.Handler) http.Handler {
	if h.anonymousRead {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.Require(auth.OpCatalogRead)
}

func (h *Handler) handleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	author, err := h.service.CreateAuthor(r.Context(), req.Name, req.Description)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

func (h *Handler) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (h *Handler) handleUpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	author, err := h.service.UpdateAuthor(r.Context(), id, req.Name, req.Description)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (h *Handler) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if err := h.service.DeleteAuthor(r.Context(), id); err != nil {
		apierror.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string    `json:"title"`
		AuthorID  uuid.UUID `json:"author_id"`
		ISBN      string    `json:"isbn"`
		Subject   string    `json:"subject"`
		PageCount int       `json:"page_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	book, err := h.service.CreateBook(r.Context(), &Book{
		Title:     req.Title,
		AuthorID:  req.AuthorID,
		ISBN:      req.ISBN,
		Subject:   req.Subject,
		PageCount: req.PageCount,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	var req struct {
		Title     string    `json:"title"`
		AuthorID  uuid.UUID `json:"author_id"`
		ISBN      string    `json:"isbn"`
		Subject   string    `json:"subject"`
		PageCount int       `json:"page_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	book, err := h.service.UpdateBook(r.Context(), &Book{
		ID:        id,
		Title:     req.Title,
		AuthorID:  req.AuthorID,
		ISBN:      req.ISBN,
		Subject:   req.Subject,
		PageCount: req.PageCount,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		apierror.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	filter := BookFilter{
		Title: r.URL.Query().Get("title"),
		ISBN:  r.URL.Query().Get("isbn"),
	}
	if raw := r.URL.Query().Get("author_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apierror.Write(w, apierror.Validation("invalid author_id filter"))
			return
		}
		filter.AuthorID = id
	}

	books, err := h.service.ListBooks(r.Context(), filter)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) handleListItemsForBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	items, err := h.service.ListItemsForBook(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID  uuid.UUID `json:"book_id"`
		Barcode string    `json:"barcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	item, err := h.service.CreateItem(r.Context(), req.BookID, req.Barcode)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	var req struct {
		Status ItemStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	item, err := h.service.SetItemStatus(r.Context(), id, req.Status)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		apierror.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context(), ItemFilter{
		Status: ItemStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apierror.Validation("invalid ID in path")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
