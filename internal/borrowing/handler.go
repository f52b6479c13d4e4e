package borrowing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libretto/internal/apierror"
	"libretto/internal/auth"
)

type Handler struct {
	service   Service
	dailyFine float64
}

func NewHandler(service Service, dailyFine float64) *Handler {
	return &Handler{service: service, dailyFine: dailyFine}
}

// Routes mounts the borrowing endpoints. Every route requires a token;
// writes additionally require the borrowing write capability. Read scoping
// (members see only their own loans) happens in the handlers.
func (h *Handler) Routes(r chi.Router) {
	write := auth.Require(auth.OpBorrowingWrite)

	r.With(auth.RequireAuth).Get("/", h.handleList)
	r.With(write).Get("/overdue", h.handleListOverdue)
	r.With(write).Get("/due-soon", h.handleListDueSoon)
	r.With(auth.RequireAuth).Get("/{id}", h.handleGet)
	r.With(write).Post("/", h.handleCreate)
	r.With(write).Post("/{id}/return", h.handleReturn)
	r.With(write).Post("/{id}/extend", h.handleExtend)
	r.With(write).Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  uuid.UUID `json:"user_id"`
		ItemID  uuid.UUID `json:"item_id"`
		DueDate time.Time `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	b, err := h.service.Create(r.Context(), req.UserID, req.ItemID, req.DueDate)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	var req struct {
		ReturnedAt time.Time `json:"returned_at"`
	}
	// An empty body means "returned now".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	b, err := h.service.Return(r.Context(), id, req.ReturnedAt)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// defaultExtensionDays applies when the extend request carries no day count.
const defaultExtensionDays = 7

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	req := struct {
		Days int `json:"days"`
	}{Days: defaultExtensionDays}
	// An empty body means "extend by the default".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	b, err := h.service.ExtendDueDate(r.Context(), id, req.Days)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	claims := auth.FromContext(r.Context())
	if b.UserID != claims.UserID && !auth.Allowed(claims.Role, auth.OpBorrowingWrite) {
		apierror.Write(w, apierror.Authorization("insufficient role"))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())

	filter := Filter{OpenOnly: r.URL.Query().Get("active") == "true"}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			apierror.Write(w, apierror.Validation("invalid user_id filter"))
			return
		}
		filter.UserID = userID
	}

	// Members only ever see their own records, whatever they ask for.
	if !auth.Allowed(claims.Role, auth.OpBorrowingWrite) {
		filter.UserID = claims.UserID
	}

	borrowings, err := h.service.List(r.Context(), filter)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowings)
}

// overdueRecord decorates a borrowing with its lateness and accumulated fine.
type overdueRecord struct {
	*Borrowing
	DaysOverdue int     `json:"days_overdue"`
	Fine        float64 `json:"fine"`
}

func (h *Handler) handleListOverdue(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	borrowings, err := h.service.ListOverdue(r.Context(), now)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	records := make([]overdueRecord, 0, len(borrowings))
	for _, b := range borrowings {
		records = append(records, overdueRecord{
			Borrowing:   b,
			DaysOverdue: b.DaysOverdue(now),
			Fine:        b.Fine(now, h.dailyFine),
		})
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleListDueSoon(w http.ResponseWriter, r *http.Request) {
	borrowings, err := h.service.ListDueSoon(r.Context(), time.Now())
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowings)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		apierror.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
