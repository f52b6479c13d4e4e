package accounts

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
	tokens  *auth.TokenManager
}

func NewHandler(service Service, tokens *auth.TokenManager) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// AuthRoutes mounts the unauthenticated registration and token endpoints.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/registration", h.handleRegister)
	r.Post("/token", h.handleToken)
	r.Post("/token/refresh", h.handleRefresh)
}

// Routes mounts the role-gated account management endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.With(auth.Require(auth.OpListMembers)).Get("/members", h.handleListMembers)
	r.With(auth.Require(auth.OpListLibrarians)).Get("/librarians", h.handleListLibrarians)
	r.With(auth.RequireAuth).Get("/users/{id}", h.handleGetUser)
	r.With(auth.Require(auth.OpManageUsers)).Patch("/users/{id}/role", h.handleSetRole)
	r.With(auth.Require(auth.OpManageUsers)).Delete("/users/{id}", h.handleDeactivate)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	user, err := h.service.Register(r.Context(), reg)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	pair, err := h.tokens.IssuePair(user.ID, user.Username, user.Role)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	access, err := h.tokens.Refresh(req.Refresh)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListByRole(r.Context(), auth.RoleMember)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleListLibrarians(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListByRole(r.Context(), auth.RoleLibrarian)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Write(w, apierror.Validation("invalid user ID"))
		return
	}

	// Members may only look at themselves.
	claims := auth.FromContext(r.Context())
	if claims.UserID != id && !auth.Allowed(claims.Role, auth.OpListMembers) {
		apierror.Write(w, apierror.Authorization("insufficient role"))
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Write(w, apierror.Validation("invalid user ID"))
		return
	}

	var req struct {
		Role auth.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.Validation("malformed request body"))
		return
	}

	user, err := h.service.SetRole(r.Context(), id, req.Role)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.Write(w, apierror.Validation("invalid user ID"))
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		apierror.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
