package api

import (
	"net/http"
	"strings"

	"github.com/roastsync/roastery/auth"
	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login exchanges credentials for a bearer token. Accepts a JSON body or an
// OAuth2-style form (username, password).
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			h.handleError(w, r, "invalid login", &bodyError{err: err})
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		if err := h.validate.Struct(&req); err != nil {
			h.handleError(w, r, "invalid login", err)
			return
		}
	} else if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid login", err)
		return
	}

	email := req.Username
	if email == "" {
		email = req.Email
	}
	token, _, err := h.auth.Login(r.Context(), email, req.Password)
	if err != nil {
		h.handleError(w, r, "failed to log in", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenDTO{AccessToken: token, TokenType: "bearer"})
}

// Me returns the authenticated user.
// GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserDTO(currentUser(r.Context())))
}

// =============================================================================
// USER HANDLERS (superuser)
// =============================================================================

// GET /api/v1/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toUserDTO))
}

// GET /api/v1/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// CreateUser also serves POST /api/v1/auth/register.
// POST /api/v1/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid user", err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	u, err := h.auth.Register(r.Context(), auth.NewUser{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		IsActive:    active,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		h.handleError(w, r, "failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// PUT /api/v1/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req UserUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid user", err)
		return
	}

	u, err := h.auth.Update(r.Context(), id, auth.UserChanges{
		FullName: req.FullName,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.handleError(w, r, "failed to update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// DeleteUser refuses to delete the caller's own account.
// DELETE /api/v1/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	if id == currentUser(r.Context()).ID {
		h.handleError(w, r, "invalid user", roastery.Invalid("id", "cannot delete your own account"))
		return
	}
	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		h.handleError(w, r, "failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
