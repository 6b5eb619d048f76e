// internal/infra/httpapi/user_handlers.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"birthday_notification_service/internal/app"
	"birthday_notification_service/internal/domain/user"
	idb "birthday_notification_service/internal/infra/database"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// UserHandler exposes the thin create/update/delete surface of the user
// CRUD collaborator over the UserService.
type UserHandler struct {
	users  *app.UserService
	logger *logrus.Entry
}

func NewUserHandler(users *app.UserService, logger *logrus.Entry) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type userRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	BirthDate *string `json:"birthDate"`
	Location  *string `json:"location"`
	Timezone  *string `json:"timezone"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
	Location  string `json:"location"`
	Timezone  string `json:"timezone"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		BirthDate: u.BirthDate.Format("2006-01-02"),
		Location:  u.Location,
		Timezone:  u.Timezone,
	}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.users.CreateUser(r.Context(), app.CreateUserInput{
		FirstName: deref(req.FirstName),
		LastName:  deref(req.LastName),
		BirthDate: deref(req.BirthDate),
		Location:  deref(req.Location),
		Timezone:  deref(req.Timezone),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created",
		"data":    toUserResponse(u),
	})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.users.UpdateUser(r.Context(), id, app.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Location:  req.Location,
		Timezone:  req.Timezone,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User updated",
		"data":    toUserResponse(u),
	})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "User removed"})
}

func (h *UserHandler) respondError(w http.ResponseWriter, err error) {
	var vErr *app.ErrValidation
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, idb.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Errorf("Internal error handling user request: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
