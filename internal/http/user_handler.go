package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/repository"
)

// UserHandler 用户资料读写（响应永远剥离密码）
type UserHandler struct {
	users  repository.UserRepo
	logger *zap.Logger
}

func NewUserHandler(users repository.UserRepo, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Get GET /api/user/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to get user", zap.Int64("user_id", id), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

type userUpdateRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FullName  *string `json:"fullName"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birthDate"`
}

// Update PUT /api/user/{id}（部分更新，未出现的字段不动）
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req userUpdateRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email != nil && (strings.TrimSpace(*req.Email) == "" || !strings.Contains(*req.Email, "@")) {
		errorJSON(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		errorJSON(w, http.StatusBadRequest, "fullName cannot be empty")
		return
	}

	user, err := h.users.UpdateUser(r.Context(), id, repository.UserUpdate{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to update user", zap.Int64("user_id", id), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}
