package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
)

// ContactHandler 紧急联系人读写
// 号码形态只在这一层校验，核心逻辑把 whatsapp 当不透明字符串。
type ContactHandler struct {
	contacts repository.ContactRepo
	logger   *zap.Logger
}

func NewContactHandler(contacts repository.ContactRepo, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

type contactCreateRequest struct {
	UserID   int64  `json:"userId"`
	Name     string `json:"name"`
	Whatsapp string `json:"whatsapp"`
}

// Create POST /api/emergency-contact（replace-on-create：同一用户只保留一条）
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactCreateRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		errorJSON(w, http.StatusBadRequest, "userId is required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		errorJSON(w, http.StatusBadRequest, "name is required")
		return
	}
	if !domain.ValidPhone(req.Whatsapp) {
		errorJSON(w, http.StatusBadRequest, "whatsapp must be a valid phone number")
		return
	}

	contact, err := h.contacts.CreateEmergencyContact(r.Context(), domain.EmergencyContact{
		UserID:   req.UserID,
		Name:     strings.TrimSpace(req.Name),
		WhatsApp: req.Whatsapp,
	})
	if err != nil {
		h.logger.Error("Failed to create emergency contact",
			zap.Int64("user_id", req.UserID), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// GetByUser GET /api/emergency-contact/{userId}
// 没有联系人是正常状态（新用户还没填），404 不是异常。
func (h *ContactHandler) GetByUser(w http.ResponseWriter, r *http.Request, idStr string) {
	userID, ok := parseID(idStr)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}

	contact, err := h.contacts.GetEmergencyContactByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "Emergency contact not found")
			return
		}
		h.logger.Error("Failed to get emergency contact",
			zap.Int64("user_id", userID), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

type contactUpdateRequest struct {
	Name     *string `json:"name"`
	Whatsapp *string `json:"whatsapp"`
}

// Update PUT /api/emergency-contact/{id}（部分更新；未知字段拒绝）
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	var req contactUpdateRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errorJSON(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if req.Whatsapp != nil && !domain.ValidPhone(*req.Whatsapp) {
		errorJSON(w, http.StatusBadRequest, "whatsapp must be a valid phone number")
		return
	}

	contact, err := h.contacts.UpdateEmergencyContact(r.Context(), id, repository.ContactUpdate{
		Name:     req.Name,
		WhatsApp: req.Whatsapp,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "Emergency contact not found")
			return
		}
		h.logger.Error("Failed to update emergency contact",
			zap.Int64("contact_id", id), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, contact)
}
