package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/service"
)

// EmergencyHandler 手动触发紧急消息（不经过报警状态机，也不动 nextAlarm）
type EmergencyHandler struct {
	escalator *service.Escalator
	logger    *zap.Logger
}

func NewEmergencyHandler(escalator *service.Escalator, logger *zap.Logger) *EmergencyHandler {
	return &EmergencyHandler{escalator: escalator, logger: logger}
}

type sendEmergencyRequest struct {
	UserID int64 `json:"userId"`
}

type sendEmergencyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Send POST /api/send-emergency
func (h *EmergencyHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendEmergencyRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		errorJSON(w, http.StatusBadRequest, "userId is required")
		return
	}

	event, err := h.escalator.SendEmergency(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContactNotFound):
			errorJSON(w, http.StatusNotFound, "Emergency contact not found")
		case errors.Is(err, service.ErrUserNotFound):
			errorJSON(w, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrDeliveryFailed):
			// 投递确实失败了就不能假装成功
			message := "Failed to deliver emergency message"
			if event != nil {
				message = fmt.Sprintf("Failed to deliver emergency message to %s", event.Contact.Name)
			}
			writeJSON(w, http.StatusBadGateway, sendEmergencyResponse{Success: false, Message: message})
		default:
			h.logger.Error("Failed to send emergency message",
				zap.Int64("user_id", req.UserID), zap.Error(err))
			errorJSON(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, sendEmergencyResponse{
		Success: true,
		Message: fmt.Sprintf("Emergency message sent to %s at %s", event.Contact.Name, event.Contact.WhatsApp),
	})
}
