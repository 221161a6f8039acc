package httpapi

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
)

// AlarmConfigHandler 报警配置读写
// 客户端改的是"下一次"：nextAlarm 可以由客户端显式提交（重排、开关），
// 也可以在创建时由服务端从 time 锚定推算。
type AlarmConfigHandler struct {
	configs repository.AlarmConfigRepo
	logger  *zap.Logger
	now     func() time.Time
}

func NewAlarmConfigHandler(configs repository.AlarmConfigRepo, logger *zap.Logger) *AlarmConfigHandler {
	return &AlarmConfigHandler{configs: configs, logger: logger, now: time.Now}
}

type alarmConfigCreateRequest struct {
	UserID         int64      `json:"userId"`
	Time           string     `json:"time"`
	RepeatInterval int        `json:"repeatInterval"`
	Ringtone       string     `json:"ringtone"`
	IsActive       *bool      `json:"isActive"`
	NextAlarm      *time.Time `json:"nextAlarm"`
}

// Create POST /api/alarm-config（replace-on-create：同一用户只保留一条）
func (h *AlarmConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req alarmConfigCreateRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		errorJSON(w, http.StatusBadRequest, "userId is required")
		return
	}
	if !domain.ValidClock(req.Time) {
		errorJSON(w, http.StatusBadRequest, "time must be HH:MM in 24-hour format")
		return
	}
	if !domain.ValidRepeatInterval(req.RepeatInterval) {
		errorJSON(w, http.StatusBadRequest, "repeatInterval must be between 1 and 24 hours")
		return
	}
	if !domain.ValidRingtone(req.Ringtone) {
		errorJSON(w, http.StatusBadRequest, "invalid ringtone")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var next time.Time
	if req.NextAlarm != nil && !req.NextAlarm.IsZero() {
		next = *req.NextAlarm
	} else {
		computed, err := domain.FirstAlarmAfter(h.now(), req.Time, req.RepeatInterval)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "time must be HH:MM in 24-hour format")
			return
		}
		next = computed
	}

	config, err := h.configs.CreateAlarmConfig(r.Context(), domain.AlarmConfig{
		UserID:         req.UserID,
		Time:           req.Time,
		RepeatInterval: req.RepeatInterval,
		Ringtone:       req.Ringtone,
		IsActive:       active,
		NextAlarm:      next,
	})
	if err != nil {
		h.logger.Error("Failed to create alarm config",
			zap.Int64("user_id", req.UserID), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, config)
}

// GetByUser GET /api/alarm-config/{userId}
func (h *AlarmConfigHandler) GetByUser(w http.ResponseWriter, r *http.Request, idStr string) {
	userID, ok := parseID(idStr)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}

	config, err := h.configs.GetAlarmConfigByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "Alarm config not found")
			return
		}
		h.logger.Error("Failed to get alarm config",
			zap.Int64("user_id", userID), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, config)
}

type alarmConfigUpdateRequest struct {
	Time           *string    `json:"time"`
	RepeatInterval *int       `json:"repeatInterval"`
	Ringtone       *string    `json:"ringtone"`
	IsActive       *bool      `json:"isActive"`
	NextAlarm      *time.Time `json:"nextAlarm"`
}

// Update PUT /api/alarm-config/{id}（部分更新；未知字段拒绝）
func (h *AlarmConfigHandler) Update(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid alarm config id")
		return
	}

	var req alarmConfigUpdateRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Time != nil && !domain.ValidClock(*req.Time) {
		errorJSON(w, http.StatusBadRequest, "time must be HH:MM in 24-hour format")
		return
	}
	if req.RepeatInterval != nil && !domain.ValidRepeatInterval(*req.RepeatInterval) {
		errorJSON(w, http.StatusBadRequest, "repeatInterval must be between 1 and 24 hours")
		return
	}
	if req.Ringtone != nil && !domain.ValidRingtone(*req.Ringtone) {
		errorJSON(w, http.StatusBadRequest, "invalid ringtone")
		return
	}

	config, err := h.configs.UpdateAlarmConfig(r.Context(), id, repository.AlarmConfigUpdate{
		Time:           req.Time,
		RepeatInterval: req.RepeatInterval,
		Ringtone:       req.Ringtone,
		IsActive:       req.IsActive,
		NextAlarm:      req.NextAlarm,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "Alarm config not found")
			return
		}
		h.logger.Error("Failed to update alarm config",
			zap.Int64("config_id", id), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, config)
}
