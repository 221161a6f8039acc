package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
)

// AuthHandler 注册 / 登录
// 注册是唯一一次性建齐用户 + 默认报警配置（+ 可选紧急联系人）的入口，
// 保证新用户从第一天起就在 Reconciler 的扫描范围内。
type AuthHandler struct {
	users    repository.UserRepo
	contacts repository.ContactRepo
	configs  repository.AlarmConfigRepo
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthHandler(
	users repository.UserRepo,
	contacts repository.ContactRepo,
	configs repository.AlarmConfigRepo,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:    users,
		contacts: contacts,
		configs:  configs,
		logger:   logger,
		now:      time.Now,
	}
}

type registerContact struct {
	Name     string `json:"name"`
	Whatsapp string `json:"whatsapp"`
}

type registerRequest struct {
	Email            string           `json:"email"`
	Password         string           `json:"password"`
	FullName         string           `json:"fullName"`
	Phone            string           `json:"phone"`
	BirthDate        string           `json:"birthDate"`
	EmergencyContact *registerContact `json:"emergencyContact"`
}

// Register POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errorJSON(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "password is required")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		errorJSON(w, http.StatusBadRequest, "fullName is required")
		return
	}
	// 所有校验先过，再开始写入
	if req.EmergencyContact != nil {
		if strings.TrimSpace(req.EmergencyContact.Name) == "" {
			errorJSON(w, http.StatusBadRequest, "emergency contact name is required")
			return
		}
		if !domain.ValidPhone(req.EmergencyContact.Whatsapp) {
			errorJSON(w, http.StatusBadRequest, "emergency contact whatsapp must be a valid phone number")
			return
		}
	}

	// 邮箱唯一性大小写不敏感
	if _, err := h.users.GetUserByEmail(r.Context(), req.Email); err == nil {
		errorJSON(w, http.StatusBadRequest, "Email already registered")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("Failed to check email uniqueness", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), domain.User{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  strings.TrimSpace(req.FullName),
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		h.logger.Error("Failed to create user", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// 默认报警配置：08:00 / 12h / tone-1 / active，锚定到下一个 08:00
	next, err := domain.FirstAlarmAfter(h.now(), domain.DefaultAlarmTime, domain.DefaultRepeatInterval)
	if err != nil {
		h.logger.Error("Failed to compute default next alarm", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if _, err := h.configs.CreateAlarmConfig(r.Context(), domain.AlarmConfig{
		UserID:         user.ID,
		Time:           domain.DefaultAlarmTime,
		RepeatInterval: domain.DefaultRepeatInterval,
		Ringtone:       domain.DefaultRingtone,
		IsActive:       true,
		NextAlarm:      next,
	}); err != nil {
		h.logger.Error("Failed to create default alarm config",
			zap.Int64("user_id", user.ID), zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if req.EmergencyContact != nil {
		if _, err := h.contacts.CreateEmergencyContact(r.Context(), domain.EmergencyContact{
			UserID:   user.ID,
			Name:     strings.TrimSpace(req.EmergencyContact.Name),
			WhatsApp: req.EmergencyContact.Whatsapp,
		}); err != nil {
			h.logger.Error("Failed to create emergency contact",
				zap.Int64("user_id", user.ID), zap.Error(err))
			errorJSON(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	h.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.Time("next_alarm", next),
	)
	writeJSON(w, http.StatusCreated, user.Public())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBodyJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			errorJSON(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("Failed to look up user for login", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	// 凭证是不透明字符串，只做相等比较
	if user.Password != req.Password {
		errorJSON(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
