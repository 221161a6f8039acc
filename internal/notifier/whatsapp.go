package notifier

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// WhatsAppRequest WhatsApp 网关请求体
type WhatsAppRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	EventID string `json:"eventId"`
}

// WhatsAppResponse WhatsApp 网关响应
type WhatsAppResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WhatsAppNotifier 通过 HTTP 网关投递 WhatsApp 消息。
// 网关不可用时记录 wa.me 深链作为直达兜底通道（客户端可直接打开）。
type WhatsAppNotifier struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewWhatsAppNotifier 创建 WhatsApp 通知器
func NewWhatsAppNotifier(gatewayURL string, timeout time.Duration, logger *zap.Logger) *WhatsAppNotifier {
	client := resty.New().
		SetBaseURL(gatewayURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WhatsAppNotifier{
		httpClient: client,
		logger:     logger,
	}
}

// Notify 投递一条紧急消息
func (n *WhatsAppNotifier) Notify(ctx context.Context, event domain.EscalationEvent) error {
	request := WhatsAppRequest{
		Phone:   event.Contact.WhatsApp,
		Message: event.Message,
		EventID: event.EventID,
	}

	n.logger.Info("Sending emergency message",
		zap.String("event_id", event.EventID),
		zap.Int64("user_id", event.User.ID),
		zap.String("contact_name", event.Contact.Name),
	)

	var response WhatsAppResponse
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/messages")

	if err != nil {
		// 网关挂了也不能让升级悄悄丢失：把深链写进日志，客户端侧还有
		// 直接打开 WhatsApp 的兜底路径。
		n.logger.Error("WhatsApp gateway call failed",
			zap.String("event_id", event.EventID),
			zap.String("fallback_link", DeepLink(event.Contact.WhatsApp, event.Message)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call whatsapp gateway: %w", err)
	}

	if resp.StatusCode() >= 300 || !response.Success {
		n.logger.Error("WhatsApp gateway returned error",
			zap.String("event_id", event.EventID),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", response.Message),
			zap.String("fallback_link", DeepLink(event.Contact.WhatsApp, event.Message)),
		)
		return fmt.Errorf("whatsapp gateway error: status=%d msg=%s", resp.StatusCode(), response.Message)
	}

	n.logger.Info("Emergency message delivered",
		zap.String("event_id", event.EventID),
		zap.Int64("user_id", event.User.ID),
	)
	return nil
}

// DeepLink 构造 wa.me 直达链接（客户端离线兜底通道）
func DeepLink(phone, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(message))
}
