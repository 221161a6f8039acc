package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

func testEvent() domain.EscalationEvent {
	return domain.EscalationEvent{
		EventID:    "evt-1",
		User:       domain.User{ID: 1, FullName: "Maria Silva", Email: "maria@example.com"},
		Contact:    domain.EmergencyContact{ID: 2, UserID: 1, Name: "Joao", WhatsApp: "+55 11 99999-8888"},
		Occurrence: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		Message:    domain.EmergencyMessage("Maria Silva"),
	}
}

func TestWhatsAppNotifier_Success(t *testing.T) {
	var received WhatsAppRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(WhatsAppResponse{Success: true, Message: "queued"})
	}))
	defer server.Close()

	n := NewWhatsAppNotifier(server.URL, 2*time.Second, zap.NewNop())
	err := n.Notify(context.Background(), testEvent())

	require.NoError(t, err)
	assert.Equal(t, "+55 11 99999-8888", received.Phone)
	assert.Equal(t, "evt-1", received.EventID)
	assert.Contains(t, received.Message, "Maria Silva")
}

func TestWhatsAppNotifier_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(WhatsAppResponse{Success: false, Message: "provider down"})
	}))
	defer server.Close()

	n := NewWhatsAppNotifier(server.URL, 2*time.Second, zap.NewNop())
	err := n.Notify(context.Background(), testEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "whatsapp gateway")
}

func TestWhatsAppNotifier_GatewayUnreachable(t *testing.T) {
	// 端口没人听：连接失败也必须返回错误而不是吞掉
	n := NewWhatsAppNotifier("http://127.0.0.1:1", 500*time.Millisecond, zap.NewNop())
	err := n.Notify(context.Background(), testEvent())
	assert.Error(t, err)
}

func TestDeepLink(t *testing.T) {
	link := DeepLink("+55 (11) 99999-8888", "hello world")

	assert.Equal(t, "https://wa.me/5511999998888?text=hello+world", link)
}
