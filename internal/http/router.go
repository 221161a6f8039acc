package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// pathID 提取前缀后面的单段路径参数；多段或空都算不存在
func pathID(path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// RegisterRoutes 注册全部 API 路由
func (r *Router) RegisterRoutes(
	auth *AuthHandler,
	users *UserHandler,
	configs *AlarmConfigHandler,
	contacts *ContactHandler,
	emergency *EmergencyHandler,
) {
	r.Handle("/api/register", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		auth.Register(w, req)
	})

	r.Handle("/api/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		auth.Login(w, req)
	})

	// user/{id}
	r.Handle("/api/user/", func(w http.ResponseWriter, req *http.Request) {
		id, ok := pathID(req.URL.Path, "/api/user/")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			users.Get(w, req, id)
		case http.MethodPut:
			users.Update(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// alarm-config: POST 创建；GET/{userId} 查询；PUT/{id} 更新
	r.Handle("/api/alarm-config", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		configs.Create(w, req)
	})
	r.Handle("/api/alarm-config/", func(w http.ResponseWriter, req *http.Request) {
		id, ok := pathID(req.URL.Path, "/api/alarm-config/")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			configs.GetByUser(w, req, id)
		case http.MethodPut:
			configs.Update(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// emergency-contact: 同样的三段式
	r.Handle("/api/emergency-contact", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		contacts.Create(w, req)
	})
	r.Handle("/api/emergency-contact/", func(w http.ResponseWriter, req *http.Request) {
		id, ok := pathID(req.URL.Path, "/api/emergency-contact/")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			contacts.GetByUser(w, req, id)
		case http.MethodPut:
			contacts.Update(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/api/send-emergency", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		emergency.Send(w, req)
	})

	// 健康检查（部署探针用）
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
