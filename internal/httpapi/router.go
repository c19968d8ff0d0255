package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux.
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

// RegisterRoutes wires all API routes to the handler.
func (r *Router) RegisterRoutes(h *Handler) {
	r.Handle("/api/ppg/process", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ProcessSignal(w, req)
	})

	r.Handle("/api/auth/verify", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Verify(w, req)
	})

	// enrollments/{userId}
	r.Handle("/api/enrollments/", func(w http.ResponseWriter, req *http.Request) {
		userID := strings.TrimPrefix(req.URL.Path, "/api/enrollments/")
		if userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.GetEnrollment(w, req, userID)
		case http.MethodPut:
			h.PutEnrollment(w, req, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// vitals/{userId}/latest
	r.Handle("/api/vitals/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/vitals/")
		userID, ok := strings.CutSuffix(rest, "/latest")
		if !ok || userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.LatestVitals(w, req, userID)
	})

	// sessions/{userId}/export
	r.Handle("/api/sessions/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/sessions/")
		userID, ok := strings.CutSuffix(rest, "/export")
		if !ok || userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.ExportSessions(w, req, userID)
	})

	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Health(w, req)
	})
}
