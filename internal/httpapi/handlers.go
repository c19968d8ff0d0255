package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/auth"
	"wisefido-ppg-auth/internal/models"
	"wisefido-ppg-auth/internal/ppg"
	"wisefido-ppg-auth/internal/report"
	"wisefido-ppg-auth/internal/repository"
)

// HealthCheck probes one backing dependency for the health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the PPG authentication API.
type Handler struct {
	auth        *auth.Authenticator
	enrollments auth.EnrollmentStore
	logger      *zap.Logger
	checks      []HealthCheck
}

func NewHandler(a *auth.Authenticator, enrollments auth.EnrollmentStore, logger *zap.Logger, checks ...HealthCheck) *Handler {
	return &Handler{
		auth:        a,
		enrollments: enrollments,
		logger:      logger,
		checks:      checks,
	}
}

type processRequest struct {
	UserID    string    `json:"userId,omitempty"`
	Signal    []float64 `json:"signal"`
	FrameRate float64   `json:"frameRate"`
}

type processResponse struct {
	ppg.Result
	Source string `json:"source"`
}

// ProcessSignal runs vitals extraction on a raw capture. Signal problems
// come back as codes in a 200 response; only a malformed request is a 400.
func (h *Handler) ProcessSignal(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, source := h.auth.ExtractVitals(r.Context(), req.UserID, req.Signal, req.FrameRate)
	writeJSON(w, http.StatusOK, processResponse{Result: result, Source: source})
}

type verifyRequest struct {
	UserID    string                  `json:"userId"`
	Signal    []float64               `json:"signal"`
	FrameRate float64                 `json:"frameRate"`
	Biometric *models.BiometricResult `json:"biometric,omitempty"`
}

// Verify runs one multimodal verification attempt.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	result, err := h.auth.Verify(r.Context(), auth.VerifyInput{
		UserID:    req.UserID,
		Samples:   req.Signal,
		FrameRate: req.FrameRate,
		Biometric: req.Biometric,
	})
	if err != nil {
		h.logger.Error("Verification failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type enrollRequest struct {
	BaselineBPM float64   `json:"baselineBpm,omitempty"`
	Signal      []float64 `json:"signal,omitempty"`
	FrameRate   float64   `json:"frameRate,omitempty"`
}

// PutEnrollment stores a baseline, either given directly or derived from a
// fresh capture.
func (h *Handler) PutEnrollment(w http.ResponseWriter, r *http.Request, userID string) {
	var req enrollRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.BaselineBPM > 0:
		if err := h.enrollments.Upsert(r.Context(), userID, req.BaselineBPM); err != nil {
			h.logger.Error("Enrollment upsert failed", zap.String("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store enrollment")
			return
		}
		e, err := h.enrollments.Get(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load enrollment")
			return
		}
		writeJSON(w, http.StatusOK, e)
	case len(req.Signal) > 0:
		e, err := h.auth.Enroll(r.Context(), userID, req.Signal, req.FrameRate)
		if err != nil {
			if errors.Is(err, auth.ErrEnrollmentQuality) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			h.logger.Error("Enrollment failed", zap.String("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store enrollment")
			return
		}
		writeJSON(w, http.StatusOK, e)
	default:
		writeError(w, http.StatusBadRequest, "either baselineBpm or signal is required")
	}
}

// GetEnrollment returns a user's stored baseline.
func (h *Handler) GetEnrollment(w http.ResponseWriter, r *http.Request, userID string) {
	e, err := h.enrollments.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotEnrolled) {
			writeError(w, http.StatusNotFound, "user not enrolled")
			return
		}
		h.logger.Error("Enrollment lookup failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load enrollment")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// LatestVitals returns the most recent cached vitals snapshot.
func (h *Handler) LatestVitals(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := h.auth.LatestVitals(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrNoVitals) {
			writeError(w, http.StatusNotFound, "no vitals available")
			return
		}
		h.logger.Error("Vitals lookup failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load vitals")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ExportSessions streams the user's verification history as an Excel file.
func (h *Handler) ExportSessions(w http.ResponseWriter, r *http.Request, userID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	sessions, err := h.auth.Sessions(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Session history lookup failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}

	data, err := report.GenerateSessionExport(sessions)
	if err != nil {
		h.logger.Error("Session export failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sessions-%s.xlsx"`, userID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type healthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
	Metrics    auth.Metrics    `json:"metrics"`
	Uptime     string          `json:"uptime"`
}

// Health reports service liveness with dependency states and counters.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]bool{
		"ml_service": h.auth.MLHealthy(ctx),
	}
	status := "ok"
	for _, c := range h.checks {
		healthy := c.Check(ctx) == nil
		components[c.Name] = healthy
		if !healthy {
			status = "degraded"
		}
	}

	snap := h.auth.Metrics().GetSnapshot()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     status,
		Components: components,
		Metrics:    snap,
		Uptime:     time.Since(snap.StartTime).String(),
	})
}
