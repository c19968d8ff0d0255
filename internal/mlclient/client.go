// Package mlclient talks to the remote ML inference service and reports
// every failure as an explicit fallback outcome instead of an error. The
// caller always gets an answer it can act on; the deterministic pipeline
// covers whatever the model could not.
package mlclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/config"
)

// FallbackReason says why an ML result was not used.
type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackDisabled      FallbackReason = "disabled"
	FallbackUnavailable   FallbackReason = "unavailable"
	FallbackTimeout       FallbackReason = "timeout"
	FallbackAuthRejected  FallbackReason = "auth_rejected"
	FallbackLowConfidence FallbackReason = "low_confidence"
	FallbackMalformed     FallbackReason = "malformed"
)

// AnalyzeRequest is the wire request to the inference service.
type AnalyzeRequest struct {
	Signal    []float64 `json:"signal"`
	FrameRate float64   `json:"frameRate"`
}

// AnalyzeResponse is the wire response from the inference service.
type AnalyzeResponse struct {
	Success              bool     `json:"success"`
	HeartRate            *int     `json:"heartRate,omitempty"`
	HeartRateVariability *float64 `json:"heartRateVariability,omitempty"`
	RespiratoryRate      *int     `json:"respiratoryRate,omitempty"`
	SignalQuality        float64  `json:"signalQuality"`
	Confidence           float64  `json:"confidence"`
	Warnings             []string `json:"warnings,omitempty"`
	Error                string   `json:"error,omitempty"`
}

// Outcome is the result of one Analyze attempt. Used=false means the caller
// must fall back; Result is still populated for low-confidence fallbacks so
// the caller may keep it as an estimate.
type Outcome struct {
	Used   bool
	Reason FallbackReason
	Result *AnalyzeResponse
}

// Client is the resty-backed inference client.
type Client struct {
	httpClient    *resty.Client
	enabled       bool
	minConfidence float64
	logger        *zap.Logger
}

// NewClient builds a client from ML service settings.
func NewClient(cfg *config.MLConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:    httpClient,
		enabled:       cfg.Enabled,
		minConfidence: cfg.MinConfidence,
		logger:        logger,
	}
}

// Analyze sends the raw signal to the inference service. It never returns a
// Go error; every failure mode is an Outcome the caller can branch on.
func (c *Client) Analyze(ctx context.Context, signal []float64, frameRate float64) Outcome {
	if !c.enabled {
		return Outcome{Reason: FallbackDisabled}
	}

	request := AnalyzeRequest{
		Signal:    signal,
		FrameRate: frameRate,
	}

	var response AnalyzeResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/api/ppg/analyze")

	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("ML service timed out", zap.Error(err))
			return Outcome{Reason: FallbackTimeout}
		}
		c.logger.Warn("ML service unreachable", zap.Error(err))
		return Outcome{Reason: FallbackUnavailable}
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		// expected when the API key rotates; fall back without noise
		c.logger.Debug("ML service rejected credentials",
			zap.Int("status_code", resp.StatusCode()),
		)
		return Outcome{Reason: FallbackAuthRejected}
	case http.StatusOK:
	default:
		c.logger.Warn("ML service returned error status",
			zap.Int("status_code", resp.StatusCode()),
		)
		return Outcome{Reason: FallbackUnavailable}
	}

	if !response.Success {
		c.logger.Warn("ML service reported analysis failure",
			zap.String("error", response.Error),
		)
		return Outcome{Reason: FallbackMalformed}
	}
	if response.HeartRate == nil {
		c.logger.Warn("ML service response missing heart rate")
		return Outcome{Reason: FallbackMalformed}
	}

	if response.Confidence < c.minConfidence {
		c.logger.Info("ML confidence below threshold, keeping as estimate only",
			zap.Float64("confidence", response.Confidence),
			zap.Float64("min_confidence", c.minConfidence),
		)
		return Outcome{Reason: FallbackLowConfidence, Result: &response}
	}

	return Outcome{Used: true, Result: &response}
}

// Health probes the inference service liveness endpoint.
func (c *Client) Health(ctx context.Context) bool {
	if !c.enabled {
		return false
	}
	resp, err := c.httpClient.R().SetContext(ctx).Get("/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
