package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
)

const (
	// DefaultUserAgent identifies relay traffic to Canvas.
	DefaultUserAgent = "Canvas-Assignment-Manager/1.0"

	maxRelayBody = 32 << 20
)

// passthroughHeaders are copied from the upstream reply on success.
var passthroughHeaders = []string{"Content-Type", "Link"}

// RelayConfig tunes the relay forwarder.
type RelayConfig struct {
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
}

// RelayService forwards single requests to Canvas with the caller's credentials.
type RelayService struct {
	client    *http.Client
	userAgent string
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRelayService constructs a RelayService.
func NewRelayService(cfg RelayConfig, metrics *MetricsService, logger *zap.Logger) *RelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RelayService{client: client, userAgent: cfg.UserAgent, metrics: metrics, logger: logger}
}

// UpstreamURL builds <base>/api/v1<path>[?query].
func UpstreamURL(baseURL, path, rawQuery string) string {
	full := strings.TrimRight(baseURL, "/") + "/api/v1" + path
	if rawQuery != "" {
		full += "?" + rawQuery
	}
	return full
}

// Forward performs one upstream call. A non-2xx reply returns the response together with an
// *errors.UpstreamError; a network failure returns an *errors.TransportError.
func (s *RelayService) Forward(ctx context.Context, req models.RelayRequest) (models.RelayResponse, error) {
	target := UpstreamURL(req.BaseURL, req.Path, req.RawQuery)

	var body io.Reader
	if req.Method != http.MethodGet && req.Method != http.MethodHead && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	upstreamReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return models.RelayResponse{}, &appErrors.TransportError{Op: req.Method, Err: err}
	}
	upstreamReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	upstreamReq.Header.Set("Content-Type", "application/json")
	upstreamReq.Header.Set("User-Agent", s.userAgent)

	s.logger.Info("proxying request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("canvas_url", req.BaseURL),
	)

	start := time.Now()
	resp, err := s.client.Do(upstreamReq)
	if err != nil {
		s.metrics.ObserveUpstreamRequest("relay", 0, time.Since(start))
		s.logger.Error("proxy error", zap.String("path", req.Path), zap.Error(err))
		return models.RelayResponse{}, &appErrors.TransportError{Op: req.Method, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	s.metrics.ObserveUpstreamRequest("relay", resp.StatusCode, time.Since(start))
	if err != nil {
		return models.RelayResponse{}, &appErrors.TransportError{Op: "read " + req.Method, Err: err}
	}

	out := models.RelayResponse{Status: resp.StatusCode, Header: http.Header{}, Body: payload}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstream := appErrors.NewUpstreamError(resp.StatusCode, statusTextOf(resp), string(payload))
		s.logger.Warn("canvas api error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", req.Path),
			zap.String("body", truncate(string(payload), 512)),
		)
		return out, upstream
	}
	for _, h := range passthroughHeaders {
		if v := resp.Header.Values(h); len(v) > 0 {
			out.Header[h] = append([]string(nil), v...)
		}
	}
	s.logger.Info("proxied request", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(payload)))
	return out, nil
}

func statusTextOf(resp *http.Response) string {
	prefix := fmt.Sprintf("%d ", resp.StatusCode)
	if text := strings.TrimPrefix(resp.Status, prefix); text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
