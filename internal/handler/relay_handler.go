package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	"github.com/noah-isme/canvas-assignment-manager/pkg/canvas"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
)

const (
	missingCredentialsMessage = "Missing Canvas URL or API key in headers"
	proxyErrorMessage         = "Proxy server error"
	maxInboundBody            = 10 << 20
)

// HealthPayload is served by the relay liveness endpoints.
var HealthPayload = models.HealthStatus{Status: "OK", Message: "Canvas API Proxy Server is running"}

type relayService interface {
	Forward(ctx context.Context, req models.RelayRequest) (models.RelayResponse, error)
}

// RelayHandler forwards /api/canvas/* calls to the Canvas instance named in the request headers.
type RelayHandler struct {
	service relayService
	logger  *zap.Logger
}

// NewRelayHandler builds a RelayHandler.
func NewRelayHandler(service relayService, logger *zap.Logger) *RelayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayHandler{service: service, logger: logger}
}

// Health godoc
// @Summary Relay liveness
// @Tags Relay
// @Produce json
// @Success 200 {object} models.HealthStatus
// @Router /health [get]
func (h *RelayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthPayload)
}

// Proxy godoc
// @Summary Forward a request to Canvas
// @Description Forwards to <X-Canvas-Url>/api/v1/<path> with the X-Api-Key as a bearer token.
// @Tags Relay
// @Produce json
// @Param X-Canvas-Url header string true "Canvas base URL"
// @Param X-Api-Key header string true "Canvas access token"
// @Param path path string true "Canvas API path"
// @Success 200 {object} object
// @Failure 400 {object} models.RelayErrorBody
// @Failure 500 {object} models.RelayErrorBody
// @Router /api/canvas/{path} [get]
func (h *RelayHandler) Proxy(c *gin.Context) {
	path := c.Param("path")
	if path == "" {
		path = "/"
	}
	if path == "/health" && c.Request.Method == http.MethodGet {
		h.Health(c)
		return
	}

	baseURL := strings.TrimSpace(c.GetHeader(canvas.HeaderCanvasURL))
	apiKey := strings.TrimSpace(c.GetHeader(canvas.HeaderAPIKey))

	h.logger.Info("received proxy request",
		zap.String("method", c.Request.Method),
		zap.String("path", path),
		zap.String("canvas_url", baseURL),
		zap.String("api_key", presence(apiKey)),
	)

	if baseURL == "" || apiKey == "" {
		c.JSON(http.StatusBadRequest, models.RelayErrorBody{Error: missingCredentialsMessage})
		return
	}

	var body []byte
	if c.Request.Body != nil && c.Request.Method != http.MethodGet {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInboundBody))
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.RelayErrorBody{Error: proxyErrorMessage, Details: err.Error()})
			return
		}
		body = raw
	}

	resp, err := h.service.Forward(c.Request.Context(), models.RelayRequest{
		Method:   c.Request.Method,
		Path:     path,
		RawQuery: c.Request.URL.RawQuery,
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Body:     body,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	for name, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(resp.Status, contentType, resp.Body)
}

func (h *RelayHandler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	var upstream *appErrors.UpstreamError
	if errors.As(err, &upstream) {
		c.JSON(upstream.Status, models.RelayErrorBody{Error: upstream.Message(), Details: upstream.Body})
		return
	}
	details := err.Error()
	var transport *appErrors.TransportError
	if errors.As(err, &transport) && transport.Err != nil {
		details = transport.Err.Error()
	}
	c.JSON(http.StatusInternalServerError, models.RelayErrorBody{Error: proxyErrorMessage, Details: details})
}

func presence(value string) string {
	if value == "" {
		return "MISSING"
	}
	return "PROVIDED"
}
