package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/logging"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/transport"
)

const (
	// MCPPath accepts one JSON-RPC message per POST body
	MCPPath     = "/mcp"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	maxBodySize = 10 * 1024 * 1024

	requestIDKey = "request_id"
)

// HTTPHandler returns a gin engine serving the MCP endpoint, a health check
// and the Prometheus metrics of the server.
func (s *Server) HTTPHandler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), s.requestID())

	r.POST(MCPPath, s.handleMCP)
	r.GET(HealthPath, s.handleHealth)
	r.GET(MetricsPath, gin.WrapH(s.metrics.Handler()))

	return r
}

// ListenAndServe serves HTTPHandler on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening", logging.String("addr", addr), logging.String("path", MCPPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return mcperrors.TransportError("http", "listen", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return mcperrors.TransportError("http", "shutdown", err)
	}
	return nil
}

// requestID reads or generates X-Request-ID and logs each request with it
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(transport.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(transport.RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))

		start := time.Now()
		c.Next()

		s.logger.Debug("HTTP request",
			logging.String("http_request_id", id),
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.name,
		"version": s.version,
	})
}

func (s *Server) handleMCP(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge,
			protocol.NewErrorResponse(nil, protocol.InvalidRequest, "Request body too large", nil))
		return
	}

	ctx := c.Request.Context()
	if s.tracer != nil {
		ctx = s.tracer.Extract(ctx, propagation.HeaderCarrier(c.Request.Header))
	}
	logger := s.logger.WithFields(logging.String("http_request_id", c.GetString(requestIDKey)))

	kind, err := protocol.Classify(body)
	if err != nil {
		logger.Debug("Malformed request body", logging.ErrorField(err))
		c.JSON(http.StatusBadRequest,
			protocol.NewErrorResponse(nil, protocol.ParseError, mcperrors.ParseError(err).Message(), nil))
		return
	}

	switch kind {
	case protocol.KindRequest:
		var req protocol.Request
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, protocol.NewErrorResponse(nil, protocol.InvalidRequest, "Invalid Request", nil))
			return
		}
		c.JSON(http.StatusOK, s.router.HandleRequest(ctx, &req))

	case protocol.KindNotification:
		var notif protocol.Notification
		if err := json.Unmarshal(body, &notif); err != nil {
			c.JSON(http.StatusBadRequest, protocol.NewErrorResponse(nil, protocol.InvalidRequest, "Invalid Request", nil))
			return
		}
		if err := s.router.HandleNotification(ctx, &notif); err != nil {
			logger.Debug("Notification not handled",
				logging.String("method", notif.Method),
				logging.ErrorField(err))
		}
		c.Status(http.StatusAccepted)

	default:
		c.JSON(http.StatusBadRequest, protocol.NewErrorResponse(nil, protocol.InvalidRequest, "Invalid Request", nil))
	}
}
