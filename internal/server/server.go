package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatai-router/internal/config"
	"chatai-router/internal/router"
	"chatai-router/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	router  *router.Router
	logger  *slog.Logger
	app     *echo.Echo
	address string
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and lifecycle logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rt *router.Router, opts ...Option) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:     cfg,
		router:  rt,
		logger:  slog.Default(),
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}
	for _, opt := range opts {
		opt(srv)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			srv.logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv.app = e
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port, s.router.AvailableModels())
	s.logger.Info("starting server", "addr", s.address)

	// No write timeout: streamed responses stay open for the whole generation.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/models", s.handleListModels)
	s.app.GET("/v1/models/:id", s.handleGetModel)
	s.app.POST("/v1/models/:id/validate-key", s.handleValidateKey)
	s.app.POST("/v1/messages", s.handleMessages)
	s.app.POST("/v1/cost", s.handleCost)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, translator.ModelList{
		Object: "list",
		Data:   s.router.AvailableModels(),
	})
}

func (s *Server) handleGetModel(c echo.Context) error {
	info, err := s.router.Describe(c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromModelInfo(info))
}

func (s *Server) handleValidateKey(c echo.Context) error {
	var req translator.KeyCheckRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	valid, err := s.router.ValidateCredential(id, req.APIKey)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.KeyCheckResponse{Model: id, Valid: valid})
}

func (s *Server) handleMessages(c echo.Context) error {
	var req translator.MessageRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if req.Params.Stream {
		return s.streamMessage(c, req)
	}

	ctx := c.Request().Context()
	resp, err := s.router.SendMessage(ctx, req.Model, req.Params)
	if err != nil {
		return toHTTPError(err)
	}
	if resp == nil {
		return requestError{
			Status:  http.StatusBadGateway,
			Message: "upstream provider returned an empty response",
			Type:    "upstream_error",
		}
	}

	cost, err := s.router.CalculateCost(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, translator.FromResponse(resp, cost))
}

func (s *Server) streamMessage(c echo.Context, req translator.MessageRequest) error {
	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		s.logger.Error("http writer does not support flushing")
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
			Type:    "server_error",
		}
	}

	stream, err := s.router.SendStreamingMessage(c.Request().Context(), req.Model, req.Params)
	if err != nil {
		return toHTTPError(err)
	}
	defer stream.Close()

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	for chunk, err := range stream.Iter() {
		if err != nil {
			s.logger.Warn("stream terminated with error", "model", req.Model, "err", err)
			httpErr := toHTTPError(err).(requestError)
			if werr := writeSSEEvent(writer, "error", httpErr.body()); werr != nil {
				return nil
			}
			flusher.Flush()
			return nil
		}

		if err := writeSSEEvent(writer, "chunk", translator.FromChunk(chunk)); err != nil {
			s.logger.Error("failed to write SSE event", "model", req.Model, "err", err)
			return nil
		}
		flusher.Flush()
	}
	return nil
}

func (s *Server) handleCost(c echo.Context) error {
	var req translator.CostRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	}

	cost, err := s.router.CalculateCost(req.Model, req.InputTokens, req.OutputTokens)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"model": req.Model,
		"cost":  cost,
	})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

func writeSSEEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write SSE event name: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	return nil
}

func printStartupBanner(port int, modelIDs []string) {
	host := "127.0.0.1"
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Println()
	title.Println("chatai-router ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /v1/models")
	fmt.Println("  GET  /v1/models/:id")
	fmt.Println("  POST /v1/models/:id/validate-key")
	fmt.Println("  POST /v1/messages")
	fmt.Println("  POST /v1/cost")
	fmt.Println("Models:")
	for _, id := range modelIDs {
		fmt.Printf("  %s\n", id)
	}
	dim.Printf("Example:\n  curl http://%s:%d/v1/messages -H 'Content-Type: application/json' -d '{\"model\":\"gpt-4\",\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, port)
}
