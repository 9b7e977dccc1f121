// Package server exposes the signing engine as a small HTTP presign service.
package server

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forestrie/go-blobsign/signer"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// maxBodyBytes bounds the JSON body of a sign request.
const maxBodyBytes = 64 << 10

// Signer is the engine surface the service needs.
type Signer interface {
	SignContext(ctx context.Context, provider signer.ProviderID, op signer.Operation, creds signer.Credentials, opts ...signer.SignOption) (*signer.SignedRequest, error)
	Providers() []signer.ProviderID
}

// CredentialSource resolves the account configured for a provider.
type CredentialSource interface {
	Credentials(provider signer.ProviderID) (signer.Credentials, bool)
}

// SignRequest is the body of POST /v1/sign.
type SignRequest struct {
	Provider      string            `json:"provider" binding:"required"`
	Operation     string            `json:"operation" binding:"required"`
	Resource      string            `json:"resource" binding:"required"`
	ExpiresIn     *int64            `json:"expires_in,omitempty"`
	ContentLength *int64            `json:"content_length,omitempty"`
	ContentType   string            `json:"content_type,omitempty"`
	ContentMD5    string            `json:"content_md5,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// HeaderJSON is one response header.
type HeaderJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SignResponse describes the signed request.
type SignResponse struct {
	RequestID string       `json:"request_id"`
	Method    string       `json:"method"`
	URL       string       `json:"url"`
	Headers   []HeaderJSON `json:"headers"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

type Server struct {
	signer  Signer
	creds   CredentialSource
	metrics http.Handler
	logger  *zap.Logger
	engine  *gin.Engine
}

// New builds the router. metrics may be nil to disable GET /metrics.
func New(s Signer, creds CredentialSource, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		signer:  s,
		creds:   creds,
		metrics: metrics,
		logger:  logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), srv.requestID(), srv.accessLog())
	engine.GET("/healthz", srv.handleHealth)
	engine.GET("/v1/providers", srv.handleProviders)
	engine.POST("/v1/sign", srv.handleSign)
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics))
	}
	srv.engine = engine
	return srv
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenConfig holds the listener settings of Run.
type ListenConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg ListenConfig) error {
	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("presign service listening", zap.String("address", cfg.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down presign service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleProviders(c *gin.Context) {
	providers := s.signer.Providers()
	out := make([]string, len(providers))
	for i, p := range providers {
		out[i] = string(p)
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

func (s *Server) handleSign(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	provider := signer.ProviderID(req.Provider)
	op, err := req.operation()
	if err != nil {
		s.respondSignError(c, err)
		return
	}

	creds, ok := s.creds.Credentials(provider)
	if !ok {
		// Unknown providers report as such; known ones lack an account.
		if !s.hasProvider(provider) {
			s.respondSignError(c, signer.ErrUnsupportedProvider)
			return
		}
		s.respondError(c, http.StatusNotFound, "no_account", errors.New("no account configured for provider "+req.Provider))
		return
	}

	var opts []signer.SignOption
	if req.ExpiresIn != nil {
		opts = append(opts, signer.WithExpiresIn(*req.ExpiresIn))
	}

	signed, err := s.signer.SignContext(c.Request.Context(), provider, op, creds, opts...)
	if err != nil {
		s.respondSignError(c, err)
		return
	}

	headers := make([]HeaderJSON, len(signed.Headers))
	for i, h := range signed.Headers {
		headers[i] = HeaderJSON{Name: h.Name, Value: h.Value}
	}
	c.JSON(http.StatusOK, SignResponse{
		RequestID: c.GetString(requestIDKey),
		Method:    signed.Method,
		URL:       signed.URL,
		Headers:   headers,
		ExpiresAt: signed.ExpiresAt.Time,
	})
}

func (s *Server) hasProvider(id signer.ProviderID) bool {
	for _, p := range s.signer.Providers() {
		if p == id {
			return true
		}
	}
	return false
}

// operation converts the request body into a signer.Operation.
func (r SignRequest) operation() (signer.Operation, error) {
	kind, err := signer.ParseOperationKind(r.Operation)
	if err != nil {
		return signer.Operation{}, err
	}

	var opts []signer.OperationOption
	if r.ContentLength != nil {
		opts = append(opts, signer.WithContentLength(*r.ContentLength))
	}
	if r.ContentType != "" {
		opts = append(opts, signer.WithContentType(r.ContentType))
	}
	if r.ContentMD5 != "" {
		sum, err := decodeMD5(r.ContentMD5)
		if err != nil {
			return signer.Operation{}, err
		}
		opts = append(opts, signer.WithContentMD5(sum))
	}
	for _, name := range sortedKeys(r.Headers) {
		opts = append(opts, signer.WithHeader(name, r.Headers[name]))
	}
	return signer.NewOperation(kind, r.Resource, opts...)
}

// errInvalidRequest marks body fields the engine never sees.
var errInvalidRequest = errors.New("invalid request")

func decodeMD5(s string) ([]byte, error) {
	sum, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(sum) != md5.Size {
		return nil, fmt.Errorf("%w: content_md5 must be a base64 encoded %d byte digest", errInvalidRequest, md5.Size)
	}
	return sum, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) respondSignError(c *gin.Context, err error) {
	if errors.Is(err, errInvalidRequest) {
		s.respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	kind := signer.ErrorKind(err)
	status := http.StatusBadRequest
	switch kind {
	case "unsupported_provider":
		status = http.StatusNotFound
	case "internal":
		status = http.StatusInternalServerError
	}
	s.respondError(c, status, kind, err)
}

func (s *Server) respondError(c *gin.Context, status int, kind string, err error) {
	s.logger.Warn("sign request rejected",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Int("status_code", status),
		zap.String("error_kind", kind),
		zap.Error(err),
	)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, ErrorResponse{
		RequestID: c.GetString(requestIDKey),
		Error:     kind,
		Message:   message,
	})
}
