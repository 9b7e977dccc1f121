package signer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/forestrie/go-blobsign/signer"

// ProviderID names a registered signing protocol.
type ProviderID string

// Observer is notified after every signing call.
type Observer interface {
	ObserveSign(provider ProviderID, kind OperationKind, elapsed time.Duration, err error)
}

// Registry dispatches signing calls to the strategy registered for a
// provider. It is safe for concurrent use; strategies must not hold
// per-call mutable state.
type Registry struct {
	mu         sync.RWMutex
	strategies map[ProviderID]Strategy

	clock    Clock
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the observer notified after each call.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithTracer sets the tracer used by SignContext.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// NewRegistry returns an empty Registry reading time from clock.
func NewRegistry(clock Clock, opts ...Option) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	r := &Registry{
		strategies: make(map[ProviderID]Strategy),
		clock:      clock,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds the strategy for id. A provider can be registered once.
func (r *Registry) Register(id ProviderID, s Strategy) error {
	if id == "" {
		return fmt.Errorf("provider id is required")
	}
	if err := s.validate(); err != nil {
		return fmt.Errorf("provider %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[id]; ok {
		return fmt.Errorf("provider %s is already registered", id)
	}
	r.strategies[id] = s
	return nil
}

// Providers returns the registered provider ids, sorted.
func (r *Registry) Providers() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ProviderID, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SignOption tunes a single signing call.
type SignOption func(*signOptions)

type signOptions struct {
	expiresIn *int64
}

// WithExpiresIn overrides the provider's default validity window.
// seconds must be positive.
func WithExpiresIn(seconds int64) SignOption {
	return func(o *signOptions) {
		o.expiresIn = &seconds
	}
}

// Sign produces a signed request for op on provider using creds.
func (r *Registry) Sign(provider ProviderID, op Operation, creds Credentials, opts ...SignOption) (*SignedRequest, error) {
	return r.SignContext(context.Background(), provider, op, creds, opts...)
}

// SignContext is Sign with a context for tracing. The context is not
// used for cancellation; signing never blocks.
func (r *Registry) SignContext(ctx context.Context, provider ProviderID, op Operation, creds Credentials, opts ...SignOption) (*SignedRequest, error) {
	_, span := r.tracer.Start(ctx, "signer.Sign", trace.WithAttributes(
		attribute.String("signer.provider", string(provider)),
		attribute.String("signer.operation", op.Kind.String()),
	))
	defer span.End()

	start := time.Now()
	req, err := r.sign(provider, op, creds, opts)
	elapsed := time.Since(start)

	if r.observer != nil {
		r.observer.ObserveSign(provider, op.Kind, elapsed, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		r.logger.Debug("signing failed",
			zap.String("provider", string(provider)),
			zap.Stringer("operation", op.Kind),
			zap.String("error_kind", ErrorKind(err)),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Debug("signed request",
		zap.String("provider", string(provider)),
		zap.Stringer("operation", op.Kind),
		zap.String("account", creds.Account),
		zap.Time("expires_at", req.ExpiresAt.Time),
		zap.Duration("elapsed", elapsed),
	)
	return req, nil
}

func (r *Registry) sign(provider ProviderID, op Operation, creds Credentials, opts []SignOption) (*SignedRequest, error) {
	r.mu.RLock()
	s, ok := r.strategies[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	var o signOptions
	for _, opt := range opts {
		opt(&o)
	}

	if op.Kind.Method() == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, op.Kind)
	}
	permission, err := s.Permissions.Resolve(op.Kind)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", provider, err)
	}
	if creds.Account == "" {
		return nil, fmt.Errorf("%w: account identifier is required", ErrInvalidKey)
	}
	key, err := s.DecodeKey(creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", provider, err)
	}

	window, err := s.Expiry.Resolve(r.clock.Now(), o.expiresIn)
	if err != nil {
		return nil, err
	}

	in := &SigningInput{
		Provider:   provider,
		Operation:  op,
		Window:     window,
		Account:    creds.Account,
		Permission: permission,
	}

	canonical, err := s.Canonicalizer.Canonicalize(in)
	if err != nil {
		return nil, fmt.Errorf("provider %s: canonicalize %s: %w", provider, op.ResourcePath(), err)
	}
	signature, err := s.Signature.ComputeSignature(in, canonical, key)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", provider, err)
	}
	req, err := s.Assembler.Assemble(in, signature)
	if err != nil {
		return nil, fmt.Errorf("provider %s: assemble %s: %w", provider, op.ResourcePath(), err)
	}
	return req, nil
}
