// Package service runs the hub operations exposed to callers: hub
// configuration, wallets, compliance, the cross-chain transfer lifecycle,
// qualified signatures and confidential transactions.
//
// Every operation takes the already authenticated caller. The service only
// checks authorization (does the caller hold the role), never authenticity.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bridgehub/internal/compliance"
	"bridgehub/internal/hub"
	"bridgehub/internal/hub/metrics"
	"bridgehub/internal/hub/ports"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/sentinel"
	"bridgehub/pkg/requestcontext"
)

const tracerName = "bridgehub/internal/hub/service"

// Stores groups the persistence the service needs. All four are required.
type Stores struct {
	Configs   hub.ConfigStore
	Wallets   hub.WalletStore
	Transfers hub.TransferStore
	Counters  hub.CounterStore
}

type Service struct {
	configs   hub.ConfigStore
	wallets   hub.WalletStore
	transfers hub.TransferStore
	counters  hub.CounterStore

	gate       *compliance.Gate
	signatures ports.SignatureVerifier
	proofs     ports.ProofVerifier
	encryptor  ports.Encryptor
	notifier   ports.Notifier
	policy     ports.PolicyEngine
	ids        ports.IDGenerator
	tx         ports.Transactor
	locks      *walletLocks

	auditor         ports.AuditPublisher
	complianceAudit ports.AuditPublisher

	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   func() time.Time
}

type Option func(*Service)

func WithGate(gate *compliance.Gate) Option {
	return func(s *Service) { s.gate = gate }
}

func WithSignatureVerifier(v ports.SignatureVerifier) Option {
	return func(s *Service) { s.signatures = v }
}

func WithProofVerifier(v ports.ProofVerifier) Option {
	return func(s *Service) { s.proofs = v }
}

func WithEncryptor(e ports.Encryptor) Option {
	return func(s *Service) { s.encryptor = e }
}

// WithNotifier sets where envelopes are published. Without one, envelopes
// are encoded but not delivered.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPolicy enables operator deny rules on initiation.
func WithPolicy(p ports.PolicyEngine) Option {
	return func(s *Service) { s.policy = p }
}

// WithTransactor makes the audit record and the state change of an
// operation commit together.
func WithTransactor(t ports.Transactor) Option {
	return func(s *Service) { s.tx = t }
}

func WithIDGenerator(g ports.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithAuditPublisher sets the best-effort publisher for operational and
// security events.
func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithComplianceAudit sets the fail-closed publisher for compliance events.
// When it fails, the operation fails before any state is written.
func WithComplianceAudit(p ports.AuditPublisher) Option {
	return func(s *Service) { s.complianceAudit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock overrides the fallback time source. A request-scoped time set by
// middleware always wins.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(stores Stores, opts ...Option) (*Service, error) {
	if stores.Configs == nil || stores.Wallets == nil || stores.Transfers == nil || stores.Counters == nil {
		return nil, errors.New("hub service requires config, wallet, transfer and counter stores")
	}
	s := &Service{
		configs:   stores.Configs,
		wallets:   stores.Wallets,
		transfers: stores.Transfers,
		counters:  stores.Counters,
		ids:       uuidGenerator{},
		tx:        directTx{},
		locks:     &walletLocks{},
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gate == nil {
		s.gate = compliance.NewGate(compliance.WithClock(s.clock))
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s, nil
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// directTx runs fn without a transaction, for stores that have none.
type directTx struct{}

func (directTx) RunInTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.NowOr(ctx, s.clock)
}

// begin opens a span for op. The returned function ends it, records the
// outcome and translates err into a coded domain error.
func (s *Service) begin(ctx context.Context, op string, caller domain.Identity) (context.Context, func(error) error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "hub."+op, trace.WithAttributes(
		attribute.String("caller", caller.String()),
		attribute.String("request_id", requestcontext.RequestID(ctx)),
	))
	return ctx, func(err error) error {
		status := hub.StatusOf(err)
		s.metrics.ObserveOperation(op, status, time.Since(start))
		span.SetAttributes(attribute.String("status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		span.End()
		return hub.Translate(err)
	}
}

func (s *Service) loadConfig(ctx context.Context) (hub.Config, error) {
	cfg, err := s.configs.Get(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return hub.Config{}, hub.ErrNotInitialized
	}
	if err != nil {
		return hub.Config{}, fmt.Errorf("load hub config: %w", err)
	}
	return cfg, nil
}

// requireRole fails with ErrUnauthorized unless caller holds role. An unset
// role is held by nobody.
func (s *Service) requireRole(ctx context.Context, role *domain.Identity, name string, caller domain.Identity) error {
	if domain.Is(role, caller) {
		return nil
	}
	s.logAudit(ctx, audit.EventUnauthorizedAttempt, caller, name, "", "denied", "caller is not the "+name)
	return fmt.Errorf("%w: %s required", hub.ErrUnauthorized, name)
}

// Config returns the current hub configuration.
func (s *Service) Config(ctx context.Context) (hub.Config, error) {
	cfg, err := s.loadConfig(ctx)
	return cfg, hub.Translate(err)
}
