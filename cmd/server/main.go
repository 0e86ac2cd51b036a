package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"bridgehub/internal/compliance/policy"
	"bridgehub/internal/hub/adapters/prover"
	"bridgehub/internal/hub/adapters/sealbox"
	"bridgehub/internal/hub/adapters/signature"
	"bridgehub/internal/hub/handler"
	hubmetrics "bridgehub/internal/hub/metrics"
	"bridgehub/internal/hub/ports"
	"bridgehub/internal/hub/service"
	jwttoken "bridgehub/internal/jwt_token"
	"bridgehub/internal/platform/config"
	"bridgehub/internal/platform/httpserver"
	"bridgehub/internal/platform/logger"
	"bridgehub/internal/platform/metrics"
	ratelimit "bridgehub/internal/ratelimit/middleware"
	rlmodels "bridgehub/internal/ratelimit/models"
	"bridgehub/internal/ratelimit/store/bucket"
	"bridgehub/pkg/platform/middleware/auth"
	"bridgehub/pkg/platform/middleware/request"
	"bridgehub/pkg/platform/middleware/requesttime"
)

// main wires configuration, infrastructure and the hub service, serves
// HTTP, and shuts everything down on SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("bridgehub stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridgePolicy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	auditing := buildAudit(cfg, infra, reg, log)
	defer auditing.Close()
	notifier, err := buildNotifier(ctx, cfg, infra, log)
	if err != nil {
		return err
	}

	rules, err := buildPolicyEngine(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithGate(bridgePolicy.Gate()),
		service.WithSignatureVerifier(signature.NewEd25519()),
		service.WithEncryptor(sealbox.New()),
		service.WithPolicy(rules),
		service.WithAuditPublisher(auditing.router),
		service.WithComplianceAudit(auditing.compliance),
		service.WithMetrics(hubmetrics.New(reg)),
		service.WithLogger(log),
	}
	if tx := infra.Transactor(); tx != nil {
		opts = append(opts, service.WithTransactor(tx))
	}
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}
	if cfg.ProverURL != "" {
		opts = append(opts, service.WithProofVerifier(prover.NewClient(cfg.ProverURL, cfg.ProverTimeout)))
	}
	stores := infra.Stores()
	svc, err := service.New(stores, opts...)
	if err != nil {
		return err
	}

	router := newRouter(cfg, svc, newRateLimiter(cfg, infra, log), reg, log)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting bridgehub", "addr", cfg.Addr, "notifier", cfg.Notifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return auditing.security.Run(gctx)
	})
	g.Go(func() error {
		return pruneCounters(gctx, stores.Counters, counterPruneInterval, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildPolicyEngine(ctx context.Context, cfg config.Server) (ports.PolicyEngine, error) {
	if cfg.RegoPath != "" {
		return policy.NewEngineFromPath(ctx, cfg.RegoPath)
	}
	return policy.NewEngine(ctx, policy.DefaultModule)
}

func newRateLimiter(cfg config.Server, in *infra, log *slog.Logger) *ratelimit.Middleware {
	memory := bucket.NewInMemoryBucketStore()
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithLimit(rlmodels.ClassRead, rlmodels.Limit{RequestsPerWindow: cfg.RateLimit.Read, Window: cfg.RateLimit.Window}),
		ratelimit.WithLimit(rlmodels.ClassWrite, rlmodels.Limit{RequestsPerWindow: cfg.RateLimit.Write, Window: cfg.RateLimit.Window}),
	}
	if in.redis == nil {
		return ratelimit.New(memory, log, opts...)
	}
	opts = append(opts, ratelimit.WithFallback(memory))
	return ratelimit.New(bucket.NewRedisBucketStore(in.redis.Client), log, opts...)
}

func newRouter(cfg config.Server, svc *service.Service, limiter *ratelimit.Middleware, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	httpMetrics := metrics.New(reg)
	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(httpMetrics.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler(reg))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		r.Use(limiter.PerCaller)
		handler.New(svc, log).Register(r)
	})
	return r
}
