package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"bridgehub/internal/hub"
	"bridgehub/internal/hub/notifier"
	kafkanotifier "bridgehub/internal/hub/notifier/kafka"
	natsnotifier "bridgehub/internal/hub/notifier/nats"
	"bridgehub/internal/hub/ports"
	"bridgehub/internal/hub/service"
	"bridgehub/internal/hub/store/counters"
	"bridgehub/internal/hub/store/memory"
	hubpostgres "bridgehub/internal/hub/store/postgres"
	"bridgehub/internal/platform/config"
	"bridgehub/internal/platform/postgres"
	"bridgehub/internal/platform/redis"
	audit "bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/audit/publisher"
	compliancepub "bridgehub/pkg/platform/audit/publishers/compliance"
	"bridgehub/pkg/platform/audit/publishers/ops"
	"bridgehub/pkg/platform/audit/publishers/security"
	auditmemory "bridgehub/pkg/platform/audit/store/memory"
	auditpostgres "bridgehub/pkg/platform/audit/store/postgres"
	"bridgehub/pkg/platform/circuit"
)

// infra holds the connections the process owns. Every field is optional;
// absent backends fall back to in-process implementations.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client
	nats  *nats.Conn
	log   *slog.Logger
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{log: log}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db, hubpostgres.Schema, auditpostgres.Schema); err != nil {
			_ = db.Close()
			return nil, err
		}
		in.db = db
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	client, err := redis.New(cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = client
	return in, nil
}

func (in *infra) Stores() service.Stores {
	stores := service.Stores{
		Configs:   memory.NewConfigStore(),
		Wallets:   memory.NewWalletStore(),
		Transfers: memory.NewTransferStore(),
		Counters:  counters.NewMemory(),
	}
	if in.db != nil {
		stores.Configs = hubpostgres.NewConfigStore(in.db)
		stores.Wallets = hubpostgres.NewWalletStore(in.db)
		stores.Transfers = hubpostgres.NewTransferStore(in.db)
		stores.Counters = hubpostgres.NewCounterStore(in.db)
	}
	if in.redis != nil {
		stores.Counters = counters.NewRedis(in.redis.Client)
	}
	return stores
}

// Transactor returns nil when there is no database to run transactions on.
func (in *infra) Transactor() ports.Transactor {
	if in.db == nil {
		return nil
	}
	return hubpostgres.NewTransactor(in.db)
}

func (in *infra) auditStore() audit.Store {
	if in.db != nil {
		return auditpostgres.New(in.db)
	}
	return auditmemory.NewInMemoryStore()
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.nats != nil {
		if err := in.nats.Drain(); err != nil {
			in.log.Warn("nats drain failed", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.log.Warn("redis close failed", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			in.log.Warn("postgres close failed", "error", err)
		}
	}
}

func buildNotifier(ctx context.Context, cfg config.Server, in *infra, log *slog.Logger) (ports.Notifier, error) {
	var next ports.Notifier
	switch cfg.Notifier {
	case config.NotifierNone, "":
		log.Warn("no relay notifier configured, envelopes are not delivered")
		return nil, nil
	case config.NotifierKafka:
		client, err := kafkanotifier.NewClient(cfg.Kafka.Brokers, "bridgehub")
		if err != nil {
			return nil, err
		}
		in.kafka = client
		if err := kafkanotifier.EnsureTopic(ctx, client, cfg.Kafka.Topic, cfg.Kafka.Partitions, -1); err != nil {
			return nil, err
		}
		next = kafkanotifier.New(client, cfg.Kafka.Topic)
	case config.NotifierNATS:
		conn, js, err := natsnotifier.Connect(cfg.NATS.URL, cfg.NATS.Timeout)
		if err != nil {
			return nil, err
		}
		in.nats = conn
		if err := natsnotifier.EnsureStream(js, cfg.NATS.Stream, cfg.NATS.SubjectPrefix); err != nil {
			return nil, err
		}
		next = natsnotifier.New(js, cfg.NATS.SubjectPrefix)
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
	breaker := circuit.New("relay-notifier", circuit.WithCooldown(30*time.Second))
	return notifier.NewGuard(next, breaker, log), nil
}

type auditing struct {
	router     *publisher.Router
	compliance *compliancepub.Publisher
	security   *security.Publisher
	fallback   *publisher.Publisher
}

// buildAudit routes security events through the buffered security
// publisher and operations events through the sampled ops publisher.
// Compliance events on the best-effort path go through an async buffer;
// the fail-closed path uses the compliance publisher directly.
func buildAudit(cfg config.Server, in *infra, reg prometheus.Registerer, log *slog.Logger) *auditing {
	store := in.auditStore()
	a := &auditing{
		compliance: compliancepub.New(store, compliancepub.WithLogger(log)),
		security:   security.New(store, security.WithLogger(log)),
		fallback:   publisher.NewPublisher(store, publisher.WithAsyncBuffer(1024), publisher.WithLogger(log)),
	}
	opsPublisher := ops.New(store,
		ops.WithSampler(ops.NewSampler(cfg.AuditOpsSampleRate)),
		ops.WithMetrics(ops.NewMetrics(reg)),
		ops.WithLogger(log),
	)
	a.router = publisher.NewRouter(a.fallback).
		Route(audit.CategorySecurity, a.security).
		Route(audit.CategoryOperations, opsPublisher)
	return a
}

func (a *auditing) Close() {
	_ = a.fallback.Close()
	a.security.Flush(context.Background())
	_ = a.compliance.Close()
}

const counterPruneInterval = time.Hour

type counterPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// pruneCounters sweeps expired counters every interval until ctx ends.
// Stores without PruneExpired (Redis) expire keys themselves.
func pruneCounters(ctx context.Context, store hub.CounterStore, every time.Duration, log *slog.Logger) error {
	p, ok := store.(counterPruner)
	if !ok {
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := p.PruneExpired(ctx)
			if err != nil {
				log.Warn("prune counters failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("pruned expired counters", "count", n)
			}
		}
	}
}
