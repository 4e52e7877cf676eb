package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"pixkeys/internal/directory/callbacks"
	directoryclient "pixkeys/internal/directory/client"
	"pixkeys/internal/directory/fake"
	jwttoken "pixkeys/internal/jwt_token"
	"pixkeys/internal/pixkey/adapters"
	pixhandler "pixkeys/internal/pixkey/handler"
	pixmetrics "pixkeys/internal/pixkey/metrics"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/ports"
	pixservice "pixkeys/internal/pixkey/service"
	"pixkeys/internal/pixkey/store/dedupe"
	"pixkeys/internal/pixkey/store/intents"
	"pixkeys/internal/pixkey/store/keys"
	"pixkeys/internal/platform/config"
	"pixkeys/internal/platform/httpserver"
	"pixkeys/internal/platform/kafka"
	"pixkeys/internal/platform/kafka/consumer"
	"pixkeys/internal/platform/kafka/producer"
	"pixkeys/internal/platform/logger"
	"pixkeys/internal/platform/metrics"
	"pixkeys/internal/platform/postgres"
	platformredis "pixkeys/internal/platform/redis"
	"pixkeys/internal/platform/tracing"
	vermetrics "pixkeys/internal/verification/metrics"
	"pixkeys/internal/verification/notifier"
	verservice "pixkeys/internal/verification/service"
	verstore "pixkeys/internal/verification/store"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/circuit"
	"pixkeys/pkg/platform/outbox"
	outboxmemory "pixkeys/pkg/platform/outbox/store/memory"
	outboxpostgres "pixkeys/pkg/platform/outbox/store/postgres"
	outboxworker "pixkeys/pkg/platform/outbox/worker"
	"pixkeys/pkg/platform/tx"
)

const notificationQueueSize = 1024

// main wires high-level dependencies, exposes the HTTP router, and runs the
// background workers. Business logic lives in internal service packages.
func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("pixkeys stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("pixkeys stopped")
}

// infra holds the optional durable backends. Nil fields select the
// in-memory implementation of the matching component.
type infra struct {
	db    *sql.DB
	redis *platformredis.Client
	kafka *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// checks lists a readiness probe per configured backend.
func (i *infra) checks() map[string]httpserver.Check {
	checks := make(map[string]httpserver.Check)
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Health
	}
	if i.kafka != nil {
		checks["kafka"] = i.kafka.Ping
	}
	return checks
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	inf, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer inf.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		keyStore    ports.KeyStore
		intentStore ports.IntentStore
		outboxStore outbox.Store
		runner      tx.Runner
		deduper     ports.CallbackDeduper
		codeStore   verservice.Store
	)
	if inf.db != nil {
		keyStore = keys.NewPostgres(inf.db)
		intentStore = intents.NewPostgres(inf.db)
		outboxStore = outboxpostgres.New(inf.db)
		runner = tx.NewPostgres(inf.db)
	} else {
		log.Warn("DATABASE_URL not set, keys live in memory only")
		keyStore = keys.NewInMemory()
		intentStore = intents.NewInMemory()
		outboxStore = outboxmemory.NewInMemoryStore()
		runner = tx.NewMemory()
	}
	if inf.redis != nil {
		deduper = dedupe.NewRedis(inf.redis.Client)
		codeStore = verstore.NewRedis(inf.redis.Client)
	} else {
		deduper = dedupe.NewInMemory()
		codeStore = verstore.NewInMemory()
	}

	var (
		publisher outbox.Publisher = outbox.NewLogPublisher(log)
		delivery  notifier.Notifier = notifier.NewLogNotifier(log)
	)
	if inf.kafka != nil {
		prod := producer.New(inf.kafka)
		publisher = outbox.NewKafkaPublisher(prod, cfg.Kafka.EventsTopic)
		delivery = notifier.NewKafkaNotifier(prod, cfg.Kafka.NotificationsTopic)
	}

	verMetrics := vermetrics.New(reg)
	notifications := notifier.NewAsync(delivery, notificationQueueSize, log, verMetrics)
	codes := verservice.New(codeStore, notifications,
		verservice.WithLogger(log),
		verservice.WithMetrics(verMetrics),
		verservice.WithTTL(cfg.Codes.TTL),
		verservice.WithResendInterval(cfg.Codes.ResendInterval),
	)

	participant, err := id.ParseISPB(cfg.Directory.ParticipantISPB)
	if err != nil {
		return fmt.Errorf("participant ispb: %w", err)
	}
	directory, fakeDirectory, err := newDirectory(cfg, participant, reg, log)
	if err != nil {
		return err
	}

	engine := pixservice.New(keyStore, intentStore, adapters.NewOutboxPublisher(outboxStore), directory, codes, runner,
		models.Policy{
			Participant:      participant,
			ClaimOpenTimeout: cfg.Claims.OpenTimeout,
			ResolutionPeriod: cfg.Claims.ResolutionPeriod,
			SettleTimeout:    cfg.Claims.SettleTimeout,
		},
		pixservice.WithLogger(log),
		pixservice.WithMetrics(pixmetrics.New(reg)),
		pixservice.WithCallbackDeduper(deduper),
		pixservice.WithPendingTTL(cfg.Keys.PendingTTL),
		pixservice.WithSweepLimits(cfg.Workers.SweepBatch, cfg.Workers.SweepConcurrency),
		pixservice.WithReconcilePolicy(cfg.Workers.ReconcileGrace, cfg.Workers.ReconcileMaxAttempts),
	)
	if fakeDirectory != nil {
		// The in-process directory answers proposals by calling back into
		// the engine, the way the real one does through the callbacks topic.
		fakeDirectory.SetCallbackSink(func(ctx context.Context, cb models.DirectoryCallback) error {
			_, err := engine.OnDirectoryCallback(ctx, cb)
			return err
		}, 50*time.Millisecond)
	}

	relay := outboxworker.NewRelay(outboxStore, publisher, runner,
		outboxworker.WithLogger(log),
		outboxworker.WithMetrics(outboxworker.NewMetrics(reg)),
		outboxworker.WithInterval(cfg.Workers.OutboxPollInterval),
		outboxworker.WithBatchSize(cfg.Workers.OutboxBatch),
		outboxworker.WithBreaker(circuit.New("outbox-publisher")),
	)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	router := chi.NewRouter()
	pixhandler.New(engine, log, metrics.New(reg), jwttoken.NewOwnerValidator(jwtService)).Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	router.Get("/readyz", httpserver.Readiness(2*time.Second, inf.checks()))
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return notifications.Run(gctx) })
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return engine.RunSweeper(gctx, cfg.Workers.SweepInterval) })
	g.Go(func() error { return engine.RunReconciler(gctx, cfg.Workers.ReconcileInterval) })
	if inf.kafka != nil {
		cbConsumer, err := newCallbackConsumer(ctx, cfg, engine, log)
		if err != nil {
			return err
		}
		defer cbConsumer.Close()
		g.Go(func() error { return cbConsumer.Run(gctx) })
	}
	log.Info("starting pixkeys", "addr", cfg.Server.Addr, "in_memory", inf.db == nil)
	g.Go(func() error { return httpserver.Serve(gctx, srv, cfg.Server.ShutdownGrace, log) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// connect opens every configured backend and applies migrations.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	inf := &infra{}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		inf.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			inf.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		inf.close()
		return nil, err
	}
	inf.redis = rc

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.NewClient(ctx, cfg.Kafka.Brokers)
		if err != nil {
			inf.close()
			return nil, err
		}
		inf.kafka = client
		if err := kafka.EnsureTopics(ctx, client, 3, 1,
			cfg.Kafka.EventsTopic, cfg.Kafka.CallbacksTopic, cfg.Kafka.NotificationsTopic); err != nil {
			log.Warn("could not ensure kafka topics", "error", err)
		}
	}
	return inf, nil
}

// newDirectory returns the HTTP gateway when DIRECTORY_BASE_URL is set and
// the in-process fake otherwise. The fake is returned separately so the
// caller can route its callbacks.
func newDirectory(cfg config.Config, participant id.ISPB, reg prometheus.Registerer, log *slog.Logger) (ports.DirectoryGateway, *fake.Directory, error) {
	if cfg.Directory.BaseURL == "" {
		log.Warn("DIRECTORY_BASE_URL not set, using in-process directory")
		d := fake.New(fake.WithLogger(log))
		return d, d, nil
	}
	breaker := circuit.New("directory",
		circuit.WithFailureThreshold(cfg.Directory.BreakerThreshold),
		circuit.WithCooldown(cfg.Directory.BreakerCooldown),
	)
	c, err := directoryclient.New(cfg.Directory.BaseURL, participant, cfg.Directory.Timeout,
		directoryclient.WithBreaker(breaker),
		directoryclient.WithLogger(log),
		directoryclient.WithMetrics(directoryclient.NewMetrics(reg)),
		directoryclient.WithRetry(cfg.Directory.RetryAttempts, 200*time.Millisecond),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("directory client: %w", err)
	}
	return c, nil, nil
}

// newCallbackConsumer joins the callbacks consumer group on its own client;
// group consumption and producing do not share a client.
func newCallbackConsumer(ctx context.Context, cfg config.Config, engine *pixservice.Service, log *slog.Logger) (*consumer.Consumer, error) {
	router := consumer.NewRouter(log, nil)
	router.Register(cfg.Kafka.CallbacksTopic, callbacks.NewHandler(engine, log))

	client, err := kafka.NewClient(ctx, cfg.Kafka.Brokers,
		consumer.ClientOptions(cfg.Kafka.ConsumerGroup, router.Topics()...)...)
	if err != nil {
		return nil, fmt.Errorf("callbacks consumer: %w", err)
	}
	return consumer.New(client, router, consumer.WithLogger(log)), nil
}
