package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"hcm/internal/household/events"
	"hcm/internal/household/handler"
	"hcm/internal/household/service"
	householdstore "hcm/internal/household/store/household"
	memberstore "hcm/internal/household/store/member"
	"hcm/internal/household/validators"
	jwttoken "hcm/internal/jwt_token"
	"hcm/internal/platform/config"
	"hcm/internal/platform/httpserver"
	"hcm/internal/platform/kafka"
	"hcm/internal/platform/metrics"
	"hcm/internal/platform/migrations"
	"hcm/internal/platform/redis"
	"hcm/internal/platform/tracing"
	"hcm/internal/resolver"
	"hcm/internal/resolver/cache"
	"hcm/internal/resolver/individual"
	"hcm/pkg/platform/circuit"
	"hcm/pkg/platform/httputil"
	"hcm/pkg/platform/middleware/auth"
	"hcm/pkg/platform/tx"
	"hcm/pkg/validation"
)

// memberStore is what both the service and the validators need from the
// member datastore.
type memberStore interface {
	service.Store
	validators.MemberStore
}

type householdStore interface {
	validators.HouseholdStore
	handler.HouseholdStore
}

type app struct {
	cfg    config.Config
	log    *slog.Logger
	server *http.Server

	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
	shutdown func(context.Context) error
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.close(context.Background())
		}
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitProvider(ctx, tracing.Config{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			SampleRatio:    cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return nil, err
		}
		a.shutdown = shutdown
	}

	var err error
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		members    memberStore
		households householdStore
		runner     tx.Runner
	)
	if cfg.Database.URL != "" {
		if a.db, err = openDB(ctx, cfg.Database); err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			applied, err := migrations.Apply(ctx, a.db)
			if err != nil {
				return nil, err
			}
			log.Info("migrations applied", "count", len(applied))
		}
		members = memberstore.NewPostgres(a.db)
		households = householdstore.NewPostgres(a.db)
		runner = tx.NewSQLRunner(a.db, cfg.Database.TxTimeout)
	} else {
		log.Warn("no database configured, household members are kept in memory")
		members = memberstore.NewInMemory()
		households = householdstore.NewInMemory()
		runner = &tx.LockRunner{}
	}

	individuals, err := a.individualResolver(ctx)
	if err != nil {
		return nil, err
	}

	deps := validators.Deps{
		Members:                     members,
		Households:                  households,
		Individuals:                 individuals,
		Logger:                      log,
		NetworkErrorsAsEntityErrors: cfg.Household.NetworkErrorsAsEntityErrors,
		Parallelism:                 cfg.Household.Parallelism,
	}
	chainOpts := []validation.Option{
		validation.WithLogger(log),
		validation.WithMetrics(validation.NewMetrics(reg)),
		validation.WithTracer(otel.Tracer("hcm/validation")),
	}
	chains := service.Chains{
		Create: validators.NewCreateChain(deps, chainOpts...),
		Update: validators.NewUpdateChain(deps, chainOpts...),
		Delete: validators.NewDeleteChain(deps, chainOpts...),
	}

	svcOpts := []service.Option{
		service.WithTxRunner(runner),
		service.WithLogger(log),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithSearchLimit(cfg.Household.SearchLimit),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		if a.producer, err = a.kafkaProducer(ctx); err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithPublisher(events.NewPublisher(a.producer), service.Topics{
			Create: cfg.Kafka.CreateTopic,
			Update: cfg.Kafka.UpdateTopic,
			Delete: cfg.Kafka.DeleteTopic,
		}))
	} else {
		log.Warn("no kafka brokers configured, member events are not published")
	}
	svc := service.New(members, chains, svcOpts...)

	jwt := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience))
	authMW := auth.OptionalAuth(jwt, log)
	if cfg.Server.RequireAuth {
		authMW = auth.RequireAuth(jwt, log)
	}
	handlerOpts := []handler.Option{
		handler.WithAuth(authMW),
		handler.WithMetrics(metrics.New(reg)),
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if cfg.Server.AdminToken != "" {
		handlerOpts = append(handlerOpts, handler.WithHouseholdAdmin(households, cfg.Server.AdminToken))
	}

	r := chi.NewRouter()
	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.New(svc, log, handlerOpts...).Register(r)

	a.server = httpserver.New(cfg.Server.Addr, r, cfg.Server.RequestTimeout)
	ok = true
	return a, nil
}

func (a *app) individualResolver(ctx context.Context) (resolver.Resolver, error) {
	cfg := a.cfg.Individual
	client := individual.New(cfg.Host, cfg.SearchPath,
		individual.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		individual.WithLogger(a.log),
	)
	breaker := circuit.New("individual",
		circuit.WithFailureThreshold(cfg.BreakerThreshold),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)

	var r resolver.Resolver = resolver.WithTracing(client, "individual")
	r = resolver.WithBreaker(r, breaker, a.log)
	r = resolver.WithTimeout(r, cfg.Timeout)

	rc, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return r, nil
	}
	a.redis = rc
	return cache.New(r, rc.Client, "individual", a.cfg.Redis.CacheTTL, cache.WithLogger(a.log)), nil
}

func (a *app) kafkaProducer(ctx context.Context) (*kafka.Producer, error) {
	cfg := a.cfg.Kafka
	p, err := kafka.NewProducer(cfg.Brokers,
		kafka.WithLogger(a.log),
		kafka.WithClientID("hcm"),
	)
	if err != nil {
		return nil, err
	}
	if cfg.EnsureTopics {
		if err := p.EnsureTopics(ctx, cfg.Partitions, cfg.ReplicationFactor, cfg.CreateTopic, cfg.UpdateTopic, cfg.DeleteTopic); err != nil {
			p.Close(ctx)
			return nil, err
		}
	}
	return p, nil
}

func (a *app) run(ctx context.Context) error {
	return httpserver.Run(ctx, a.server, a.cfg.Server.ShutdownTimeout, a.log)
}

// close releases resources in reverse dependency order.
func (a *app) close(ctx context.Context) {
	if a.producer != nil {
		a.producer.Close(ctx)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", "error", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("shutdown tracing", "error", err)
		}
	}
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if a.db != nil {
		check("database", a.db.PingContext(ctx))
	}
	if a.redis != nil {
		check("redis", a.redis.Health(ctx))
	}
	if a.producer != nil {
		check("kafka", a.producer.Ping(ctx))
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
}

func openDB(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
