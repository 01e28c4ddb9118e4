// Command server wires the governance services and runs the HTTP API.
//
// With a Postgres URL configured the process runs migrations, uses the
// database-backed stores and the row-lock discipline, and (when brokers are
// configured) starts the audit outbox relay. Without one it falls back to
// in-memory stores for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authhandler "equitygate/internal/auth/handler"
	authjwt "equitygate/internal/auth/jwt"
	authmw "equitygate/internal/auth/middleware"
	"equitygate/internal/auth/revocation"
	authservice "equitygate/internal/auth/service"
	companyhandler "equitygate/internal/company/handler"
	companyservice "equitygate/internal/company/service"
	companystore "equitygate/internal/company/store"
	disclosurehandler "equitygate/internal/disclosure/handler"
	disclosureservice "equitygate/internal/disclosure/service"
	disclosurestore "equitygate/internal/disclosure/store"
	"equitygate/internal/governance/actor"
	investmenthandler "equitygate/internal/investment/handler"
	investmentservice "equitygate/internal/investment/service"
	investmentstore "equitygate/internal/investment/store"
	"equitygate/internal/platform/config"
	"equitygate/internal/platform/httpserver"
	"equitygate/internal/platform/lockorder"
	"equitygate/internal/platform/logger"
	"equitygate/internal/platform/migrate"
	"equitygate/internal/platform/postgres"
	platformredis "equitygate/internal/platform/redis"
	httptransport "equitygate/internal/transport/http"
	userstore "equitygate/internal/user/store"
	audit "equitygate/pkg/platform/audit"
	auditkafka "equitygate/pkg/platform/audit/kafka"
	"equitygate/pkg/platform/audit/publisher"
	auditmem "equitygate/pkg/platform/audit/store/memory"
	auditpg "equitygate/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		auditStore audit.Store
		outbox     *auditpg.Store
		companies  companyservice.Store
		disclosure disclosureservice.Store
		users      investmentservice.UserReader
		authUsers  authservice.UserStore
		investment investmentservice.Store
		locker     lockorder.Locker = lockorder.Noop{}
		health     func() error
	)

	if cfg.PostgresURL != "" {
		pool, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		db, err := postgres.OpenSQL(cfg.PostgresURL)
		if err != nil {
			log.Error("sql handle failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if err := migrate.Up(db); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}

		outbox = auditpg.New(db)
		auditStore = outbox
		companies = companystore.NewPostgres(pool.Pool)
		disclosure = disclosurestore.NewPostgres(pool.Pool)
		userStore := userstore.NewPostgres(pool.Pool)
		users = userStore
		authUsers = userStore
		investment = investmentstore.NewPostgres(pool.Pool)
		locker = lockorder.NewPgx(pool.Pool, log)
		health = func() error { return pool.Health(context.Background()) }
	} else {
		log.Warn("no postgres URL configured, using in-memory stores")
		auditStore = auditmem.New()
		companies = companystore.NewInMemory()
		disclosure = disclosurestore.NewInMemory()
		userStore := userstore.NewInMemory()
		users = userStore
		authUsers = userStore
		investment = investmentstore.NewInMemory()
	}

	pub := publisher.New(auditStore,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	guard := actor.NewGuard(pub, log, actor.NewMetrics())

	var revocations revocation.List = revocation.NewMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		revocations = revocation.NewRedis(redisClient.Client)
	}

	disclosureSvc := disclosureservice.New(disclosure, guard, locker, log)
	companySvc := companyservice.New(companies, disclosure, guard, locker, pub, log)
	investmentSvc := investmentservice.New(companies, users, investment, pub, log, investmentservice.NewMetrics())

	tokens := authjwt.NewService(cfg.JWTSigningKey, "equitygate", "equitygate-api")
	authenticator := authmw.NewAuthenticator(tokens, revocations, log)
	authSvc := authservice.New(authUsers, tokens, revocations, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Authenticator: authenticator,
		Auth:          authhandler.New(authSvc, log),
		Companies:     companyhandler.New(companySvc, log),
		Disclosures:   disclosurehandler.New(disclosureSvc, log),
		Investments:   investmenthandler.New(investmentSvc, log),
		Audit:         httptransport.NewAuditHandler(auditStore, pub, log),
		Health:        health,
	})

	if len(cfg.Kafka.Brokers) > 0 && outbox != nil {
		relay, err := auditkafka.New(ctx, auditkafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, outbox, log)
		if err != nil {
			log.Error("audit relay startup failed", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	}

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting equitygate", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
