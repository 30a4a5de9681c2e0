package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	admissionhandler "reliefpass/internal/admission/handler"
	admissionmetrics "reliefpass/internal/admission/metrics"
	admissionservice "reliefpass/internal/admission/service"
	admissionstore "reliefpass/internal/admission/store"
	capacitymetrics "reliefpass/internal/capacity/metrics"
	capacityservice "reliefpass/internal/capacity/service"
	capacitystore "reliefpass/internal/capacity/store"
	jwttoken "reliefpass/internal/jwt_token"
	"reliefpass/internal/notify"
	notifymetrics "reliefpass/internal/notify/metrics"
	"reliefpass/internal/platform/config"
	"reliefpass/internal/platform/httpserver"
	"reliefpass/internal/platform/logger"
	"reliefpass/internal/platform/metrics"
	"reliefpass/internal/platform/postgres"
	"reliefpass/internal/platform/redis"
	programhandler "reliefpass/internal/program/handler"
	programmetrics "reliefpass/internal/program/metrics"
	programservice "reliefpass/internal/program/service"
	programstore "reliefpass/internal/program/store"
	"reliefpass/internal/sweeper"
	httptransport "reliefpass/internal/transport/http"
	vouchercache "reliefpass/internal/voucher/cache"
	voucherhandler "reliefpass/internal/voucher/handler"
	vouchermetrics "reliefpass/internal/voucher/metrics"
	voucherservice "reliefpass/internal/voucher/service"
	voucherstore "reliefpass/internal/voucher/store"
	"reliefpass/pkg/platform/tx"
)

const sweepLeaseKey = "reliefpass:sweep"

// registrationStore is what both admission and the capacity ledger need from
// the registration table.
type registrationStore interface {
	admissionservice.RegistrationStore
	capacityservice.Occupants
}

type stores struct {
	programs      programservice.ProgramStore
	ledgers       capacityservice.LedgerStore
	registrations registrationStore
	vouchers      voucherservice.VoucherStore
	scans         voucherservice.ScanStore
	runner        tx.Runner
}

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("reliefpass exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}

	db, st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
	}

	sender, closeSender, err := newSender(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSender()
	dispatcher := notify.NewDispatcher(sender,
		notify.WithLogger(log),
		notify.WithMetrics(notifymetrics.New()),
	)

	capacity := capacityservice.New(st.ledgers, st.programs, st.registrations, st.runner,
		capacityservice.WithLogger(log),
		capacityservice.WithMetrics(capacitymetrics.New()),
	)
	programs := programservice.New(st.programs, capacity, st.runner,
		programservice.WithLogger(log),
		programservice.WithMetrics(programmetrics.New()),
	)

	voucherOpts := []voucherservice.Option{
		voucherservice.WithLogger(log),
		voucherservice.WithMetrics(vouchermetrics.New()),
		voucherservice.WithNotifier(dispatcher),
		voucherservice.WithRenderer(notify.NewQRRenderer()),
		voucherservice.WithSweepBatchSize(cfg.Sweeper.BatchSize),
	}
	if redisClient != nil {
		voucherOpts = append(voucherOpts, voucherservice.WithCache(vouchercache.New(redisClient, cfg.RedemptionTTL)))
	}
	vouchers := voucherservice.New(st.vouchers, st.scans, st.registrations, st.programs, capacity, st.runner, voucherOpts...)

	admission := admissionservice.New(st.registrations, capacity, vouchers, st.runner,
		admissionservice.WithLogger(log),
		admissionservice.WithMetrics(admissionmetrics.New()),
		admissionservice.WithAutoApprove(cfg.Admission.AutoApprove),
	)
	programs.SetAdmissionCanceller(admission)

	sweepOpts := []sweeper.Option{sweeper.WithLogger(log)}
	if redisClient != nil {
		sweepOpts = append(sweepOpts, sweeper.WithLease(redis.NewLease(redisClient, sweepLeaseKey), cfg.Sweeper.LeaseTTL))
	}
	sweep := sweeper.New(vouchers, cfg.Sweeper.Interval, sweepOpts...)

	programHTTP := programhandler.New(programs, capacity, log)
	admissionHTTP := admissionhandler.New(admission, log)
	voucherHTTP := voucherhandler.New(vouchers, log)
	staffTokens := jwttoken.NewStaffValidator(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer))

	router := httptransport.NewRouter(httptransport.Config{
		Logger:       log,
		Metrics:      metrics.New(),
		AdminToken:   cfg.AdminAPIToken,
		StaffTokens:  staffTokens,
		Public:       []httptransport.PublicRoutes{programHTTP, admissionHTTP},
		Admin:        []httptransport.AdminRoutes{programHTTP, admissionHTTP, voucherHTTP},
		Staff:        []httptransport.StaffRoutes{admissionHTTP, voucherHTTP},
		HealthChecks: checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting reliefpass", "addr", cfg.Addr, "environment", cfg.Environment)
		return httpserver.Serve(gctx, srv, httpserver.DefaultGrace)
	})
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sweep.Run(gctx) })

	return g.Wait()
}

// openStores picks Postgres when a database URL is configured and the
// in-memory stores otherwise. db is nil in memory mode.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*sql.DB, stores, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, state is kept in memory")
		programs := programstore.NewInMemory()
		return nil, stores{
			programs:      programs,
			ledgers:       capacitystore.NewInMemory(programs),
			registrations: admissionstore.NewInMemory(),
			vouchers:      voucherstore.NewInMemory(),
			scans:         voucherstore.NewScanInMemory(),
			runner:        tx.NewInMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, stores{}, err
	}
	if err := postgres.Migrate(db, log); err != nil {
		_ = db.Close()
		return nil, stores{}, err
	}
	return db, stores{
		programs:      programstore.NewPostgres(db),
		ledgers:       capacitystore.NewPostgres(db),
		registrations: admissionstore.NewPostgres(db),
		vouchers:      voucherstore.NewPostgres(db),
		scans:         voucherstore.NewScanPostgres(db),
		runner:        tx.NewPostgres(db),
	}, nil
}

// newSender publishes to Kafka when brokers are configured and logs
// notifications otherwise.
func newSender(ctx context.Context, cfg config.Server, log *slog.Logger) (notify.Sender, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, notifications are only logged")
		return notify.NewLogSender(log), func() {}, nil
	}

	kafka, err := notify.NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
		kafka.Close()
		return nil, nil, err
	}
	return kafka, kafka.Close, nil
}
