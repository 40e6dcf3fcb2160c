package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	_ "time/tzdata"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/auth"
	"github.com/auntor69/ewu-hub-3.0/internal/config"
	"github.com/auntor69/ewu-hub-3.0/internal/db"
	"github.com/auntor69/ewu-hub-3.0/internal/httpapi"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/metrics"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/mq"
	"github.com/auntor69/ewu-hub-3.0/internal/obs"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
	"github.com/auntor69/ewu-hub-3.0/internal/service"
)

func main() {
	// 1. Config from env (+ optional .env).
	cfg, err := config.LoadWithFile(".env")
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}

	// 2. Logger.
	log := logging.New(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	// 3. Booking policy.
	policyCfg, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load policy")
	}
	policy := reservation.PolicyFromConfig(policyCfg)

	// 4. Database and migrations.
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load db config")
	}
	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init db")
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("auto migrate")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("sql DB")
	}
	defer sqlDB.Close()

	// 5. Repositories.
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	resourceRepo := repository.NewGormResourceRepository(gormDB)
	hoursRepo := repository.NewGormOpeningHoursRepository(gormDB)
	userRepo := repository.NewGormUserRepository(gormDB)
	penaltyRepo := repository.NewGormPenaltyRepository(gormDB)
	auditRepo := repository.NewGormAuditRepository(gormDB)

	// 6. Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		log.Fatal().Err(err).Msg("register metrics")
	}

	// 7. Audit trail: database, plus RabbitMQ when configured.
	var sink audit.Sink = audit.NewGormSink(auditRepo)
	if cfg.AMQPURL != "" {
		pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("init rabbitmq publisher")
		}
		defer pub.Close()
		sink = audit.Multi{sink, audit.NewAMQPSink(pub)}
	}
	recorder := audit.NewRecorder(sink, log, audit.WithFailureCounter(m.AuditFailures))

	// 8. Tracing.
	shutdownTracer, err := obs.InitTracer(context.Background(), logging.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracer")
	}

	// 9. Core services.
	core := reservation.New(bookingRepo, resourceRepo, hoursRepo,
		reservation.WithPolicy(policy),
		reservation.WithQueryTimeout(cfg.QueryTimeout),
		reservation.WithAudit(recorder),
		reservation.WithMetrics(m),
		reservation.WithLogger(log),
	)
	admin := reservation.NewAdmin(userRepo, penaltyRepo, hoursRepo, auditRepo, recorder, log)
	tokens := auth.NewTokens(cfg.JWTSecret)

	// 10. gRPC server.
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(
		service.AuthInterceptor(tokens, userRepo, log, service.RegisterUserMethod),
	))
	service.Register(grpcServer,
		service.NewReservationService(core),
		service.NewIdentityService(userRepo, admin, tokens, cfg.TokenTTL),
		service.NewAdminService(admin),
	)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("listen")
	}
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("grpc serve")
		}
	}()

	// 11. HTTP gateway.
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(core), tokens, userRepo, reg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http serve")
		}
	}()

	// 12. No-show sweeper.
	ctx, stopSweep := context.WithCancel(context.Background())
	go sweep(ctx, core, cfg.SweepInterval, logging.For(log, "sweeper"))

	// 13. Graceful shutdown on signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	grpcServer.GracefulStop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
}

func sweep(ctx context.Context, core *reservation.Service, every time.Duration, log zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := core.SweepNoShows(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("no-show sweep")
				continue
			}
			if n > 0 {
				log.Info().Int(logging.Count, n).Msg("marked no-shows")
			}
		}
	}
}
