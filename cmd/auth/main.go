package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Miraines/jwtauth/internal/adapters/db/memory"
	myPostgresRepo "github.com/Miraines/jwtauth/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/jwtauth/internal/adapters/db/redis"
	grpcadapter "github.com/Miraines/jwtauth/internal/adapters/transport/grpc"
	httpadapter "github.com/Miraines/jwtauth/internal/adapters/transport/http"
	"github.com/Miraines/jwtauth/internal/app/auth/jwt"
	"github.com/Miraines/jwtauth/internal/app/auth/password"
	"github.com/Miraines/jwtauth/internal/app/auth/refresh"
	appsvc "github.com/Miraines/jwtauth/internal/app/auth/service"
	"github.com/Miraines/jwtauth/internal/domain/auth/repo"
	"github.com/Miraines/jwtauth/internal/infra/config"
	lg "github.com/Miraines/jwtauth/internal/infra/log"
	"github.com/Miraines/jwtauth/internal/infra/migrate"
	"github.com/Miraines/jwtauth/internal/infra/server"
)

// memoryDSN selects the in-process user store, for local runs only.
const memoryDSN = "memory:"

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must("").Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()

	probes := map[string]grpcadapter.Probe{}

	var userRepo repo.UserRepo
	if strings.HasPrefix(cfg.DatabaseURL, memoryDSN) {
		zapLog.Warn("using in-memory user store; data is lost on restart")
		userRepo = memory.NewUserRepo()
	} else {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
		if err != nil {
			zapLog.Fatal("failed to connect to database", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			zapLog.Fatal("db handle", zap.Error(err))
		}
		defer sqlDB.Close()
		if err := migrate.Up(sqlDB); err != nil {
			zapLog.Fatal("run migrations", zap.Error(err))
		}
		userRepo = myPostgresRepo.NewPostgresUserRepo(db)
		probes["postgres"] = grpcadapter.ProbeFunc(sqlDB.PingContext)
	}

	// Left nil without redis so the service skips the denylist.
	var tokenRepo repo.TokenRepo
	if cfg.RedisAddress != "" {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		redisRepo := myRedisRepo.NewRedisTokenRepo(redisCli)
		tokenRepo = redisRepo
		probes["redis"] = redisRepo
	}

	hasher, err := password.NewHasher(password.DefaultParams, cfg.PasswordPepper)
	if err != nil {
		zapLog.Fatal("failed to init password hasher", zap.Error(err))
	}
	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}
	refreshStore := refresh.NewStore(userRepo, cfg.RefreshTokenTTL)
	svc := appsvc.New(userRepo, tokenRepo, jwtUtil, refreshStore, hasher, validator.New(), zapLog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	grpcMetrics := grpc_prometheus.NewServerMetrics()
	grpcMetrics.EnableHandlingTimeHistogram()
	registry.MustRegister(grpcMetrics)

	router := httpadapter.NewRouter(svc, httpadapter.RouterConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		Registry:         registry,
	}, zapLog)
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	checker := grpcadapter.NewHealthChecker(zapLog, 0, probes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.StartGRPCServer(gctx, cfg, server.GRPCDeps{
			Health:  checker.Server(),
			Metrics: grpcMetrics,
			Logger:  zapLog,
		})
	})
	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress), zap.Bool("tls", cfg.TLSEnabled()))
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
		os.Exit(1)
	}
}
