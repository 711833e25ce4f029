package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-access-service/internal/config"
	"github.com/pribylovaa/go-access-service/internal/janitor"
	"github.com/pribylovaa/go-access-service/internal/mailer"
	"github.com/pribylovaa/go-access-service/internal/metrics"
	"github.com/pribylovaa/go-access-service/internal/ratelimit"
	"github.com/pribylovaa/go-access-service/internal/service"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"github.com/pribylovaa/go-access-service/internal/storage/memory"
	"github.com/pribylovaa/go-access-service/internal/storage/minio"
	"github.com/pribylovaa/go-access-service/internal/storage/mongo"
	"github.com/pribylovaa/go-access-service/internal/storage/postgres"
	accesshttp "github.com/pribylovaa/go-access-service/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// pinger: хранилище, умеющее проверять соединение (для /healthz).
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting access-service", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := openStorage(dbCtx, cfg.Storage)
	dbCancel()
	if err != nil {
		log.Error("storage_connect_failed", slog.String("driver", cfg.Storage.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("storage_connected", slog.String("driver", cfg.Storage.Driver))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if cerr := str.Close(closeCtx); cerr != nil {
			log.Warn("storage_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	mail, err := setupMailer(cfg.SMTP, log)
	if err != nil {
		log.Error("mailer_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	m := metrics.New()

	srvc := service.New(str, mail, cfg)
	srvc.SetMetrics(m)

	if cfg.S3.Endpoint != "" {
		s3Ctx, s3Cancel := context.WithTimeout(rootCtx, 10*time.Second)
		objects, err := minio.New(s3Ctx, cfg.S3)
		s3Cancel()
		if err != nil {
			log.Error("minio_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		srvc.SetObjectStore(objects)
		log.Info("minio_connected", slog.String("bucket", cfg.S3.Bucket))
	} else {
		log.Warn("uploads_disabled")
	}

	// Роли и супер-администратор: до открытия порта.
	bootCtx, bootCancel := context.WithTimeout(rootCtx, 30*time.Second)
	err = srvc.Bootstrap(bootCtx)
	bootCancel()
	if err != nil {
		log.Error("bootstrap_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("service_initialized")

	limiters, closeLimiters, err := setupLimiters(rootCtx, cfg)
	if err != nil {
		log.Error("rate_limiter_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeLimiters()

	jn := janitor.New(str, m, log)
	if err := jn.Start(rootCtx, cfg.Janitor.Schedule); err != nil {
		log.Error("janitor_start_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer jn.Stop()

	apiHandler := accesshttp.NewRouter(srvc, accesshttp.Options{
		Logger:         log,
		Metrics:        m,
		Timeout:        cfg.Timeouts.Request,
		BasePath:       cfg.HTTP.BasePath,
		Limiters:       limiters,
		MaxUploadBytes: cfg.S3.MaxSizeBytes,
		TrustProxy:     cfg.HTTP.TrustProxy,
	})

	var ready int32 // 0: not ready; 1: ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if p, ok := str.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := p.Ping(ctx); err != nil {
				log.Warn("healthz_ping_failed", slog.String("err", err.Error()))
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage подключает хранилище выбранного драйвера.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.StoragePostgres:
		st, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StorageMemory:
		return memory.New(), nil
	default:
		st, err := mongo.New(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// setupMailer: SMTP при заданном хосте, иначе письма только логируются.
func setupMailer(cfg config.SMTPConfig, log *slog.Logger) (mailer.Sender, error) {
	if cfg.Host == "" {
		log.Warn("smtp_disabled_mail_logged_only")
		return mailer.Log{}, nil
	}

	smtp, err := mailer.NewSMTP(cfg)
	if err != nil {
		return nil, err
	}

	return smtp, nil
}

// setupLimiters: Redis-лимитеры при заданном redis.url, иначе in-process.
func setupLimiters(ctx context.Context, cfg *config.Config) (accesshttp.Limiters, func(), error) {
	rl := cfg.RateLimit

	rules := struct{ auth, upload, common ratelimit.Rule }{
		auth:   ratelimit.Rule{Name: "auth", Requests: rl.AuthRequests, Window: rl.AuthWindow, FailedOnly: true},
		upload: ratelimit.Rule{Name: "upload", Requests: rl.UploadRequests, Window: rl.UploadWindow},
		common: ratelimit.Rule{Name: "common", Requests: rl.CommonRequests, Window: rl.CommonWindow},
	}

	if cfg.Redis.URL == "" {
		return accesshttp.Limiters{
			Auth:   ratelimit.NewLocal(rules.auth),
			Upload: ratelimit.NewLocal(rules.upload),
			Common: ratelimit.NewLocal(rules.common),
		}, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return accesshttp.Limiters{}, nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		// Лимитер работает в режиме fail open: старт не блокируем.
		slog.Default().Warn("redis_ping_failed", slog.String("err", err.Error()))
	}

	limiters := accesshttp.Limiters{
		Auth:   ratelimit.NewRedis(client, cfg.Redis.Prefix, rules.auth),
		Upload: ratelimit.NewRedis(client, cfg.Redis.Prefix, rules.upload),
		Common: ratelimit.NewRedis(client, cfg.Redis.Prefix, rules.common),
	}

	return limiters, func() { _ = client.Close() }, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
