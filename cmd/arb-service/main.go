package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arb-service/cache"
	httpapi "github.com/radieske/sports-arb-scanner/internal/arb-service/http"
	"github.com/radieske/sports-arb-scanner/internal/arb-service/repo"
	"github.com/radieske/sports-arb-scanner/internal/arb-service/ws"
	sharedcache "github.com/radieske/sports-arb-scanner/internal/shared/cache"
	"github.com/radieske/sports-arb-scanner/internal/shared/config"
	"github.com/radieske/sports-arb-scanner/internal/shared/db"
	"github.com/radieske/sports-arb-scanner/internal/shared/logger"
	"github.com/radieske/sports-arb-scanner/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arb-service"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// conecta com db Postgres
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	// conecta com cache Redis
	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	wsDelivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_service_ws_messages_sent_total",
		Help: "Oportunidades entregues a clientes WebSocket",
	})
	prometheus.MustRegister(wsDelivered)

	// hub WebSocket alimentado pelo Pub/Sub do arb-processor
	allowAll := slices.Contains(cfg.CORSOrigins, "*")
	hub := ws.NewHub(func(r *http.Request) bool {
		return allowAll || slices.Contains(cfg.CORSOrigins, r.Header.Get("Origin"))
	}, log)
	hub.OnBroadcast = func(n int) { wsDelivered.Add(float64(n)) }
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := &httpapi.API{
		ReadRepo: &repo.ReadRepo{DB: pg},
		Cache:    cache.New(redisClient),
		Log:      log,
	}
	srv := httpapi.NewServer(cfg.HTTPPort, httpapi.NewRouter(api, hub.HandleWS, cfg.CORSOrigins))

	// sobe servidor de métricas e health
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.Checks(
		pg.PingContext,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	), log)

	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	_ = msrv.Shutdown(sctx)
	log.Info("arb-service stopped")
}
