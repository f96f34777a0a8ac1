package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	simulator "github.com/radieske/sports-arb-scanner/internal/odds-api-simulator"
	"github.com/radieske/sports-arb-scanner/internal/shared/config"
	"github.com/radieske/sports-arb-scanner/internal/shared/logger"
	"github.com/radieske/sports-arb-scanner/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "odds-api-simulator"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gen := simulator.NewGenerator(time.Now().UnixNano(), cfg.SimArbRate)
	s := simulator.NewServer(gen, cfg.OddsAPIKey, cfg.SimQuota, log, simulator.NewMetrics(prometheus.DefaultRegisterer))

	// ==== MUX PÚBLICO (HTTP principal): /v4/sports/...
	appMux := http.NewServeMux()
	s.Routes(appMux)

	// ==== Servidor de métricas (/healthz, /metrics)
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, log)

	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{Addr: publicAddr, Handler: appMux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("odds api simulator (public) running",
			zap.String("addr", publicAddr),
			zap.String("paths", "/v4/sports/,/v4/sports/{sport}/odds/"),
			zap.Float64("arb_rate", cfg.SimArbRate),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("public server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	_ = msrv.Shutdown(sctx)
	log.Info("odds api simulator stopped")
}
