package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/oddsapi"
	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/publisher"
	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/scanner"
	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
	"github.com/radieske/sports-arb-scanner/internal/shared/config"
	sharedkafka "github.com/radieske/sports-arb-scanner/internal/shared/kafka"
	"github.com/radieske/sports-arb-scanner/internal/shared/logger"
	"github.com/radieske/sports-arb-scanner/internal/shared/metrics"
)

const source = "the-odds-api"

// opportunityPublisher é implementado pelo publisher Kafka
type opportunityPublisher interface {
	Publish(ctx context.Context, opp arbitrage.Opportunity) error
}

type app struct {
	log     *zap.Logger
	scanner *scanner.Scanner
	out     *printer
	pub     opportunityPublisher
}

// scanOnce percorre todos os esportes uma vez; retorna quantas oportunidades foram emitidas
func (a *app) scanOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n := 0
	for opp, err := range a.scanner.DetectOpportunities(ctx) {
		if err != nil {
			return n, err
		}
		n++
		if err := a.out.Print(opp); err != nil {
			a.log.Warn("print failed", zap.Error(err))
		}
		if a.pub != nil {
			if err := a.pub.Publish(ctx, opp); err != nil {
				a.log.Warn("publish failed", zap.String("opportunity_id", opp.ID), zap.Error(err))
			}
		}
	}
	a.log.Info("scan finished", zap.Int("opportunities", n), zap.Duration("took", time.Since(start)))
	return n, nil
}

// loop repete o scan a cada intervalo; só encerra em erro de autenticação ou cancelamento
func (a *app) loop(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := a.scanOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var authErr *oddsapi.AuthenticationError
			if errors.As(err, &authErr) {
				return err
			}
			a.log.Error("scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arb-scanner"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.ValidateScanner(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := scanner.NewMetricsObserver(prometheus.DefaultRegisterer)

	var client *oddsapi.Client
	client = oddsapi.NewClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey,
		oddsapi.WithLogger(log),
		oddsapi.WithQuotaFloor(cfg.QuotaFloor),
		oddsapi.WithRequestHook(func(endpoint string, err error) {
			m.ObserveRequest(endpoint, err)
			m.SetQuotaRemaining(client.Quota())
		}),
	)

	sc, err := scanner.New(client, scanner.Config{
		Region:     cfg.OddsRegion,
		OddsFormat: cfg.OddsFormat,
		Cutoff:     cfg.Cutoff,
		Workers:    cfg.ScanWorkers,
	},
		scanner.WithLogger(log),
		scanner.WithObserver(scanner.MultiObserver{scanner.LogObserver{Log: log}, m}),
	)
	if err != nil {
		log.Fatal("scanner init", zap.Error(err))
	}

	a := &app{log: log, scanner: sc, out: newPrinter(os.Stdout)}

	if cfg.KafkaEnabled {
		pub, err := publisher.NewKafkaPublisher(sharedkafka.Brokers(cfg.KafkaBrokers), cfg.TopicArbitrage, cfg.OddsRegion, source, log)
		if err != nil {
			log.Fatal("kafka publisher init", zap.Error(err))
		}
		defer pub.Close()
		a.pub = pub
		log.Info("publishing opportunities", zap.String("topic", cfg.TopicArbitrage))
	}

	// passada única: sem servidor de métricas, código de saída reflete o resultado
	if cfg.ScanInterval == 0 {
		if _, err := a.scanOnce(ctx); err != nil {
			log.Error("scan failed", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		return
	}

	srv := metrics.StartMetricsServer(cfg.MetricsPort, nil, log)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("arb-scanner started",
		zap.Duration("interval", cfg.ScanInterval),
		zap.Int("workers", cfg.ScanWorkers),
		zap.Float64("cutoff", cfg.Cutoff),
	)
	if err := a.loop(ctx, cfg.ScanInterval); err != nil && ctx.Err() == nil {
		log.Error("arb-scanner stopped with error", zap.Error(err))
		return
	}
	log.Info("arb-scanner stopped")
}
