package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/sports-arb-scanner/internal/arb-processor/cache"
	"github.com/radieske/sports-arb-scanner/internal/arb-processor/consumer"
	"github.com/radieske/sports-arb-scanner/internal/arb-processor/pubsub"
	"github.com/radieske/sports-arb-scanner/internal/arb-processor/repository"
	sharedcache "github.com/radieske/sports-arb-scanner/internal/shared/cache"
	"github.com/radieske/sports-arb-scanner/internal/shared/config"
	"github.com/radieske/sports-arb-scanner/internal/shared/db"
	sharedkafka "github.com/radieske/sports-arb-scanner/internal/shared/kafka"
	"github.com/radieske/sports-arb-scanner/internal/shared/logger"
	"github.com/radieske/sports-arb-scanner/internal/shared/metrics"
	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

const groupID = "arb-processor"

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arb-processor-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.RunMigrations(ctx, pg); err != nil {
		log.Fatal("postgres migrations", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Instancia cache Redis e repositório Postgres para oportunidades
	rcache := cache.NewRedisCache(redisClient, cfg.OpportunityTTL)
	repo := repository.NewPostgresRepo(pg)

	// Configura o consumer Kafka (consumer group arb-processor) e o writer do DLQ
	reader := sharedkafka.NewReader(cfg.KafkaBrokers, cfg.TopicArbitrage, groupID)
	defer reader.Close()
	dlq := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicArbitrageDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_proc_messages_consumed_total", Help: "mensagens consumidas"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_proc_cache_sets_total", Help: "sets no cache"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_proc_db_writes_total", Help: "upserts em arbitrage_current"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_proc_expired_total", Help: "oportunidades descartadas porque a partida já começou"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arb_proc_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, cached, persist, expired, errorsBy)

	// Broadcaster para publicar oportunidades no Redis Pub/Sub (usado pelo arb-service/ws)
	broadcaster := pubsub.NewRedisBroadcaster(redisClient)

	// Instancia o processor, conectando callbacks de métricas e broadcast
	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Repo:       repo,
		Cache:      rcache,
		DLQ:        dlq,
		OnConsumed: func() { consumed.Inc() },
		OnCached:   func() { cached.Inc() },
		OnPersist:  func() { persist.Inc() },
		OnExpired:  func() { expired.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },

		// Após sucesso de persistência, envia a oportunidade para o WebSocket via Redis Pub/Sub
		OnAfterPersist: func(ev events.ArbitrageOpportunity) {
			msg := pubsub.WSUpdate{League: ev.League, OpportunityID: ev.OpportunityID, Payload: ev}
			b, err := json.Marshal(msg)
			if err != nil {
				log.Warn("ws broadcast marshal failed", zap.Error(err))
				return
			}

			bctx, bcancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer bcancel()

			if err := broadcaster.Publish(bctx, cfg.RedisPubSubChannel, b); err != nil {
				log.Warn("ws broadcast publish failed", zap.Error(err))
			}
		},
	}

	// Servidor HTTP para métricas e health check
	srv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.Checks(
		pg.PingContext,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	), log)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("arb-processor started", zap.String("topic", cfg.TopicArbitrage), zap.String("group", groupID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return proc.Run(gctx) })
	g.Go(func() error { return proc.Sweep(gctx, cfg.SweepInterval) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
		return
	}
	log.Info("arb-processor stopped")
}
