package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/sports-arb-scanner/internal/shared/kafka"
	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo processor
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Store interface {
	UpsertCurrent(ctx context.Context, e events.ArbitrageOpportunity) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Cache interface {
	SetCurrent(ctx context.Context, e events.ArbitrageOpportunity, now time.Time) error
}

var errInvalidEvent = errors.New("invalid arbitrage event")

// Processor consome oportunidades do Kafka, faz cache e persiste no banco
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   Store
	Cache  Cache
	DLQ    MessageWriter // opcional; mensagens inválidas ou não persistidas vão pra cá
	Now    func() time.Time

	OnConsumed     func()       // métricas (counter++)
	OnCached       func()       // métricas
	OnPersist      func()       // métricas
	OnExpired      func()       // métricas: partida já começou ao consumir
	OnError        func(string) // métricas por fase
	OnAfterPersist func(events.ArbitrageOpportunity)
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// Run inicia o loop principal de consumo; o offset só é commitado depois do processamento
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed() // callback de métrica: mensagem consumida
		}

		p.Handle(ctx, m)

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

// Handle processa uma única mensagem; falhas terminais vão para o DLQ
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	ev, err := decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode", err)
		return
	}

	if ev.Expired(p.now()) {
		if p.OnExpired != nil {
			p.OnExpired()
		}
		p.Log.Debug("skipping started match", zap.String("opportunity_id", ev.OpportunityID))
		return
	}

	// Atualiza cache Redis com a oportunidade atual
	if err := p.Cache.SetCurrent(ctx, ev, p.now()); err != nil {
		p.Log.Warn("redis set failed", zap.Error(err))
		p.fail("cache")
		// não bloqueia persistência se falhar o cache
	} else if p.OnCached != nil {
		p.OnCached() // callback de métrica: cache atualizado
	}

	// Persiste/atualiza a visão corrente no Postgres
	if err := p.Repo.UpsertCurrent(ctx, ev); err != nil {
		p.Log.Warn("db upsert failed", zap.Error(err))
		p.fail("db_upsert")
		p.deadLetter(ctx, m, "db_upsert", err)
		return
	}
	if p.OnPersist != nil {
		p.OnPersist() // callback de métrica: persistência concluída
	}
	if p.OnAfterPersist != nil {
		p.OnAfterPersist(ev)
	}
}

// Sweep remove periodicamente as partidas iniciadas até o contexto ser cancelado; every <= 0 desativa
func (p *Processor) Sweep(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			n, err := p.Repo.DeleteExpired(ctx, p.now())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.Log.Warn("db delete expired failed", zap.Error(err))
				p.fail("db_sweep")
				continue
			}
			if n > 0 {
				p.Log.Info("expired opportunities removed", zap.Int64("rows", n))
			}
		}
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, sharedkafka.DeadLetter(m, stage, cause)); err != nil {
		p.Log.Error("dlq publish failed", zap.String("stage", stage), zap.Error(err))
		p.fail("dlq")
	}
}

func decode(b []byte) (events.ArbitrageOpportunity, error) {
	var ev events.ArbitrageOpportunity
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, err
	}
	if ev.OpportunityID == "" || ev.League == "" || len(ev.Legs) == 0 {
		return ev, fmt.Errorf("%w: missing id, league or legs", errInvalidEvent)
	}
	return ev, nil
}
