package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/oddsapi"
	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

// Source é o colaborador que fornece o catálogo de esportes e os snapshots de odds
type Source interface {
	ListSports(ctx context.Context) ([]string, error)
	FetchOddsSnapshot(ctx context.Context, sportKey, region, oddsFormat string) ([]arbitrage.RawEvent, error)
}

// Config agrupa os parâmetros de um scan
type Config struct {
	Region     string  // ex: "eu"
	OddsFormat string  // ex: "decimal"
	Cutoff     float64 // margem mínima, [0, 1)
	Workers    int     // >1 busca snapshots em paralelo
}

// Scanner percorre todos os esportes e emite oportunidades de arbitragem
type Scanner struct {
	src  Source
	cfg  Config
	eval *arbitrage.Evaluator
	obs  Observer
	log  *zap.Logger
}

// Option configura o Scanner
type Option func(*Scanner)

func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.obs = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithClock troca o relógio usado no cálculo de hours_to_start
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.eval.Now = now }
}

// New valida a configuração e cria o Scanner
func New(src Source, cfg Config, opts ...Option) (*Scanner, error) {
	eval, err := arbitrage.NewEvaluator(cfg.Cutoff)
	if err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = "eu"
	}
	if cfg.OddsFormat == "" {
		cfg.OddsFormat = "decimal"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	s := &Scanner{src: src, cfg: cfg, eval: eval, obs: NopObserver{}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DetectOpportunities retorna uma sequência lazy de oportunidades.
//
// Esportes são processados em ordem alfabética. Payload inesperado pula o esporte;
// erros de autenticação, rate limit, fornecedor ou transporte são entregues uma
// única vez como (zero, err) e encerram a sequência. Interromper o range cancela
// as buscas pendentes.
func (s *Scanner) DetectOpportunities(ctx context.Context) iter.Seq2[arbitrage.Opportunity, error] {
	return func(yield func(arbitrage.Opportunity, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sports, err := s.src.ListSports(ctx)
		if err != nil {
			yield(arbitrage.Opportunity{}, fmt.Errorf("list sports: %w", err))
			return
		}
		sports = slices.Clone(sports)
		slices.Sort(sports)
		sports = slices.Compact(sports)

		s.log.Info("scan started",
			zap.Int("sports", len(sports)),
			zap.String("region", s.cfg.Region),
			zap.Float64("cutoff", s.cfg.Cutoff),
			zap.Int("workers", s.cfg.Workers),
		)

		next := s.snapshots(ctx, sports)
		for i, sport := range sports {
			s.obs.SportStarted(sport)

			events, err := next(i)
			if err != nil {
				if errors.Is(err, oddsapi.ErrUnexpectedPayload) {
					s.obs.SportSkipped(sport, err)
					continue
				}
				yield(arbitrage.Opportunity{}, fmt.Errorf("fetch odds for %s: %w", sport, err))
				return
			}

			if !s.scanSport(sport, events, yield) {
				return
			}
		}
	}
}

// scanSport roda normalizador -> agregador -> avaliador sobre um snapshot.
// Retorna false se o consumidor parou a iteração.
func (s *Scanner) scanSport(sport string, events []arbitrage.RawEvent, yield func(arbitrage.Opportunity, error) bool) bool {
	evaluated, found := 0, 0
	for ev := range arbitrage.Normalize(events) {
		evaluated++
		agg, err := arbitrage.Aggregate(ev)
		if err != nil {
			s.obs.EventRejected(sport, ev.MatchName(), err)
			continue
		}
		opp, ok := s.eval.Evaluate(agg)
		if !ok {
			continue
		}
		found++
		s.obs.OpportunityFound(opp)
		if !yield(opp, nil) {
			return false
		}
	}
	s.obs.SportDone(sport, evaluated, found)
	return true
}

type snapshot struct {
	events []arbitrage.RawEvent
	err    error
}

// snapshots devolve uma função que entrega o snapshot do i-ésimo esporte.
// Com um worker a busca acontece sob demanda; com mais, um pool limitado
// pré-busca os snapshots mantendo a ordem de entrega.
func (s *Scanner) snapshots(ctx context.Context, sports []string) func(i int) ([]arbitrage.RawEvent, error) {
	if s.cfg.Workers <= 1 {
		return func(i int) ([]arbitrage.RawEvent, error) {
			return s.src.FetchOddsSnapshot(ctx, sports[i], s.cfg.Region, s.cfg.OddsFormat)
		}
	}

	results := make([]chan snapshot, len(sports))
	for i := range results {
		results[i] = make(chan snapshot, 1)
	}

	// erro fatal de menor índice: esportes posteriores ainda não iniciados não gastam cota
	var (
		mu       sync.Mutex
		fatal    error
		fatalIdx int
	)

	go func() {
		var g errgroup.Group
		g.SetLimit(s.cfg.Workers)
		for i, sport := range sports {
			g.Go(func() error {
				mu.Lock()
				var ferr error
				if fatal != nil && i > fatalIdx {
					ferr = fatal
				}
				mu.Unlock()
				if ferr != nil {
					results[i] <- snapshot{err: ferr}
					return nil
				}
				if err := ctx.Err(); err != nil {
					results[i] <- snapshot{err: err}
					return nil
				}

				events, err := s.src.FetchOddsSnapshot(ctx, sport, s.cfg.Region, s.cfg.OddsFormat)
				if err != nil && !errors.Is(err, oddsapi.ErrUnexpectedPayload) {
					mu.Lock()
					if fatal == nil || i < fatalIdx {
						fatal, fatalIdx = err, i
					}
					mu.Unlock()
				}
				results[i] <- snapshot{events: events, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return func(i int) ([]arbitrage.RawEvent, error) {
		select {
		case r := <-results[i]:
			return r.events, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
