package scanner

import (
	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

// Observer recebe notificações de progresso do scan.
// As chamadas acontecem na goroutine do consumidor da sequência.
type Observer interface {
	SportStarted(sport string)
	SportSkipped(sport string, err error)
	SportDone(sport string, evaluated, opportunities int)
	EventRejected(sport, match string, err error)
	OpportunityFound(opp arbitrage.Opportunity)
}

// NopObserver ignora todas as notificações
type NopObserver struct{}

func (NopObserver) SportStarted(string) {}
func (NopObserver) SportSkipped(string, error) {}
func (NopObserver) SportDone(string, int, int) {}
func (NopObserver) EventRejected(string, string, error) {}
func (NopObserver) OpportunityFound(arbitrage.Opportunity) {}

// MultiObserver repassa cada notificação para todos os observers
type MultiObserver []Observer

func (m MultiObserver) SportStarted(sport string) {
	for _, o := range m {
		o.SportStarted(sport)
	}
}

func (m MultiObserver) SportSkipped(sport string, err error) {
	for _, o := range m {
		o.SportSkipped(sport, err)
	}
}

func (m MultiObserver) SportDone(sport string, evaluated, opportunities int) {
	for _, o := range m {
		o.SportDone(sport, evaluated, opportunities)
	}
}

func (m MultiObserver) EventRejected(sport, match string, err error) {
	for _, o := range m {
		o.EventRejected(sport, match, err)
	}
}

func (m MultiObserver) OpportunityFound(opp arbitrage.Opportunity) {
	for _, o := range m {
		o.OpportunityFound(opp)
	}
}

// LogObserver registra o progresso no logger estruturado
type LogObserver struct {
	Log *zap.Logger
}

func (l LogObserver) SportStarted(sport string) {
	l.Log.Debug("scanning sport", zap.String("sport", sport))
}

func (l LogObserver) SportSkipped(sport string, err error) {
	l.Log.Warn("sport skipped", zap.String("sport", sport), zap.Error(err))
}

func (l LogObserver) SportDone(sport string, evaluated, opportunities int) {
	l.Log.Info("sport scanned",
		zap.String("sport", sport),
		zap.Int("events", evaluated),
		zap.Int("opportunities", opportunities),
	)
}

func (l LogObserver) EventRejected(sport, match string, err error) {
	l.Log.Warn("event rejected",
		zap.String("sport", sport),
		zap.String("match", match),
		zap.Error(err),
	)
}

func (l LogObserver) OpportunityFound(opp arbitrage.Opportunity) {
	l.Log.Info("arbitrage opportunity",
		zap.String("id", opp.ID),
		zap.String("league", opp.League),
		zap.String("match", opp.MatchName),
		zap.Float64("total_implied_probability", opp.TotalImpliedProbability),
		zap.Float64("hours_to_start", opp.HoursToStart),
	)
}
