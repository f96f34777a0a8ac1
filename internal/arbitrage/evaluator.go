package arbitrage

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// opportunityNamespace gera IDs determinísticos (UUIDv5) por partida
var opportunityNamespace = uuid.MustParse("6f1c7b52-4d0e-4f3a-9a59-2b8f0e6c1d34")

// Evaluator aplica o teste de arbitragem sobre as melhores odds de um evento
type Evaluator struct {
	Cutoff float64          // margem mínima exigida abaixo de 1
	Now    func() time.Time // relógio usado para hours_to_start
}

// NewEvaluator valida a margem e usa o relógio do sistema
func NewEvaluator(cutoff float64) (*Evaluator, error) {
	if !(cutoff >= 0 && cutoff < 1) {
		return nil, ErrInvalidCutoff
	}
	return &Evaluator{Cutoff: cutoff, Now: time.Now}, nil
}

// Threshold é o limite superior (exclusivo) da probabilidade implícita total
func (e *Evaluator) Threshold() float64 {
	return 1 - e.Cutoff
}

// Evaluate emite uma oportunidade se 0 < Σ 1/price < 1 - cutoff
func (e *Evaluator) Evaluate(agg Aggregation) (Opportunity, bool) {
	total := agg.BestOdds.TotalImpliedProbability()
	if !(total > 0 && total < e.Threshold()) {
		return Opportunity{}, false
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	hours := float64(agg.MatchStartTime-now().Unix()) / 3600

	return Opportunity{
		ID:                      OpportunityID(agg.League, agg.MatchName, agg.MatchStartTime),
		MatchName:               agg.MatchName,
		MatchStartTime:          agg.MatchStartTime,
		HoursToStart:            hours,
		League:                  agg.League,
		BestOutcomeOdds:         agg.BestOdds,
		TotalImpliedProbability: total,
	}, true
}

// OpportunityID deriva o identificador estável de uma partida
func OpportunityID(league, matchName string, start int64) string {
	name := league + "|" + matchName + "|" + strconv.FormatInt(start, 10)
	return uuid.NewSHA1(opportunityNamespace, []byte(name)).String()
}
