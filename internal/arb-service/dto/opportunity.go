package dto

import (
	"time"

	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

// Leg representa a melhor odd de um resultado e a casa que a oferece
type Leg struct {
	Outcome   string  `json:"outcome"`
	Bookmaker string  `json:"bookmaker"`
	Price     float64 `json:"price"`
}

// Opportunity é a oportunidade exposta pela API REST
type Opportunity struct {
	OpportunityID           string    `json:"opportunityId"`
	League                  string    `json:"league"`
	MatchName               string    `json:"matchName"`
	MatchStartTime          int64     `json:"matchStartTime"`
	HoursToStart            float64   `json:"hoursToStart"`
	TotalImpliedProbability float64   `json:"totalImpliedProbability"`
	Margin                  float64   `json:"margin"`
	Legs                    []Leg     `json:"legs"`
	DetectedAt              time.Time `json:"detectedAt"`
}

// League resume quantas oportunidades abertas existem por liga
type League struct {
	League        string `json:"league"`
	Opportunities int    `json:"opportunities"`
}

// FromEvent converte o contrato do Kafka/Redis, recalculando as horas até o início
func FromEvent(e events.ArbitrageOpportunity, now time.Time) Opportunity {
	legs := make([]Leg, 0, len(e.Legs))
	for _, l := range e.Legs {
		legs = append(legs, Leg{Outcome: l.Outcome, Bookmaker: l.Bookmaker, Price: l.Price})
	}
	return Opportunity{
		OpportunityID:           e.OpportunityID,
		League:                  e.League,
		MatchName:               e.MatchName,
		MatchStartTime:          e.MatchStartTime,
		HoursToStart:            HoursToStart(e.MatchStartTime, now),
		TotalImpliedProbability: e.TotalImpliedProbability,
		Margin:                  e.Margin,
		Legs:                    legs,
		DetectedAt:              e.DetectedAt,
	}
}

func HoursToStart(start int64, now time.Time) float64 {
	return float64(start-now.Unix()) / 3600
}
