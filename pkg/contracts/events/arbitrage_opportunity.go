package events

import "time"

// Evento publicado no tópico "arbitrage_opportunities"
type Leg struct {
	Outcome            string  `json:"outcome"`
	Bookmaker          string  `json:"bookmaker"`
	Price              float64 `json:"price"`               // odd decimal
	ImpliedProbability float64 `json:"implied_probability"` // 1/price
}

type ArbitrageOpportunity struct {
	OpportunityID           string    `json:"opportunity_id"`
	MatchName               string    `json:"match_name"`
	League                  string    `json:"league"`
	MatchStartTime          int64     `json:"match_start_time"` // unix seconds
	HoursToStart            float64   `json:"hours_to_start"`
	TotalImpliedProbability float64   `json:"total_implied_probability"`
	Margin                  float64   `json:"margin"` // 1 - total_implied_probability
	Legs                    []Leg     `json:"legs"`
	Region                  string    `json:"region"`
	DetectedAt              time.Time `json:"detected_at"`
	Source                  string    `json:"source"` // "the-odds-api" | "odds-api-simulator"
}

// Expired indica se a partida já começou
func (a ArbitrageOpportunity) Expired(now time.Time) bool {
	return a.MatchStartTime <= now.Unix()
}
