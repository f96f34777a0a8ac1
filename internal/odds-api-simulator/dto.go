package simulator

import (
	"strconv"
	"time"
)

// Timestamp serializa como RFC3339 (dateFormat=iso) ou segundos unix (dateFormat=unix)
type Timestamp struct {
	time.Time
	AsUnix bool
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.AsUnix {
		return strconv.AppendInt(nil, t.Unix(), 10), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Market struct {
	Key        string    `json:"key"`
	LastUpdate Timestamp `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate Timestamp `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Event segue o formato de GET /v4/sports/{sport}/odds/
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime Timestamp   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Status       string      `json:"status"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// withUnixDates marca todos os timestamps do snapshot para saída unix
func withUnixDates(evs []Event) {
	for i := range evs {
		evs[i].CommenceTime.AsUnix = true
		for j := range evs[i].Bookmakers {
			b := &evs[i].Bookmakers[j]
			b.LastUpdate.AsUnix = true
			for k := range b.Markets {
				b.Markets[k].LastUpdate.AsUnix = true
			}
		}
	}
}

type errorBody struct {
	Message string `json:"message"`
}
