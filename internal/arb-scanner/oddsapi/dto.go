package oddsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

// sport é um item de GET /sports
type sport struct {
	Key    string `json:"key"`
	Group  string `json:"group"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// event é um item de GET /sports/{sport}/odds
type event struct {
	ID           string                `json:"id"`
	SportKey     string                `json:"sport_key"`
	HomeTeam     string                `json:"home_team"`
	AwayTeam     string                `json:"away_team"`
	CommenceTime *unixTime             `json:"commence_time"`
	Status       string                `json:"status"`
	Bookmakers   []arbitrage.Bookmaker `json:"bookmakers"`
}

func (e event) raw() arbitrage.RawEvent {
	out := arbitrage.RawEvent{
		SportKey:   e.SportKey,
		HomeTeam:   e.HomeTeam,
		AwayTeam:   e.AwayTeam,
		Status:     e.Status,
		Bookmakers: e.Bookmakers,
	}
	if e.CommenceTime != nil {
		ts := int64(*e.CommenceTime)
		out.CommenceTime = &ts
	}
	return out
}

// errorBody é o corpo de erro do fornecedor
type errorBody struct {
	Message string `json:"message"`
}

// unixTime aceita segundos unix (dateFormat=unix) ou string RFC3339 (padrão da API)
type unixTime int64

func (u *unixTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*u = unixTime(n)
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("commence_time: %w", err)
		}
		*u = unixTime(t.Unix())
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("commence_time: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("commence_time: %w", err)
	}
	*u = unixTime(int64(f))
	return nil
}
