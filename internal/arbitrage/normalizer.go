package arbitrage

import (
	"iter"
	"strings"
)

// Status aceitos para eventos que ainda não começaram
const (
	StatusUpcoming = "upcoming"
	StatusPreMatch = "pre-match"
)

// Normalize filtra os eventos brutos, mantendo apenas os que têm horário de início
// e status "upcoming"/"pre-match" (case-insensitive). A sequência é lazy e preserva
// a ordem de entrada. Casas e mercados não são validados aqui.
func Normalize(events []RawEvent) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, raw := range events {
			ev, ok := NormalizeEvent(raw)
			if !ok {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// NormalizeEvent aplica o filtro a um único evento
func NormalizeEvent(raw RawEvent) (Event, bool) {
	if raw.CommenceTime == nil {
		return Event{}, false
	}
	switch strings.ToLower(raw.Status) {
	case StatusUpcoming, StatusPreMatch:
	default:
		return Event{}, false
	}
	return Event{
		SportKey:     raw.SportKey,
		HomeTeam:     raw.HomeTeam,
		AwayTeam:     raw.AwayTeam,
		CommenceTime: *raw.CommenceTime,
		Status:       raw.Status,
		Bookmakers:   raw.Bookmakers,
	}, true
}
