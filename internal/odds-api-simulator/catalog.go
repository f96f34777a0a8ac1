package simulator

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Sport é um item do catálogo servido em GET /v4/sports/
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

type fixture struct {
	id         string
	home, away string
	offset     time.Duration // início relativo ao "agora" do simulador
}

type league struct {
	sport    Sport
	draw     bool
	fixtures []fixture
}

// Catálogo fixo de ligas e partidas simuladas
var defaultLeagues = []league{
	{
		sport: Sport{Key: "soccer_epl", Group: "Soccer", Title: "EPL", Description: "English Premier League", Active: true},
		draw:  true,
		fixtures: []fixture{
			{"epl-001", "Arsenal", "Chelsea", 2 * time.Hour},
			{"epl-002", "Liverpool", "Manchester City", 26 * time.Hour},
			{"epl-003", "Tottenham Hotspur", "Newcastle United", 50 * time.Hour},
		},
	},
	{
		sport: Sport{Key: "basketball_nba", Group: "Basketball", Title: "NBA", Description: "US Basketball", Active: true},
		fixtures: []fixture{
			{"nba-001", "Boston Celtics", "Los Angeles Lakers", 5 * time.Hour},
			{"nba-002", "Denver Nuggets", "Miami Heat", 29 * time.Hour},
		},
	},
	{
		sport: Sport{Key: "tennis_atp_us_open", Group: "Tennis", Title: "ATP US Open", Description: "Men's Singles", Active: true},
		fixtures: []fixture{
			{"atp-001", "Carlos Alcaraz", "Jannik Sinner", 3 * time.Hour},
			{"atp-002", "Novak Djokovic", "Alexander Zverev", 27 * time.Hour},
		},
	},
}

var defaultBookmakers = []string{"Unibet", "Betfair", "Pinnacle", "William Hill", "Marathon Bet"}

// Margem embutida pelas casas e ruído aplicado por casa
const (
	overround = 1.05
	noise     = 0.02
	arbBook   = 0.90 // probabilidade implícita total quando uma arbitragem é injetada
)

// Generator produz snapshots de odds com arbitragens injetadas numa taxa configurável
type Generator struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	arbRate float64
	leagues []league
	books   []string
}

func NewGenerator(seed int64, arbRate float64) *Generator {
	return &Generator{
		rnd:     rand.New(rand.NewSource(seed)),
		arbRate: arbRate,
		leagues: defaultLeagues,
		books:   defaultBookmakers,
	}
}

// Sports lista as ligas do catálogo
func (g *Generator) Sports() []Sport {
	out := make([]Sport, 0, len(g.leagues))
	for _, l := range g.leagues {
		out = append(out, l.sport)
	}
	return out
}

func (g *Generator) league(key string) (league, bool) {
	for _, l := range g.leagues {
		if l.sport.Key == key {
			return l, true
		}
	}
	return league{}, false
}

// Snapshot gera as odds atuais de uma liga; ok=false se a liga não existe
func (g *Generator) Snapshot(sportKey string, now time.Time) ([]Event, bool) {
	l, ok := g.league(sportKey)
	if !ok {
		return nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Event, 0, len(l.fixtures))
	for _, f := range l.fixtures {
		names := []string{f.home, f.away}
		if l.draw {
			names = append(names, "Draw")
		}
		out = append(out, Event{
			ID:           f.id,
			SportKey:     l.sport.Key,
			SportTitle:   l.sport.Title,
			CommenceTime: Timestamp{Time: now.Add(f.offset).Truncate(time.Minute)},
			HomeTeam:     f.home,
			AwayTeam:     f.away,
			Status:       "upcoming",
			Bookmakers:   g.price(names, now),
		})
	}
	return out, true
}

// price sorteia probabilidades justas e monta as cotações de cada casa
func (g *Generator) price(names []string, now time.Time) []Bookmaker {
	fair := make([]float64, len(names))
	var sum float64
	for i := range fair {
		fair[i] = 0.5 + g.rnd.Float64()
		sum += fair[i]
	}
	for i := range fair {
		fair[i] /= sum
	}

	books := make([]Bookmaker, 0, len(g.books))
	for _, title := range g.books {
		outs := make([]Outcome, 0, len(names))
		for i, n := range names {
			margin := overround + (g.rnd.Float64()*2-1)*noise
			outs = append(outs, Outcome{Name: n, Price: round2(1 / (fair[i] * margin))})
		}
		books = append(books, Bookmaker{
			Key:        key(title),
			Title:      title,
			LastUpdate: Timestamp{Time: now},
			Markets:    []Market{{Key: "h2h", LastUpdate: Timestamp{Time: now}, Outcomes: outs}},
		})
	}

	// injeta a arbitragem: cada resultado ganha uma casa (distinta quando possível) com odd inflada
	if g.rnd.Float64() < g.arbRate {
		perm := g.rnd.Perm(len(books))
		for i, n := range names {
			b := &books[perm[i%len(perm)]]
			b.Markets[0].Outcomes[i] = Outcome{Name: n, Price: round2(1/(fair[i]*arbBook)) + 0.01}
		}
	}
	return books
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func key(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "_")
}
