package arbitrage

import "encoding/json"

// Outcome representa a cotação de um resultado (ex: "Home") em odds decimais
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Market representa um mercado de aposta oferecido por uma casa
// Outcomes nil indica que o campo não veio no payload
type Market struct {
	Key      string    `json:"key,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
}

// Bookmaker representa as cotações de uma casa de apostas para um evento.
// Apenas o primeiro mercado listado é considerado.
type Bookmaker struct {
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// RawEvent é o evento como recebido do fornecedor de odds
type RawEvent struct {
	SportKey     string      `json:"sport_key"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	CommenceTime *int64      `json:"commence_time,omitempty"` // unix seconds; nil = ausente
	Status       string      `json:"status,omitempty"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Event é um RawEvent que passou pelo filtro de status/horário
type Event struct {
	SportKey     string
	HomeTeam     string
	AwayTeam     string
	CommenceTime int64
	Status       string
	Bookmakers   []Bookmaker
}

// MatchName formata o nome da partida no padrão "{home} v. {away}"
func (e Event) MatchName() string {
	return e.HomeTeam + " v. " + e.AwayTeam
}

// Quote é a melhor cotação encontrada para um resultado
type Quote struct {
	Outcome   string  `json:"outcome"`
	Bookmaker string  `json:"bookmaker"`
	Price     float64 `json:"price"`
}

// BestOdds mapeia cada resultado para a melhor cotação entre as casas.
// Mantém a ordem em que os resultados apareceram pela primeira vez.
type BestOdds struct {
	quotes []Quote
	index  map[string]int
}

// Len retorna o número de resultados distintos
func (b BestOdds) Len() int { return len(b.quotes) }

// Get retorna a melhor cotação de um resultado
func (b BestOdds) Get(outcome string) (Quote, bool) {
	i, ok := b.index[outcome]
	if !ok {
		return Quote{}, false
	}
	return b.quotes[i], true
}

// Quotes retorna uma cópia das cotações na ordem de primeira aparição
func (b BestOdds) Quotes() []Quote {
	out := make([]Quote, len(b.quotes))
	copy(out, b.quotes)
	return out
}

// offer registra uma cotação, mantendo a maior. Empate preserva a primeira casa.
func (b *BestOdds) offer(outcome, bookmaker string, price float64) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	i, ok := b.index[outcome]
	if !ok {
		b.index[outcome] = len(b.quotes)
		b.quotes = append(b.quotes, Quote{Outcome: outcome, Bookmaker: bookmaker, Price: price})
		return
	}
	if price > b.quotes[i].Price {
		b.quotes[i].Bookmaker = bookmaker
		b.quotes[i].Price = price
	}
}

// TotalImpliedProbability soma 1/price de todas as melhores cotações
func (b BestOdds) TotalImpliedProbability() float64 {
	var total float64
	for _, q := range b.quotes {
		total += 1 / q.Price
	}
	return total
}

// MarshalJSON serializa como objeto resultado -> {bookmaker, price}
func (b BestOdds) MarshalJSON() ([]byte, error) {
	type entry struct {
		Bookmaker string  `json:"bookmaker"`
		Price     float64 `json:"price"`
	}
	m := make(map[string]entry, len(b.quotes))
	for _, q := range b.quotes {
		m[q.Outcome] = entry{Bookmaker: q.Bookmaker, Price: q.Price}
	}
	return json.Marshal(m)
}

// Aggregation é a saída do agregador: melhores odds mais metadados do evento
type Aggregation struct {
	MatchName      string
	MatchStartTime int64
	League         string
	BestOdds       BestOdds
}

// Opportunity representa uma oportunidade de arbitragem detectada
type Opportunity struct {
	ID                      string   `json:"id"`
	MatchName               string   `json:"match_name"`
	MatchStartTime          int64    `json:"match_start_time"`
	HoursToStart            float64  `json:"hours_to_start"`
	League                  string   `json:"league"`
	BestOutcomeOdds         BestOdds `json:"best_outcome_odds"`
	TotalImpliedProbability float64  `json:"total_implied_probability"`
}

// Margin é o lucro garantido por unidade apostada (1 - probabilidade total)
func (o Opportunity) Margin() float64 {
	return 1 - o.TotalImpliedProbability
}
