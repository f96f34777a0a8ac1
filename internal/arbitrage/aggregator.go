package arbitrage

import "fmt"

// Aggregate escolhe, para cada resultado, a maior odd entre as casas do evento.
// Só o primeiro mercado de cada casa é lido; em empate a primeira casa é mantida.
//
// Eventos sem casas, casas sem mercados, mercados sem o campo outcomes ou odds
// não positivas retornam erro que embrulha ErrMalformedEvent.
func Aggregate(ev Event) (Aggregation, error) {
	if len(ev.Bookmakers) == 0 {
		return Aggregation{}, fmt.Errorf("%w: %s has no bookmakers", ErrMalformedEvent, ev.MatchName())
	}

	var best BestOdds
	for _, bk := range ev.Bookmakers {
		if len(bk.Markets) == 0 {
			return Aggregation{}, fmt.Errorf("%w: bookmaker %q has no markets", ErrMalformedEvent, bk.Title)
		}
		outcomes := bk.Markets[0].Outcomes
		if outcomes == nil {
			return Aggregation{}, fmt.Errorf("%w: bookmaker %q market has no outcomes", ErrMalformedEvent, bk.Title)
		}
		for _, o := range outcomes {
			if !(o.Price > 0) {
				return Aggregation{}, fmt.Errorf("%w: bookmaker %q quotes %q at %v", ErrMalformedEvent, bk.Title, o.Name, o.Price)
			}
			best.offer(o.Name, bk.Title, o.Price)
		}
	}

	return Aggregation{
		MatchName:      ev.MatchName(),
		MatchStartTime: ev.CommenceTime,
		League:         ev.SportKey,
		BestOdds:       best,
	}, nil
}
