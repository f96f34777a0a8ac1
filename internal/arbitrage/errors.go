package arbitrage

import "errors"

var (
	// ErrMalformedEvent indica um evento sem a estrutura mínima de casas/mercados/resultados
	ErrMalformedEvent = errors.New("malformed event")
	// ErrInvalidCutoff indica margem fora do intervalo [0, 1)
	ErrInvalidCutoff = errors.New("cutoff must be in [0, 1)")
)
