package topics

const (
	// Arbitragem
	ArbitrageOpportunities = "arbitrage_opportunities"

	// DLQs
	ArbitrageOpportunitiesDLQ = "arbitrage_opportunities_dlq"

	// Redis Pub/Sub (arb-processor -> arb-service/ws)
	ArbitrageBroadcast = "arbitrage_broadcast"
)
