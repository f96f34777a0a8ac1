package scanner

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/oddsapi"
	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

// MetricsObserver expõe o progresso do scan como métricas Prometheus
type MetricsObserver struct {
	sportsScanned  prometheus.Counter
	sportsSkipped  prometheus.Counter
	events         prometheus.Counter
	eventsRejected prometheus.Counter
	opportunities  *prometheus.CounterVec
	margin         prometheus.Histogram
	requests       *prometheus.CounterVec
	quotaRemaining prometheus.Gauge
}

// NewMetricsObserver cria e registra as métricas do scanner
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	m := &MetricsObserver{
		sportsScanned:  prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_scanner_sports_scanned_total", Help: "esportes processados"}),
		sportsSkipped:  prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_scanner_sports_skipped_total", Help: "esportes pulados por payload inesperado"}),
		events:         prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_scanner_events_evaluated_total", Help: "eventos normalizados e avaliados"}),
		eventsRejected: prometheus.NewCounter(prometheus.CounterOpts{Name: "arb_scanner_events_rejected_total", Help: "eventos malformados descartados"}),
		opportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_scanner_opportunities_total",
			Help: "oportunidades detectadas por liga",
		}, []string{"league"}),
		margin: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_scanner_opportunity_margin",
			Help:    "margem (1 - probabilidade implícita total) das oportunidades",
			Buckets: []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.1, 0.2},
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_scanner_provider_requests_total",
			Help: "requisições ao fornecedor de odds por endpoint e resultado",
		}, []string{"endpoint", "outcome"}),
		quotaRemaining: prometheus.NewGauge(prometheus.GaugeOpts{Name: "arb_scanner_quota_remaining", Help: "cota restante informada pelo fornecedor"}),
	}
	reg.MustRegister(m.sportsScanned, m.sportsSkipped, m.events, m.eventsRejected, m.opportunities, m.margin, m.requests, m.quotaRemaining)
	return m
}

func (m *MetricsObserver) SportStarted(string) {}

func (m *MetricsObserver) SportSkipped(string, error) { m.sportsSkipped.Inc() }

func (m *MetricsObserver) SportDone(_ string, evaluated, _ int) {
	m.sportsScanned.Inc()
	m.events.Add(float64(evaluated))
}

func (m *MetricsObserver) EventRejected(string, string, error) { m.eventsRejected.Inc() }

func (m *MetricsObserver) OpportunityFound(opp arbitrage.Opportunity) {
	m.opportunities.WithLabelValues(opp.League).Inc()
	m.margin.Observe(opp.Margin())
}

// ObserveRequest é compatível com oddsapi.WithRequestHook
func (m *MetricsObserver) ObserveRequest(endpoint string, err error) {
	m.requests.WithLabelValues(endpoint, RequestOutcome(err)).Inc()
}

// SetQuotaRemaining atualiza o gauge de cota
func (m *MetricsObserver) SetQuotaRemaining(q oddsapi.Quota) {
	if q.Known {
		m.quotaRemaining.Set(float64(q.Remaining))
	}
}

// RequestOutcome classifica o erro de uma requisição para o label "outcome"
func RequestOutcome(err error) string {
	var (
		authErr *oddsapi.AuthenticationError
		rateErr *oddsapi.RateLimitError
		provErr *oddsapi.ProviderError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &rateErr):
		return "rate_limit"
	case errors.As(err, &provErr):
		return "provider"
	case errors.Is(err, oddsapi.ErrUnexpectedPayload):
		return "payload"
	default:
		return "transport"
	}
}
