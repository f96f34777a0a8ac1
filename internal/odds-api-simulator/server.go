package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var validRegions = map[string]bool{"us": true, "us2": true, "uk": true, "eu": true, "au": true}

// Metrics agrupa os contadores do simulador
type Metrics struct {
	requests *prometheus.CounterVec
	quota    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odds_sim_requests_total",
			Help: "Requisições recebidas pelo simulador por endpoint e status",
		}, []string{"endpoint", "status"}),
		quota: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odds_sim_quota_remaining",
			Help: "Cota restante simulada",
		}),
	}
	reg.MustRegister(m.requests, m.quota)
	return m
}

// Server imita a API v4 do fornecedor de odds
// APIKey vazio aceita qualquer chave; Quota <= 0 desativa o limite
type Server struct {
	Gen     *Generator
	APIKey  string
	Log     *zap.Logger
	Metrics *Metrics
	Now     func() time.Time

	mu        sync.Mutex
	remaining int
	used      int
	limited   bool
}

func NewServer(gen *Generator, apiKey string, quota int, log *zap.Logger, m *Metrics) *Server {
	s := &Server{Gen: gen, APIKey: apiKey, Log: log, Metrics: m, Now: time.Now, remaining: quota, limited: quota > 0}
	if m != nil && s.limited {
		m.quota.Set(float64(quota))
	}
	return s
}

// Routes registra os endpoints públicos no mux
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v4/sports/{$}", s.listSports)
	mux.HandleFunc("GET /v4/sports/{sport}/odds/{$}", s.odds)
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
	if s.Metrics != nil {
		s.Metrics.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

func (s *Server) authorized(r *http.Request) bool {
	return s.APIKey == "" || r.URL.Query().Get("apiKey") == s.APIKey
}

// charge consome uma unidade da cota e escreve os headers de uso
func (s *Server) charge(w http.ResponseWriter, cost int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limited && s.remaining < cost {
		w.Header().Set("x-requests-remaining", strconv.Itoa(s.remaining))
		w.Header().Set("x-requests-used", strconv.Itoa(s.used))
		return false
	}
	s.used += cost
	if s.limited {
		s.remaining -= cost
		w.Header().Set("x-requests-remaining", strconv.Itoa(s.remaining))
		if s.Metrics != nil {
			s.Metrics.quota.Set(float64(s.remaining))
		}
	}
	w.Header().Set("x-requests-used", strconv.Itoa(s.used))
	w.Header().Set("x-requests-last", strconv.Itoa(cost))
	return true
}

// listSports não consome cota, como no fornecedor real
func (s *Server) listSports(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.writeJSON(w, "sports", http.StatusUnauthorized, errorBody{Message: "API key is not valid"})
		return
	}
	s.writeJSON(w, "sports", http.StatusOK, s.Gen.Sports())
}

func (s *Server) odds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !s.authorized(r) {
		s.writeJSON(w, "odds", http.StatusUnauthorized, errorBody{Message: "API key is not valid"})
		return
	}
	if !validRegions[q.Get("regions")] {
		s.writeJSON(w, "odds", http.StatusUnprocessableEntity, errorBody{Message: "Invalid regions parameter"})
		return
	}
	if f := q.Get("oddsFormat"); f != "" && f != "decimal" {
		s.writeJSON(w, "odds", http.StatusUnprocessableEntity, errorBody{Message: "Only decimal oddsFormat is simulated"})
		return
	}
	dateFormat := q.Get("dateFormat")
	if dateFormat != "" && dateFormat != "iso" && dateFormat != "unix" {
		s.writeJSON(w, "odds", http.StatusUnprocessableEntity, errorBody{Message: "Invalid dateFormat parameter"})
		return
	}

	sport := r.PathValue("sport")
	evs, ok := s.Gen.Snapshot(sport, s.Now())
	if !ok {
		s.writeJSON(w, "odds", http.StatusNotFound, errorBody{Message: "Unknown sport"})
		return
	}
	if !s.charge(w, 1) {
		s.writeJSON(w, "odds", http.StatusTooManyRequests, errorBody{Message: "Usage quota has been reached"})
		return
	}
	if dateFormat == "unix" {
		withUnixDates(evs)
	}

	s.Log.Debug("odds snapshot served", zap.String("sport", sport), zap.Int("events", len(evs)))
	s.writeJSON(w, "odds", http.StatusOK, evs)
}
