package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arb-service/dto"
	"github.com/radieske/sports-arb-scanner/internal/arb-service/repo"
	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// ReadRepo é o acesso de leitura ao Postgres
type ReadRepo interface {
	ListOpportunities(ctx context.Context, f repo.Filter, now time.Time) ([]dto.Opportunity, error)
	GetOpportunity(ctx context.Context, id string, now time.Time) (dto.Opportunity, error)
	ListLeagues(ctx context.Context, now time.Time) ([]dto.League, error)
}

// Cache é a leitura do Redis mantido pelo arb-processor
type Cache interface {
	GetOpportunity(ctx context.Context, id string) (events.ArbitrageOpportunity, bool, error)
}

// API expõe os endpoints REST de consulta das oportunidades de arbitragem
// Utiliza um repositório de leitura (Postgres) e cache (Redis)
type API struct {
	ReadRepo ReadRepo // acesso ao banco de dados
	Cache    Cache    // cache das oportunidades correntes
	Log      *zap.Logger
	Now      func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Routes registra os endpoints REST no roteador
func (a *API) Routes(r chi.Router) {
	r.Get("/v1/opportunities", a.listOpportunities)   // Lista oportunidades abertas
	r.Get("/v1/opportunities/{id}", a.getOpportunity) // Detalhe de uma oportunidade
	r.Get("/v1/leagues", a.listLeagues)               // Ligas com oportunidades abertas
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) internalError(w http.ResponseWriter, op string, err error) {
	a.Log.Error("request failed", zap.String("op", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// parseFilter lê league, min_margin e limit da query string
func parseFilter(r *http.Request) (repo.Filter, error) {
	q := r.URL.Query()
	f := repo.Filter{League: q.Get("league"), Limit: defaultLimit}

	if v := q.Get("min_margin"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || m < 0 || m >= 1 {
			return f, errors.New("min_margin must be a number in [0, 1)")
		}
		f.MinMargin = m
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = min(n, maxLimit)
	}
	return f, nil
}

// listOpportunities retorna as oportunidades abertas, maior margem primeiro
func (a *API) listOpportunities(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ops, err := a.ReadRepo.ListOpportunities(r.Context(), f, a.now())
	if err != nil {
		a.internalError(w, "list_opportunities", err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// getOpportunity retorna uma oportunidade, preferencialmente do cache
func (a *API) getOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	now := a.now()

	if ev, ok, err := a.Cache.GetOpportunity(r.Context(), id); err != nil {
		a.Log.Warn("cache read failed", zap.String("opportunity_id", id), zap.Error(err))
	} else if ok && !ev.Expired(now) {
		writeJSON(w, http.StatusOK, dto.FromEvent(ev, now))
		return
	}

	op, err := a.ReadRepo.GetOpportunity(r.Context(), id, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		a.internalError(w, "get_opportunity", err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// listLeagues retorna as ligas com oportunidades abertas
func (a *API) listLeagues(w http.ResponseWriter, r *http.Request) {
	ls, err := a.ReadRepo.ListLeagues(r.Context(), a.now())
	if err != nil {
		a.internalError(w, "list_leagues", err)
		return
	}
	writeJSON(w, http.StatusOK, ls)
}
