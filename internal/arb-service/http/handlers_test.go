package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arb-service/dto"
	"github.com/radieske/sports-arb-scanner/internal/arb-service/repo"
	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

var now = time.Unix(1_700_000_000, 0)

type mockRepo struct {
	ops        []dto.Opportunity
	leagues    []dto.League
	lastFilter repo.Filter
	getCalls   int
	err        error
}

func (m *mockRepo) ListOpportunities(_ context.Context, f repo.Filter, _ time.Time) ([]dto.Opportunity, error) {
	m.lastFilter = f
	return m.ops, m.err
}

func (m *mockRepo) GetOpportunity(_ context.Context, id string, _ time.Time) (dto.Opportunity, error) {
	m.getCalls++
	if m.err != nil {
		return dto.Opportunity{}, m.err
	}
	for _, o := range m.ops {
		if o.OpportunityID == id {
			return o, nil
		}
	}
	return dto.Opportunity{}, sql.ErrNoRows
}

func (m *mockRepo) ListLeagues(context.Context, time.Time) ([]dto.League, error) {
	return m.leagues, m.err
}

type mockCache struct {
	items map[string]events.ArbitrageOpportunity
	err   error
}

func (m *mockCache) GetOpportunity(_ context.Context, id string) (events.ArbitrageOpportunity, bool, error) {
	if m.err != nil {
		return events.ArbitrageOpportunity{}, false, m.err
	}
	e, ok := m.items[id]
	return e, ok, nil
}

func newRouter(r *mockRepo, c *mockCache) http.Handler {
	api := &API{ReadRepo: r, Cache: c, Log: zap.NewNop(), Now: func() time.Time { return now }}
	return NewRouter(api, nil, []string{"*"})
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListOpportunities(t *testing.T) {
	r := &mockRepo{ops: []dto.Opportunity{{OpportunityID: "a", League: "soccer_epl", Margin: 0.04}}}
	h := newRouter(r, &mockCache{})

	rec := do(t, h, "/v1/opportunities?league=soccer_epl&min_margin=0.02&limit=1000")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	var got []dto.Opportunity
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].OpportunityID != "a" {
		t.Errorf("body = %+v", got)
	}
	want := repo.Filter{League: "soccer_epl", MinMargin: 0.02, Limit: maxLimit}
	if r.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", r.lastFilter, want)
	}
}

func TestListOpportunitiesBadQuery(t *testing.T) {
	h := newRouter(&mockRepo{}, &mockCache{})
	for _, path := range []string{
		"/v1/opportunities?min_margin=abc",
		"/v1/opportunities?min_margin=1",
		"/v1/opportunities?min_margin=-0.1",
		"/v1/opportunities?limit=0",
		"/v1/opportunities?limit=x",
	} {
		if rec := do(t, h, path); rec.Code != http.StatusBadRequest {
			t.Errorf("%s -> %d, want 400", path, rec.Code)
		}
	}
}

func TestListOpportunitiesRepoError(t *testing.T) {
	h := newRouter(&mockRepo{err: errors.New("pg down")}, &mockCache{})
	rec := do(t, h, "/v1/opportunities")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"error\":\"internal error\"}\n" {
		t.Errorf("error leaked: %s", body)
	}
}

func TestGetOpportunity(t *testing.T) {
	cached := events.ArbitrageOpportunity{
		OpportunityID:  "cached",
		League:         "tennis_atp",
		MatchStartTime: now.Unix() + 7200,
		Legs:           []events.Leg{{Outcome: "A", Bookmaker: "X", Price: 2.1}},
	}
	stale := cached
	stale.OpportunityID = "stale"
	stale.MatchStartTime = now.Unix() - 60

	r := &mockRepo{ops: []dto.Opportunity{{OpportunityID: "db"}}}
	c := &mockCache{items: map[string]events.ArbitrageOpportunity{"cached": cached, "stale": stale}}
	h := newRouter(r, c)

	tests := []struct {
		id       string
		wantCode int
		wantRepo int
	}{
		{"cached", http.StatusOK, 0},
		{"db", http.StatusOK, 1},
		{"stale", http.StatusNotFound, 2},
		{"missing", http.StatusNotFound, 3},
	}
	for _, tt := range tests {
		rec := do(t, h, "/v1/opportunities/"+tt.id)
		if rec.Code != tt.wantCode {
			t.Errorf("%s: code = %d, want %d", tt.id, rec.Code, tt.wantCode)
		}
		if r.getCalls != tt.wantRepo {
			t.Errorf("%s: repo calls = %d, want %d", tt.id, r.getCalls, tt.wantRepo)
		}
	}

	rec := do(t, h, "/v1/opportunities/cached")
	var got dto.Opportunity
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.HoursToStart != 2 || len(got.Legs) != 1 {
		t.Errorf("cached opportunity = %+v", got)
	}
}

func TestGetOpportunityCacheErrorFallsBack(t *testing.T) {
	r := &mockRepo{ops: []dto.Opportunity{{OpportunityID: "db"}}}
	h := newRouter(r, &mockCache{err: errors.New("redis down")})
	if rec := do(t, h, "/v1/opportunities/db"); rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestListLeagues(t *testing.T) {
	r := &mockRepo{leagues: []dto.League{{League: "soccer_epl", Opportunities: 3}}}
	rec := do(t, newRouter(r, &mockCache{}), "/v1/leagues")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	var got []dto.League
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Opportunities != 3 {
		t.Errorf("leagues = %+v", got)
	}
}
