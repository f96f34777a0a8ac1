package oddsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

const oddsBody = `[
  {
    "id": "e1",
    "sport_key": "soccer_epl",
    "home_team": "Arsenal",
    "away_team": "Chelsea",
    "commence_time": 2000,
    "status": "upcoming",
    "bookmakers": [
      {"title": "Unibet", "markets": [{"key": "h2h", "outcomes": [{"name": "Arsenal", "price": 2.1}, {"name": "Chelsea", "price": 1.9}]}]}
    ]
  },
  {
    "id": "e2",
    "sport_key": "soccer_epl",
    "home_team": "Spurs",
    "away_team": "Leeds",
    "commence_time": 500,
    "status": "upcoming",
    "bookmakers": []
  },
  {
    "id": "e3",
    "sport_key": "soccer_epl",
    "home_team": "Everton",
    "away_team": "Fulham",
    "commence_time": "1970-01-01T01:00:00Z",
    "bookmakers": [{"title": "Pinnacle", "markets": [{"key": "h2h"}]}]
  },
  {
    "id": "e4",
    "sport_key": "soccer_epl",
    "home_team": "Brentford",
    "away_team": "Wolves"
  }
]`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithClock(func() time.Time { return time.Unix(1000, 0) })}, opts...)
	return NewClient(srv.URL, "test-key", opts...)
}

func TestListSports(t *testing.T) {
	var gotPath, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		w.Write([]byte(`[{"key":"tennis_atp"},{"key":"soccer_epl"},{"key":"tennis_atp"},{"key":""}]`))
	})

	keys, err := c.ListSports(context.Background())
	if err != nil {
		t.Fatalf("ListSports: %v", err)
	}
	if want := []string{"tennis_atp", "soccer_epl"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	if gotPath != "/sports/" {
		t.Errorf("path = %q, want %q", gotPath, "/sports/")
	}
	if gotKey != "test-key" {
		t.Errorf("apiKey = %q, want %q", gotKey, "test-key")
	}
}

func TestFetchOddsSnapshot(t *testing.T) {
	var query map[string]string
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		q := r.URL.Query()
		query = map[string]string{
			"apiKey":     q.Get("apiKey"),
			"regions":    q.Get("regions"),
			"oddsFormat": q.Get("oddsFormat"),
			"dateFormat": q.Get("dateFormat"),
		}
		w.Write([]byte(oddsBody))
	})

	events, err := c.FetchOddsSnapshot(context.Background(), "soccer_epl", "eu", "decimal")
	if err != nil {
		t.Fatalf("FetchOddsSnapshot: %v", err)
	}

	if path != "/sports/soccer_epl/odds/" {
		t.Errorf("path = %q", path)
	}
	wantQuery := map[string]string{"apiKey": "test-key", "regions": "eu", "oddsFormat": "decimal", "dateFormat": "unix"}
	if !reflect.DeepEqual(query, wantQuery) {
		t.Errorf("query = %v, want %v", query, wantQuery)
	}

	// e2 (500) fica no passado; e3 = 3600 via RFC3339; e4 sem commence_time é repassado
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].HomeTeam != "Arsenal" || *events[0].CommenceTime != 2000 || events[0].Status != "upcoming" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if got := events[0].Bookmakers[0].Markets[0].Outcomes[0]; got.Name != "Arsenal" || got.Price != 2.1 {
		t.Errorf("first outcome = %+v", got)
	}
	if *events[1].CommenceTime != 3600 {
		t.Errorf("events[1].CommenceTime = %d, want 3600", *events[1].CommenceTime)
	}
	if events[1].Bookmakers[0].Markets[0].Outcomes != nil {
		t.Error("missing outcomes should decode as nil")
	}
	if events[2].CommenceTime != nil {
		t.Error("events[2].CommenceTime should be nil")
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(error) bool
		message string
	}{
		{
			name:   "401 authentication",
			status: http.StatusUnauthorized,
			body:   `{"message":"API key is not valid"}`,
			check: func(err error) bool {
				var e *AuthenticationError
				return errors.As(err, &e)
			},
			message: "API key is not valid",
		},
		{
			name:   "429 rate limit",
			status: http.StatusTooManyRequests,
			body:   `{"message":"Usage quota has been reached"}`,
			check: func(err error) bool {
				var e *RateLimitError
				return errors.As(err, &e)
			},
			message: "Usage quota has been reached",
		},
		{
			name:   "500 provider",
			status: http.StatusInternalServerError,
			body:   `oops`,
			check: func(err error) bool {
				var e *ProviderError
				return errors.As(err, &e)
			},
			message: "Internal Server Error",
		},
		{
			name:   "422 provider",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"Invalid regions"}`,
			check: func(err error) bool {
				var e *ProviderError
				return errors.As(err, &e)
			},
			message: "Invalid regions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.FetchOddsSnapshot(context.Background(), "soccer_epl", "eu", "decimal")
			if !tt.check(err) {
				t.Fatalf("unexpected error type: %T %v", err, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error should unwrap to *APIError: %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.message)
			}
			if !IsFatal(err) {
				t.Error("status errors should be fatal")
			}
		})
	}
}

func TestUnexpectedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Unknown sport"}`))
	})

	_, err := c.FetchOddsSnapshot(context.Background(), "nope", "eu", "decimal")
	if !errors.Is(err, ErrUnexpectedPayload) {
		t.Fatalf("err = %v, want ErrUnexpectedPayload", err)
	}
	if IsFatal(err) {
		t.Error("unexpected payload should not be fatal")
	}
}

func TestQuotaTracking(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("x-requests-remaining", "2")
		w.Header().Set("x-requests-used", "498")
		w.Write([]byte(`[]`))
	}, WithQuotaFloor(2))

	if _, err := c.ListSports(context.Background()); err != nil {
		t.Fatalf("ListSports: %v", err)
	}
	q := c.Quota()
	if !q.Known || q.Remaining != 2 || q.Used != 498 {
		t.Errorf("Quota = %+v", q)
	}

	_, err := c.ListSports(context.Background())
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want *RateLimitError", err)
	}
	if rl.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", rl.Remaining)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (floor must short-circuit)", calls.Load())
	}
}

func TestRequestHook(t *testing.T) {
	var endpoints []string
	var errs []error
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sports/" {
			w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}, WithRequestHook(func(endpoint string, err error) {
		endpoints = append(endpoints, endpoint)
		errs = append(errs, err)
	}))

	c.ListSports(context.Background())
	c.FetchOddsSnapshot(context.Background(), "x", "eu", "decimal")

	if want := []string{"sports", "odds"}; !reflect.DeepEqual(endpoints, want) {
		t.Errorf("endpoints = %v, want %v", endpoints, want)
	}
	if errs[0] != nil || errs[1] == nil {
		t.Errorf("errs = %v", errs)
	}
}
