package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/oddsapi"
	"github.com/radieske/sports-arb-scanner/internal/arb-scanner/scanner"
	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

type stubSource struct {
	err   error
	calls int
}

func (s *stubSource) ListSports(context.Context) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []string{"soccer_epl"}, nil
}

func (s *stubSource) FetchOddsSnapshot(context.Context, string, string, string) ([]arbitrage.RawEvent, error) {
	start := int64(7200)
	book := func(title string, home, away float64) arbitrage.Bookmaker {
		return arbitrage.Bookmaker{Title: title, Markets: []arbitrage.Market{{Outcomes: []arbitrage.Outcome{
			{Name: "Arsenal", Price: home}, {Name: "Chelsea", Price: away},
		}}}}
	}
	return []arbitrage.RawEvent{{
		SportKey:     "soccer_epl",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		CommenceTime: &start,
		Status:       "upcoming",
		Bookmakers:   []arbitrage.Bookmaker{book("A", 2.3, 1.5), book("B", 1.6, 2.4)},
	}}, nil
}

type stubPublisher struct {
	ids []string
	err error
}

func (p *stubPublisher) Publish(_ context.Context, opp arbitrage.Opportunity) error {
	p.ids = append(p.ids, opp.ID)
	return p.err
}

func newApp(t *testing.T, src scanner.Source, pub opportunityPublisher, out *bytes.Buffer) *app {
	t.Helper()
	sc, err := scanner.New(src, scanner.Config{Cutoff: 0.05}, scanner.WithClock(func() time.Time { return time.Unix(3600, 0) }))
	if err != nil {
		t.Fatal(err)
	}
	a := &app{log: zap.NewNop(), scanner: sc, out: newPrinter(out)}
	if pub != nil {
		a.pub = pub
	}
	return a
}

func TestScanOncePrintsAndPublishes(t *testing.T) {
	var out bytes.Buffer
	pub := &stubPublisher{err: errors.New("broker down")}
	a := newApp(t, &stubSource{}, pub, &out)

	n, err := a.scanOnce(context.Background())
	if err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if n != 1 || len(pub.ids) != 1 {
		t.Fatalf("n = %d, published = %v", n, pub.ids)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("printed %d lines: %q", len(lines), out.String())
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("printed line is not JSON: %v", err)
	}
	if got["match_name"] != "Arsenal v. Chelsea" || got["league"] != "soccer_epl" {
		t.Errorf("printed = %v", got)
	}
	if got["id"] != pub.ids[0] {
		t.Errorf("printed id %v, published %v", got["id"], pub.ids[0])
	}
}

func TestLoopStopsOnAuthenticationError(t *testing.T) {
	src := &stubSource{err: &oddsapi.AuthenticationError{APIError: oddsapi.APIError{StatusCode: 401, Message: "bad key"}}}
	a := newApp(t, src, nil, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var authErr *oddsapi.AuthenticationError
	if err := a.loop(ctx, time.Millisecond); !errors.As(err, &authErr) {
		t.Fatalf("loop = %v, want AuthenticationError", err)
	}
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1", src.calls)
	}
}

func TestLoopRetriesTransientErrors(t *testing.T) {
	src := &stubSource{err: &oddsapi.ProviderError{APIError: oddsapi.APIError{StatusCode: 500, Message: "boom"}}}
	a := newApp(t, src, nil, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := a.loop(ctx, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("loop = %v, want deadline", err)
	}
	if src.calls < 2 {
		t.Errorf("calls = %d, want retries", src.calls)
	}
}
