package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

var now = time.Unix(1_700_000_000, 0)

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	upserted  []string
	upsertErr error
	sweeps    int
}

func (s *fakeStore) UpsertCurrent(_ context.Context, e events.ArbitrageOpportunity) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, e.OpportunityID)
	return nil
}

func (s *fakeStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps++
	return 1, nil
}

type fakeCache struct {
	set []string
	err error
}

func (c *fakeCache) SetCurrent(_ context.Context, e events.ArbitrageOpportunity, _ time.Time) error {
	if c.err != nil {
		return c.err
	}
	c.set = append(c.set, e.OpportunityID)
	return nil
}

type fakeWriter struct{ msgs []kafka.Message }

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func opportunity(id string, start int64) events.ArbitrageOpportunity {
	return events.ArbitrageOpportunity{
		OpportunityID:  id,
		League:         "soccer_epl",
		MatchName:      "Arsenal v. Chelsea",
		MatchStartTime: start,
		Legs: []events.Leg{
			{Outcome: "Arsenal", Bookmaker: "A", Price: 2.2},
			{Outcome: "Chelsea", Bookmaker: "B", Price: 2.2},
		},
		DetectedAt: now,
	}
}

func message(t *testing.T, e events.ArbitrageOpportunity) kafka.Message {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Topic: "arbitrage_opportunities", Key: []byte(e.OpportunityID), Value: b}
}

type harness struct {
	proc   *Processor
	store  *fakeStore
	cache  *fakeCache
	dlq    *fakeWriter
	errs   []string
	after  []string
	expire int
}

func newHarness() *harness {
	h := &harness{store: &fakeStore{}, cache: &fakeCache{}, dlq: &fakeWriter{}}
	h.proc = &Processor{
		Log:            zap.NewNop(),
		Repo:           h.store,
		Cache:          h.cache,
		DLQ:            h.dlq,
		Now:            func() time.Time { return now },
		OnError:        func(stage string) { h.errs = append(h.errs, stage) },
		OnExpired:      func() { h.expire++ },
		OnAfterPersist: func(e events.ArbitrageOpportunity) { h.after = append(h.after, e.OpportunityID) },
	}
	return h
}

func TestRunProcessesAndCommits(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		message(t, opportunity("a", now.Unix()+3600)),
		{Topic: "arbitrage_opportunities", Key: []byte("bad"), Value: []byte("{not json")},
		message(t, opportunity("b", now.Unix()-1)),
		message(t, opportunity("c", now.Unix()+60)),
	}}
	h.proc.Reader = r

	if err := h.proc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if len(r.committed) != 4 {
		t.Errorf("committed %d messages, want 4", len(r.committed))
	}
	if got := h.store.upserted; len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("upserted = %v, want [a c]", got)
	}
	if got := h.cache.set; len(got) != 2 {
		t.Errorf("cached = %v", got)
	}
	if len(h.after) != 2 {
		t.Errorf("after persist = %v", h.after)
	}
	if h.expire != 1 {
		t.Errorf("expired = %d, want 1", h.expire)
	}
	if len(h.dlq.msgs) != 1 || string(h.dlq.msgs[0].Key) != "bad" {
		t.Fatalf("dlq = %v", h.dlq.msgs)
	}
	if len(h.errs) != 1 || h.errs[0] != "decode" {
		t.Errorf("errors = %v, want [decode]", h.errs)
	}
}

func TestHandleCacheFailureStillPersists(t *testing.T) {
	h := newHarness()
	h.cache.err = errors.New("redis down")

	h.proc.Handle(context.Background(), message(t, opportunity("a", now.Unix()+3600)))

	if len(h.store.upserted) != 1 {
		t.Errorf("upserted = %v, want one", h.store.upserted)
	}
	if len(h.errs) != 1 || h.errs[0] != "cache" {
		t.Errorf("errors = %v, want [cache]", h.errs)
	}
	if len(h.dlq.msgs) != 0 {
		t.Errorf("cache failure must not dead-letter")
	}
}

func TestHandleUpsertFailureDeadLetters(t *testing.T) {
	h := newHarness()
	h.store.upsertErr = errors.New("pg down")

	h.proc.Handle(context.Background(), message(t, opportunity("a", now.Unix()+3600)))

	if len(h.after) != 0 {
		t.Errorf("broadcast after failed upsert: %v", h.after)
	}
	if len(h.dlq.msgs) != 1 {
		t.Fatalf("dlq = %d messages, want 1", len(h.dlq.msgs))
	}
	var stage string
	for _, hd := range h.dlq.msgs[0].Headers {
		if hd.Key == "dlq-stage" {
			stage = string(hd.Value)
		}
	}
	if stage != "db_upsert" {
		t.Errorf("dlq stage = %q", stage)
	}
}

func TestDecodeRejectsIncompleteEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no id", `{"league":"x","legs":[{"outcome":"a"}]}`},
		{"no league", `{"opportunity_id":"x","legs":[{"outcome":"a"}]}`},
		{"no legs", `{"opportunity_id":"x","league":"y"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decode([]byte(tt.body)); !errors.Is(err, errInvalidEvent) {
				t.Errorf("decode = %v, want errInvalidEvent", err)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := h.proc.Sweep(ctx, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Sweep = %v", err)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if h.store.sweeps == 0 {
		t.Error("sweep never ran")
	}
}
