package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/radieske/sports-arb-scanner/internal/arb-service/dto"
)

// Filter restringe a listagem de oportunidades
type Filter struct {
	League    string  // vazio = todas
	MinMargin float64 // margem mínima (1 - probabilidade implícita total)
	Limit     int
}

type ReadRepo struct {
	DB *sql.DB
}

// ListOpportunities lista as oportunidades de partidas ainda não iniciadas, maior margem primeiro
func (r *ReadRepo) ListOpportunities(ctx context.Context, f Filter, now time.Time) ([]dto.Opportunity, error) {
	const q = `
		SELECT opportunity_id, league, match_name, match_start_time,
		       total_implied_probability, margin, legs, detected_at
		FROM arbitrage_current
		WHERE match_start_time > $1
		  AND ($2 = '' OR league = $2)
		  AND margin >= $3
		ORDER BY margin DESC, match_start_time, opportunity_id
		LIMIT $4;
	`
	rows, err := r.DB.QueryContext(ctx, q, now.Unix(), f.League, f.MinMargin, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []dto.Opportunity{}
	for rows.Next() {
		o, err := scanOpportunity(rows, now)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOpportunity retorna sql.ErrNoRows quando a oportunidade não existe ou já expirou
func (r *ReadRepo) GetOpportunity(ctx context.Context, id string, now time.Time) (dto.Opportunity, error) {
	const q = `
		SELECT opportunity_id, league, match_name, match_start_time,
		       total_implied_probability, margin, legs, detected_at
		FROM arbitrage_current
		WHERE opportunity_id = $1 AND match_start_time > $2;
	`
	return scanOpportunity(r.DB.QueryRowContext(ctx, q, id, now.Unix()), now)
}

func (r *ReadRepo) ListLeagues(ctx context.Context, now time.Time) ([]dto.League, error) {
	const q = `
		SELECT league, COUNT(*)
		FROM arbitrage_current
		WHERE match_start_time > $1
		GROUP BY league
		ORDER BY league;
	`
	rows, err := r.DB.QueryContext(ctx, q, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []dto.League{}
	for rows.Next() {
		var l dto.League
		if err := rows.Scan(&l.League, &l.Opportunities); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(s scanner, now time.Time) (dto.Opportunity, error) {
	var (
		o    dto.Opportunity
		legs []byte
	)
	if err := s.Scan(&o.OpportunityID, &o.League, &o.MatchName, &o.MatchStartTime,
		&o.TotalImpliedProbability, &o.Margin, &legs, &o.DetectedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(legs, &o.Legs); err != nil {
		return o, err
	}
	o.HoursToStart = dto.HoursToStart(o.MatchStartTime, now)
	return o, nil
}
