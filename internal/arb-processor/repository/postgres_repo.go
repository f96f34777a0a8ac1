package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

// PostgresRepo implementa a persistência das oportunidades em um banco Postgres
// DB: conexão com o banco de dados
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// UpsertCurrent insere ou atualiza a última avaliação de uma partida em arbitrage_current
// Utiliza ON CONFLICT para garantir atomicidade e evitar duplicidade por opportunity_id
func (r *PostgresRepo) UpsertCurrent(ctx context.Context, e events.ArbitrageOpportunity) error {
	legs, err := json.Marshal(e.Legs)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO arbitrage_current
		  (opportunity_id, league, match_name, match_start_time,
		   total_implied_probability, margin, legs, region, source, detected_at, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (opportunity_id) DO UPDATE SET
		  total_implied_probability = EXCLUDED.total_implied_probability,
		  margin      = EXCLUDED.margin,
		  legs        = EXCLUDED.legs,
		  region      = EXCLUDED.region,
		  source      = EXCLUDED.source,
		  detected_at = EXCLUDED.detected_at,
		  updated_at  = NOW()
		WHERE arbitrage_current.detected_at <= EXCLUDED.detected_at
	`
	_, err = r.DB.ExecContext(ctx, q,
		e.OpportunityID, e.League, e.MatchName, e.MatchStartTime,
		e.TotalImpliedProbability, e.Margin, legs, e.Region, e.Source, e.DetectedAt,
	)
	return err
}

// DeleteExpired remove as oportunidades cujas partidas já começaram
func (r *PostgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM arbitrage_current WHERE match_start_time <= $1`
	res, err := r.DB.ExecContext(ctx, q, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
