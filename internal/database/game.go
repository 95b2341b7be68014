// internal/database/game.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/forty/internal/game"
)

// Store archives finished games and their action logs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordGameResult persists the final outcome of a game: one games row marked completed plus
// one game_players row per seat.
func (s *Store) RecordGameResult(ctx context.Context, res game.GameResult) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, code, status, winner_id, rounds, start_time, end_time)
			VALUES ($1, $2, 'completed', $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET code = $2, status = 'completed', winner_id = $3, rounds = $4, end_time = $6
		`
		if _, e := tx.Exec(ctx, upsertGame, res.GameID, res.Code, res.WinnerID, res.Rounds, res.CreatedAt, res.FinishedAt); e != nil {
			return e
		}

		for _, p := range res.Players {
			q := `
				INSERT INTO game_players (game_id, player_id, name, seat, eliminated_round, placement)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET eliminated_round = $5, placement = $6
			`
			if _, e := tx.Exec(ctx, q, res.GameID, p.PlayerID, p.Name, p.Seat, p.EliminatedRound, p.Placement); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game result: %w", err)
	}
	return nil
}

// MarkAbandoned flags a game that stopped producing actions before it finished.
func (s *Store) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := s.pool.Exec(ctx, q, gameID); err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}
