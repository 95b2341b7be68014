package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/forty/internal/cache"
)

// InsertActions writes a batch of action records in a single transaction. Records already
// stored (same game and index) are skipped, so a replayed batch is harmless.
func (s *Store) InsertActions(ctx context.Context, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s#%d: %w", rec.GameID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// insertGameActionTx upserts the game row, inserts the action, and closes the game when the
// action produced a winner.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, recordTime(rec)); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor_player_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.ActorPlayerID, rec.ActionType, jsonPayload, recordTime(rec),
	)
	if err != nil {
		return err
	}

	if rec.EndsGame() {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, recordTime(rec)); err != nil {
			return err
		}
	}
	return nil
}

func recordTime(rec cache.GameActionRecord) time.Time {
	if rec.Timestamp == 0 {
		return time.Now()
	}
	return time.UnixMilli(rec.Timestamp)
}
