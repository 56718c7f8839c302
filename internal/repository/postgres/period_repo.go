package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

type PeriodRepo struct {
	DB *sql.DB
}

func NewPeriodRepo(db *sql.DB) *PeriodRepo {
	return &PeriodRepo{DB: db}
}

// GetOrCreateOpenPeriod returns the period currently collecting games,
// opening the first one if none exists yet
func (r *PeriodRepo) GetOrCreateOpenPeriod(ctx context.Context) (*domain.RatingPeriod, error) {
	var period domain.RatingPeriod
	err := r.DB.QueryRowContext(ctx, `SELECT id, started_at FROM rating_periods WHERE closed_at IS NULL;`).
		Scan(&period.ID, &period.StartedAt)
	if err == nil {
		return &period, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get open period: %w", err)
	}

	// Two callers may race here; the partial unique index keeps one open period.
	query := `
	INSERT INTO rating_periods (started_at) VALUES (NOW())
	ON CONFLICT DO NOTHING
	RETURNING id, started_at;
	`
	err = r.DB.QueryRowContext(ctx, query).Scan(&period.ID, &period.StartedAt)
	if err == sql.ErrNoRows {
		return r.GetOrCreateOpenPeriod(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open period: %w", err)
	}
	return &period, nil
}

// RecordGame stores one game result in a period
func (r *PeriodRepo) RecordGame(ctx context.Context, game domain.Game) (int64, error) {
	query := `
	INSERT INTO games (period_id, player_id, opponent_id, outcome, played_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;
	`
	var gameID int64
	err := r.DB.QueryRowContext(ctx, query, game.PeriodID, game.PlayerID, game.OpponentID, int(game.Outcome), game.PlayedAt).Scan(&gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to record game: %w", err)
	}
	return gameID, nil
}

// ListPeriodGames returns every game recorded in a period
func (r *PeriodRepo) ListPeriodGames(ctx context.Context, periodID int64) ([]domain.Game, error) {
	query := `
	SELECT id, period_id, player_id, opponent_id, outcome, played_at
	FROM games
	WHERE period_id = $1
	ORDER BY played_at, id;
	`
	rows, err := r.DB.QueryContext(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query period games: %w", err)
	}
	defer rows.Close()

	games := make([]domain.Game, 0)
	for rows.Next() {
		var game domain.Game
		var outcome int
		if err := rows.Scan(&game.ID, &game.PeriodID, &game.PlayerID, &game.OpponentID, &outcome, &game.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		game.Outcome = domain.Outcome(outcome)
		if !game.Outcome.Valid() {
			return nil, fmt.Errorf("game %d: %w", game.ID, domain.ErrInvalidOutcome)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

// ClosePeriod applies every rating change, records the history, closes the
// period and opens the next one in a single transaction. It returns the new
// open period.
func (r *PeriodRepo) ClosePeriod(ctx context.Context, periodID int64, changes []domain.RatingChange) (*domain.RatingPeriod, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	for _, c := range changes {
		if err := r.applyChangeTx(ctx, tx, c); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE rating_periods SET closed_at = NOW() WHERE id = $1 AND closed_at IS NULL;`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to close period: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("period %d is not open", periodID)
	}

	var next domain.RatingPeriod
	err = tx.QueryRowContext(ctx, `INSERT INTO rating_periods (started_at) VALUES (NOW()) RETURNING id, started_at;`).
		Scan(&next.ID, &next.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to open next period: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &next, nil
}

// applyChangeTx updates one player and appends its history row within a transaction
func (r *PeriodRepo) applyChangeTx(ctx context.Context, tx *sql.Tx, c domain.RatingChange) error {
	query := `
	UPDATE players
	SET rating = $2,
	    rating_deviation = $3,
	    volatility = $4,
	    games_played = games_played + $5,
	    wins = wins + $6,
	    draws = draws + $7,
	    losses = losses + $8,
	    updated_at = NOW()
	WHERE id = $1;
	`
	_, err := tx.ExecContext(ctx, query, c.PlayerID, c.After.Rating, c.After.RatingDeviation, c.After.Volatility, c.Games, c.Wins, c.Draws, c.Losses)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", c.PlayerID, err)
	}

	query = `
	INSERT INTO rating_history (player_id, period_id, rating_before, deviation_before, volatility_before,
		rating_after, deviation_after, volatility_after, games, wins, draws, losses)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.ExecContext(ctx, query, c.PlayerID, c.PeriodID,
		c.Before.Rating, c.Before.RatingDeviation, c.Before.Volatility,
		c.After.Rating, c.After.RatingDeviation, c.After.Volatility,
		c.Games, c.Wins, c.Draws, c.Losses)
	if err != nil {
		return fmt.Errorf("failed to insert history for player %d: %w", c.PlayerID, err)
	}
	return nil
}

// GetPlayerHistory returns the most recent rating changes of a player, newest first
func (r *PeriodRepo) GetPlayerHistory(ctx context.Context, playerID int64, limit int) ([]domain.RatingChange, error) {
	query := `
	SELECT player_id, period_id, rating_before, deviation_before, volatility_before,
	       rating_after, deviation_after, volatility_after, games, wins, draws, losses, created_at
	FROM rating_history
	WHERE player_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.RatingChange, 0)
	for rows.Next() {
		var c domain.RatingChange
		err := rows.Scan(
			&c.PlayerID,
			&c.PeriodID,
			&c.Before.Rating,
			&c.Before.RatingDeviation,
			&c.Before.Volatility,
			&c.After.Rating,
			&c.After.RatingDeviation,
			&c.After.Volatility,
			&c.Games,
			&c.Wins,
			&c.Draws,
			&c.Losses,
			&c.At,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		history = append(history, c)
	}
	return history, rows.Err()
}
