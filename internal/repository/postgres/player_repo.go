package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PlayerRepo struct {
	DB *sql.DB
}

func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{DB: db}
}

// CreatePlayer inserts a player with its starting rating state
func (r *PlayerRepo) CreatePlayer(ctx context.Context, name string, state domain.RatingState) (int64, error) {
	query := `
	INSERT INTO players (name, rating, rating_deviation, volatility, games_played, wins, draws, losses)
	VALUES ($1, $2, $3, $4, 0, 0, 0, 0)
	RETURNING id;
	`
	var playerID int64
	err := r.DB.QueryRowContext(ctx, query, name, state.Rating, state.RatingDeviation, state.Volatility).Scan(&playerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, domain.ErrPlayerExists
		}
		return 0, fmt.Errorf("failed to create player: %w", err)
	}
	return playerID, nil
}

// scanPlayer is a helper that scans a row into a Player struct
func scanPlayer(row interface{ Scan(dest ...any) error }) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.State.Rating,
		&p.State.RatingDeviation,
		&p.State.Volatility,
		&p.GamesPlayed,
		&p.Wins,
		&p.Draws,
		&p.Losses,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const playerSelectFields = `id, name, rating, rating_deviation, volatility, games_played, wins, draws, losses, created_at, updated_at`

// GetPlayerByID returns nil when the player does not exist
func (r *PlayerRepo) GetPlayerByID(ctx context.Context, playerID int64) (*domain.Player, error) {
	query := `SELECT ` + playerSelectFields + ` FROM players WHERE id = $1;`
	player, err := scanPlayer(r.DB.QueryRowContext(ctx, query, playerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetPlayersByIDs returns the players found, keyed by ID
func (r *PlayerRepo) GetPlayersByIDs(ctx context.Context, playerIDs []int64) (map[int64]*domain.Player, error) {
	players := make(map[int64]*domain.Player, len(playerIDs))
	if len(playerIDs) == 0 {
		return players, nil
	}

	query := `SELECT ` + playerSelectFields + ` FROM players WHERE id = ANY($1);`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(playerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players[p.ID] = p
	}
	return players, rows.Err()
}

// ListPlayers returns every player, used as the snapshot when a period closes
func (r *PlayerRepo) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	query := `SELECT ` + playerSelectFields + ` FROM players ORDER BY id;`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]domain.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// GetLeaderboard ranks players by the lower edge of their rating interval
// (rating minus two deviations), so unproven players do not top the board.
func (r *PlayerRepo) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
	SELECT
		ROW_NUMBER() OVER (ORDER BY rating - 2 * rating_deviation DESC, games_played DESC, name ASC) AS rank,
		id,
		name,
		rating,
		rating_deviation,
		games_played,
		wins,
		losses
	FROM players
	ORDER BY rating - 2 * rating_deviation DESC, games_played DESC, name ASC
	LIMIT $1;
	`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	leaderboard := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		var rating, deviation float64
		if err := rows.Scan(&entry.Rank, &entry.PlayerID, &entry.Name, &rating, &deviation, &entry.GamesPlayed, &entry.Wins, &entry.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entry.Rating, entry.Deviation, _ = domain.RatingState{Rating: rating, RatingDeviation: deviation}.Conventional()
		leaderboard = append(leaderboard, entry)
	}

	return leaderboard, rows.Err()
}
