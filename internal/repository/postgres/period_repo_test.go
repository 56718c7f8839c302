package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRepoGetOrCreateOpenPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, started_at FROM rating_periods").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO rating_periods").
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at"}).AddRow(int64(1), now))

	period, err := NewPeriodRepo(db).GetOrCreateOpenPeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), period.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepoListPeriodGames(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	columns := []string{"id", "period_id", "player_id", "opponent_id", "outcome", "played_at"}
	mock.ExpectQuery("SELECT (.+) FROM games").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), int64(3), int64(1), int64(2), 2, now).
			AddRow(int64(2), int64(3), int64(2), int64(3), 1, now))

	games, err := NewPeriodRepo(db).ListPeriodGames(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, domain.Win, games[0].Outcome)
	assert.Equal(t, domain.Draw, games[1].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepoListPeriodGamesRejectsBadOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	columns := []string{"id", "period_id", "player_id", "opponent_id", "outcome", "played_at"}
	mock.ExpectQuery("SELECT (.+) FROM games").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), int64(3), int64(1), int64(2), 5, time.Now()))

	_, err = NewPeriodRepo(db).ListPeriodGames(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestPeriodRepoClosePeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	change := domain.RatingChange{
		PlayerID: 1,
		PeriodID: 5,
		Before:   domain.NewRatingState(),
		After:    domain.RatingState{Rating: 0.2, RatingDeviation: 1.5, Volatility: 0.059},
		Games:    2,
		Wins:     1,
		Losses:   1,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE players").
		WithArgs(int64(1), 0.2, 1.5, 0.059, 2, 1, 0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO rating_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE rating_periods SET closed_at").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO rating_periods").
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at"}).AddRow(int64(6), time.Now()))
	mock.ExpectCommit()

	next, err := NewPeriodRepo(db).ClosePeriod(context.Background(), 5, []domain.RatingChange{change})
	require.NoError(t, err)
	assert.Equal(t, int64(6), next.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepoClosePeriodRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rating_periods SET closed_at").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = NewPeriodRepo(db).ClosePeriod(context.Background(), 5, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
