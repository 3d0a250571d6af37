package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

func newTallyMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTallyRepositoryCountVotes(t *testing.T) {
	db, mock, cleanup := newTallyMock(t)
	defer cleanup()
	repo := NewTallyRepository(db)

	mock.ExpectQuery("SELECT v.candidate_id, COUNT").
		WithArgs("election-1", "president", models.SessionStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "vote_count"}).
			AddRow("cand-a", 3).
			AddRow("cand-b", 1))

	counts, err := repo.CountVotes(context.Background(), "election-1", "president")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cand-a": 3, "cand-b": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTallyRepositoryCountVotesEmpty(t *testing.T) {
	db, mock, cleanup := newTallyMock(t)
	defer cleanup()
	repo := NewTallyRepository(db)

	mock.ExpectQuery("SELECT v.candidate_id, COUNT").
		WithArgs("election-1", "president", models.SessionStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "vote_count"}))

	counts, err := repo.CountVotes(context.Background(), "election-1", "president")
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTallyRepositoryElectionTallies(t *testing.T) {
	db, mock, cleanup := newTallyMock(t)
	defer cleanup()
	repo := NewTallyRepository(db)

	rows := sqlmock.NewRows([]string{"position_id", "position_title", "candidate_id", "candidate_name", "vote_count"}).
		AddRow("president", "President", "cand-a", "Alice", 3).
		AddRow("president", "President", "cand-b", "Bob", 0)
	mock.ExpectQuery("SELECT p.id AS position_id").
		WithArgs("election-1", models.SessionStatusCompleted).
		WillReturnRows(rows)

	tallies, err := repo.ElectionTallies(context.Background(), "election-1")
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	assert.Equal(t, 3, tallies[0].VoteCount)
	assert.Equal(t, 0, tallies[1].VoteCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTallyRepositoryTurnout(t *testing.T) {
	db, mock, cleanup := newTallyMock(t)
	defer cleanup()
	repo := NewTallyRepository(db)

	mock.ExpectQuery("SELECT").
		WithArgs("election-1", models.SessionStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"completed_sessions", "eligible_voters"}).AddRow(42, 100))

	turnout, err := repo.Turnout(context.Background(), "election-1")
	require.NoError(t, err)
	assert.Equal(t, 42, turnout.CompletedSessions)
	assert.Equal(t, 100, turnout.EligibleVoters)
	assert.NoError(t, mock.ExpectationsWereMet())
}
