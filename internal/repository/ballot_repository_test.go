package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

func newBallotMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBallotRepositoryCommitSuccess(t *testing.T) {
	db, mock, cleanup := newBallotMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO voting_sessions").
		WithArgs(sqlmock.AnyArg(), "voter-1", "election-1", models.SessionStatusCompleted, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, max_votes_per_voter FROM positions").
		WithArgs("council", "election-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_votes_per_voter"}).AddRow("council", 2))
	mock.ExpectQuery("SELECT id FROM candidates").
		WithArgs("council").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cand-a").AddRow("cand-b"))
	mock.ExpectExec("INSERT INTO votes").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "council", "cand-a", "election-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO votes").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "council", "cand-b", "election-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	session, count, err := repo.Commit(context.Background(), "voter-1", "election-1", models.Ballot{"council": {"cand-a", "cand-b"}}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryCommitDuplicateSession(t *testing.T) {
	db, mock, cleanup := newBallotMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO voting_sessions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "voting_sessions_voter_election_completed_idx"})
	mock.ExpectRollback()

	_, _, err := repo.Commit(context.Background(), "voter-1", "election-1", models.Ballot{"council": {"cand-a"}}, now)
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryCommitOverCapacity(t *testing.T) {
	db, mock, cleanup := newBallotMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO voting_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, max_votes_per_voter FROM positions").
		WithArgs("president", "election-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_votes_per_voter"}).AddRow("president", 1))
	mock.ExpectQuery("SELECT id FROM candidates").
		WithArgs("president").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cand-a").AddRow("cand-b"))
	mock.ExpectRollback()

	_, _, err := repo.Commit(context.Background(), "voter-1", "election-1", models.Ballot{"president": {"cand-a", "cand-b"}}, now)
	var invalid *InvalidSelectionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "president", invalid.PositionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryCommitOffRosterCandidate(t *testing.T) {
	db, mock, cleanup := newBallotMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO voting_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, max_votes_per_voter FROM positions").
		WithArgs("president", "election-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_votes_per_voter"}).AddRow("president", 1))
	mock.ExpectQuery("SELECT id FROM candidates").
		WithArgs("president").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cand-a"))
	mock.ExpectRollback()

	_, _, err := repo.Commit(context.Background(), "voter-1", "election-1", models.Ballot{"president": {"cand-z"}}, now)
	var invalid *InvalidSelectionError
	require.ErrorAs(t, err, &invalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryCommitUnknownPosition(t *testing.T) {
	db, mock, cleanup := newBallotMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO voting_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, max_votes_per_voter FROM positions").
		WithArgs("ghost", "election-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_votes_per_voter"}))
	mock.ExpectRollback()

	_, _, err := repo.Commit(context.Background(), "voter-1", "election-1", models.Ballot{"ghost": {"cand-a"}}, now)
	var invalid *InvalidSelectionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "ghost", invalid.PositionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryHasCompletedSession(t *testing.T) {
	db, mock, cleanup := newBallotMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	mock.ExpectQuery("SELECT 1 FROM voting_sessions").
		WithArgs("voter-1", "election-1", models.SessionStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	voted, err := repo.HasCompletedSession(context.Background(), "voter-1", "election-1")
	require.NoError(t, err)
	assert.True(t, voted)

	mock.ExpectQuery("SELECT 1 FROM voting_sessions").
		WithArgs("voter-2", "election-1", models.SessionStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	voted, err = repo.HasCompletedSession(context.Background(), "voter-2", "election-1")
	require.NoError(t, err)
	assert.False(t, voted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
