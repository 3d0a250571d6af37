package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-evote-api/internal/models"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

type electionReader interface {
	FindByID(ctx context.Context, id string) (*models.Election, error)
	ListVotable(ctx context.Context) ([]models.Election, error)
}

type positionReader interface {
	ListActive(ctx context.Context, electionID string) ([]models.Position, error)
	FindActive(ctx context.Context, electionID, positionID string) (*models.Position, error)
	ListActiveCandidates(ctx context.Context, positionID string) ([]models.CandidateDetail, error)
}

// BallotPosition is one page of the ballot paper: the position, its roster
// and the constraints that size the UI control.
type BallotPosition struct {
	Position     models.Position          `json:"position"`
	Candidates   []models.CandidateDetail `json:"candidates"`
	SingleChoice bool                     `json:"single_choice"`
}

// BallotPaper is everything the voting UI needs to render a ballot.
type BallotPaper struct {
	Election        models.Election        `json:"election"`
	EffectiveStatus models.EffectiveStatus `json:"effective_status"`
	Positions       []BallotPosition       `json:"positions"`
}

// RegistryService is the capacity registry: the read path for positions,
// rosters and their capacity invariants. Its answers are advisory when
// rendering the ballot; the commit transaction re-reads the same data
// authoritatively.
type RegistryService struct {
	elections electionReader
	positions positionReader
	clock     func() time.Time
	logger    *zap.Logger
}

// NewRegistryService constructs RegistryService.
func NewRegistryService(elections electionReader, positions positionReader, clock func() time.Time, logger *zap.Logger) *RegistryService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{elections: elections, positions: positions, clock: clock, logger: logger}
}

// LoadBallotConstraints returns the capacity and roster for one position.
// NotFound when the position is inactive or belongs to another election.
func (s *RegistryService) LoadBallotConstraints(ctx context.Context, electionID, positionID string) (*models.BallotConstraints, error) {
	position, err := s.positions.FindActive(ctx, electionID, positionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "position not found on this ballot")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load position")
	}

	candidates, err := s.positions.ListActiveCandidates(ctx, positionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate roster")
	}

	valid := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		valid[candidate.ID] = struct{}{}
	}
	return &models.BallotConstraints{
		PositionID:        position.ID,
		MaxVotesPerVoter:  position.MaxVotesPerVoter,
		IsRequired:        position.IsRequired,
		ValidCandidateIDs: valid,
	}, nil
}

// BallotPaper assembles the election, its effective status and every active
// position with its roster for the voting UI.
func (s *RegistryService) BallotPaper(ctx context.Context, electionID string) (*BallotPaper, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "election not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load election")
	}

	positions, err := s.positions.ListActive(ctx, electionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load positions")
	}

	paper := &BallotPaper{
		Election:        *election,
		EffectiveStatus: ResolveEffectiveStatus(election.Status, election.StartTime, election.EndTime, s.clock()),
		Positions:       make([]BallotPosition, 0, len(positions)),
	}
	for _, position := range positions {
		candidates, err := s.positions.ListActiveCandidates(ctx, position.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate roster")
		}
		paper.Positions = append(paper.Positions, BallotPosition{
			Position:     position,
			Candidates:   candidates,
			SingleChoice: position.SingleChoice(),
		})
	}
	return paper, nil
}

// ListVotable returns elections a voter could plausibly open, with their
// effective status resolved against the current clock.
func (s *RegistryService) ListVotable(ctx context.Context) ([]ElectionSummary, error) {
	elections, err := s.elections.ListVotable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list elections")
	}

	now := s.clock()
	summaries := make([]ElectionSummary, 0, len(elections))
	for _, election := range elections {
		summaries = append(summaries, ElectionSummary{
			Election:        election,
			EffectiveStatus: ResolveEffectiveStatus(election.Status, election.StartTime, election.EndTime, now),
		})
	}
	return summaries, nil
}

// ElectionSummary pairs an election with its resolved status.
type ElectionSummary struct {
	Election        models.Election        `json:"election"`
	EffectiveStatus models.EffectiveStatus `json:"effective_status"`
}
