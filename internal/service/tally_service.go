package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-evote-api/internal/models"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

type tallyReader interface {
	CountVotes(ctx context.Context, electionID, positionID string) (map[string]int, error)
	ElectionTallies(ctx context.Context, electionID string) ([]models.TallyRow, error)
	Turnout(ctx context.Context, electionID string) (*models.Turnout, error)
}

type tallyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

type cacheLookupRecorder interface {
	RecordCacheLookup(hit bool)
}

// TallyConfig tunes result visibility and caching.
type TallyConfig struct {
	// LiveResults exposes tallies while voting is still open.
	LiveResults bool
	CacheTTL    time.Duration
}

// TallyService is the read-only aggregation over committed votes. Counts
// only ever grow because sessions and votes are immutable after commit, so
// a short cache TTL cannot make a reader observe a count going backwards.
type TallyService struct {
	repo      tallyReader
	elections electionReader
	registry  constraintLoader
	cache     tallyCache
	metrics   cacheLookupRecorder
	config    TallyConfig
	clock     func() time.Time
	logger    *zap.Logger
}

// NewTallyService constructs TallyService. cache and metrics are optional.
func NewTallyService(repo tallyReader, elections electionReader, registry constraintLoader, cache tallyCache, metrics cacheLookupRecorder, config TallyConfig, clock func() time.Time, logger *zap.Logger) *TallyService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TallyService{repo: repo, elections: elections, registry: registry, cache: cache, metrics: metrics, config: config, clock: clock, logger: logger}
}

// CountVotes returns candidate -> count for one position, with zero entries
// for roster candidates nobody voted for. Subject to the same visibility
// gate as Results.
func (s *TallyService) CountVotes(ctx context.Context, electionID, positionID string) (map[string]int, error) {
	if _, _, err := s.visibleElection(ctx, electionID); err != nil {
		return nil, err
	}

	constraints, err := s.registry.LoadBallotConstraints(ctx, electionID, positionID)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountVotes(ctx, electionID, positionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count votes")
	}

	for _, candidateID := range constraints.CandidateIDs() {
		if _, ok := counts[candidateID]; !ok {
			counts[candidateID] = 0
		}
	}
	return counts, nil
}

// Results assembles the per-position tallies and turnout for an election.
// Unless live results are enabled, tallies stay hidden until the voting
// window has closed.
func (s *TallyService) Results(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	election, effective, err := s.visibleElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	cacheKey := resultsCacheKey(electionID)
	if s.cache != nil {
		var cached models.ElectionResults
		err := s.cache.Get(ctx, cacheKey, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(err == nil)
		}
		if err == nil {
			return &cached, nil
		}
	}

	rows, err := s.repo.ElectionTallies(ctx, electionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tallies")
	}
	turnout, err := s.repo.Turnout(ctx, electionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turnout")
	}

	results := &models.ElectionResults{
		ElectionID:      election.ID,
		ElectionTitle:   election.Title,
		EffectiveStatus: effective,
		Positions:       groupTallies(rows),
		Turnout:         *turnout,
		GeneratedAt:     s.clock(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, results, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache tally results", zap.String("election_id", electionID), zap.Error(err))
		}
	}
	return results, nil
}

// visibleElection loads the election and rejects the read unless tallies may
// be shown: voting has ended, the election is completed, or live results are
// enabled while it is still active.
func (s *TallyService) visibleElection(ctx context.Context, electionID string) (*models.Election, models.EffectiveStatus, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "election not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load election")
	}

	effective := ResolveEffectiveStatus(election.Status, election.StartTime, election.EndTime, s.clock())
	switch effective {
	case models.EffectiveEnded, models.EffectiveCompleted:
	case models.EffectiveActive:
		if !s.config.LiveResults {
			return nil, "", appErrors.Clone(appErrors.ErrElectionNotOpen, "results are not available until voting ends")
		}
	default:
		return nil, "", appErrors.Clone(appErrors.ErrElectionNotOpen, "results are not available for this election")
	}
	return election, effective, nil
}

// InvalidateResults drops the cached tallies for an election. Called after a
// ballot commit so live results pick up the new votes before the TTL lapses.
func (s *TallyService) InvalidateResults(ctx context.Context, electionID string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, resultsCacheKey(electionID))
}

func resultsCacheKey(electionID string) string {
	return fmt.Sprintf("tally_results:%s", electionID)
}

func groupTallies(rows []models.TallyRow) []models.PositionResult {
	grouped := make([]models.PositionResult, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.PositionID]
		if !ok {
			i = len(grouped)
			index[row.PositionID] = i
			grouped = append(grouped, models.PositionResult{
				PositionID:    row.PositionID,
				PositionTitle: row.PositionTitle,
			})
		}
		grouped[i].Candidates = append(grouped[i].Candidates, row)
	}
	return grouped
}
