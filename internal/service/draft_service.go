package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-evote-api/internal/models"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

type draftStore interface {
	Get(ctx context.Context, voterID, electionID string) (*models.BallotDraft, error)
	Save(ctx context.Context, draft *models.BallotDraft) error
	Delete(ctx context.Context, voterID, electionID string) error
}

type constraintLoader interface {
	LoadBallotConstraints(ctx context.Context, electionID, positionID string) (*models.BallotConstraints, error)
}

// DraftService manages a voter's in-progress selections across the paged
// voting flow. State is per-voter and advisory: the commit coordinator
// treats the submitted ballot as untrusted input either way, so no
// cross-request synchronization is needed here.
type DraftService struct {
	store    draftStore
	registry constraintLoader
	clock    func() time.Time
	logger   *zap.Logger
}

// NewDraftService constructs DraftService.
func NewDraftService(store draftStore, registry constraintLoader, clock func() time.Time, logger *zap.Logger) *DraftService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{store: store, registry: registry, clock: clock, logger: logger}
}

// Get recovers the voter's draft, or starts an empty one. A reloaded ballot
// page picks up both the selections and the page position.
func (s *DraftService) Get(ctx context.Context, voterID, electionID string) (*models.BallotDraft, error) {
	draft, err := s.store.Get(ctx, voterID, electionID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCacheMiss) {
			return s.emptyDraft(voterID, electionID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	return draft, nil
}

// Select records a candidate selection. Positions limited to one choice get
// radio semantics: the new selection replaces any prior one. Multi-choice
// positions accumulate up to the capacity limit; an over-capacity select
// fails with CapacityExceeded and leaves the draft unchanged.
func (s *DraftService) Select(ctx context.Context, voterID, electionID, positionID, candidateID string) (*models.BallotDraft, error) {
	constraints, err := s.registry.LoadBallotConstraints(ctx, electionID, positionID)
	if err != nil {
		return nil, err
	}
	if !constraints.Allows(candidateID) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSelection, "candidate is not on the roster for this position")
	}

	draft, err := s.Get(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}

	current := draft.Selections[positionID]
	for _, id := range current {
		if id == candidateID {
			return draft, nil
		}
	}

	if constraints.MaxVotesPerVoter == 1 {
		draft.Selections[positionID] = []string{candidateID}
	} else {
		if len(current) >= constraints.MaxVotesPerVoter {
			return nil, appErrors.ErrCapacityExceeded
		}
		draft.Selections[positionID] = append(current, candidateID)
	}

	draft.UpdatedAt = s.clock()
	if err := s.store.Save(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft")
	}
	return draft, nil
}

// Deselect removes a prior selection; a no-op when absent.
func (s *DraftService) Deselect(ctx context.Context, voterID, electionID, positionID, candidateID string) (*models.BallotDraft, error) {
	draft, err := s.Get(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}

	current := draft.Selections[positionID]
	kept := current[:0]
	for _, id := range current {
		if id != candidateID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(current) {
		return draft, nil
	}
	if len(kept) == 0 {
		delete(draft.Selections, positionID)
	} else {
		draft.Selections[positionID] = kept
	}

	draft.UpdatedAt = s.clock()
	if err := s.store.Save(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft")
	}
	return draft, nil
}

// SetPage remembers which ballot page the voter is on.
func (s *DraftService) SetPage(ctx context.Context, voterID, electionID string, page int) (*models.BallotDraft, error) {
	if page < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "page must not be negative")
	}
	draft, err := s.Get(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}
	draft.Page = page
	draft.UpdatedAt = s.clock()
	if err := s.store.Save(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft")
	}
	return draft, nil
}

// Discard drops the draft, typically after a successful commit.
func (s *DraftService) Discard(ctx context.Context, voterID, electionID string) error {
	if err := s.store.Delete(ctx, voterID, electionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discard draft")
	}
	return nil
}

func (s *DraftService) emptyDraft(voterID, electionID string) *models.BallotDraft {
	return &models.BallotDraft{
		VoterID:    voterID,
		ElectionID: electionID,
		Selections: make(map[string][]string),
		Page:       0,
		UpdatedAt:  s.clock(),
	}
}
