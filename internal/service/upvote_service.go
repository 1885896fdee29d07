package service

import (
	"context"
	"errors"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UpvoteLedger records votes. Record must fail with repository.ErrDuplicate
// when the identity already voted and return the recounted total otherwise.
type UpvoteLedger interface {
	Record(ctx context.Context, v *model.Upvote) (int, error)
	HasVoted(ctx context.Context, issueID uuid.UUID, userID *uuid.UUID, ip string) (bool, error)
	Recount(ctx context.Context, issueID uuid.UUID) (int, error)
}

type IssueLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Issue, error)
}

type UpvoteService struct {
	ledger UpvoteLedger
	issues IssueLookup
	log    zerolog.Logger
	now    func() time.Time
}

func NewUpvoteService(log zerolog.Logger, ledger UpvoteLedger, issues IssueLookup) *UpvoteService {
	return &UpvoteService{
		ledger: ledger,
		issues: issues,
		log:    log.With().Str("component", "upvote_service").Logger(),
		now:    time.Now,
	}
}

// Upvote casts one vote for the caller: by user id when signed in, by IP
// otherwise. A repeat vote is a conflict and leaves the counter untouched.
func (s *UpvoteService) Upvote(ctx context.Context, issueID uuid.UUID, actor model.Identity) (*model.UpvoteResponse, error) {
	if actor.UserID == nil && actor.IP == "" {
		return nil, Unauthorized("cannot identify voter")
	}
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}

	vote := &model.Upvote{
		ID:        uuid.New(),
		IssueID:   issueID,
		UserID:    actor.UserID,
		CreatedAt: s.now(),
	}
	if actor.UserID == nil {
		vote.IPAddress = actor.IP
	}

	count, err := s.ledger.Record(ctx, vote)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, Conflict("already upvoted")
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFound("issue")
		}
		return nil, err
	}

	s.log.Debug().Str("issue_id", issueID.String()).Str("voter", actor.VoterKey()).Int("upvotes", count).Msg("upvote recorded")
	return &model.UpvoteResponse{Upvotes: count}, nil
}

// Status reports whether the caller has already upvoted the issue.
func (s *UpvoteService) Status(ctx context.Context, issueID uuid.UUID, actor model.Identity) (*model.UpvoteStatus, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}
	status := &model.UpvoteStatus{Upvotes: issue.Upvotes}
	if actor.UserID == nil && actor.IP == "" {
		return status, nil
	}
	status.Upvoted, err = s.ledger.HasVoted(ctx, issueID, actor.UserID, actor.IP)
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Recount rebuilds the issue's counter from the ledger rows.
func (s *UpvoteService) Recount(ctx context.Context, issueID uuid.UUID, actor model.Identity) (*model.UpvoteResponse, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can recount upvotes")
	}
	count, err := s.ledger.Recount(ctx, issueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("issue")
		}
		return nil, err
	}
	s.log.Info().Str("issue_id", issueID.String()).Int("upvotes", count).Msg("upvotes recounted")
	return &model.UpvoteResponse{Upvotes: count}, nil
}
