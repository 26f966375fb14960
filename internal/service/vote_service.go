package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"commentboard/internal/models"
	"commentboard/internal/notifications"
	"commentboard/internal/observability"
	"commentboard/internal/repository"
	"commentboard/internal/validation"
)

// DeletionThreshold is the dislike count at which a comment is removed.
const DeletionThreshold = 2

// VoteResult is either the updated comment or a deletion marker.
type VoteResult struct {
	Comment   *models.Comment
	Deleted   bool
	CommentID string
	// Changed is false when the voter already held the requested vote.
	Changed bool
}

// VoteService reconciles like/dislike votes.
type VoteService struct {
	comments  repository.CommentRepository
	cascade   *DeletionCascade
	publisher Publisher
	retry     RetryPolicy
	locks     keyedMutex
}

// NewVoteService wires the reconciler.
func NewVoteService(
	comments repository.CommentRepository,
	cascade *DeletionCascade,
	publisher Publisher,
	retry RetryPolicy,
) *VoteService {
	return &VoteService{
		comments:  comments,
		cascade:   cascade,
		publisher: publisher,
		retry:     retry,
	}
}

// ApplyVote moves voterID into the kind set of the comment, then enforces the
// deletion threshold and broadcasts the result.
//
// The whole sequence runs under a per-comment lock so events for one comment
// are published in commit order. The threshold is checked after every vote,
// including repeats that change nothing, so a comment left over the threshold
// is removed by the next vote that sees it.
func (s *VoteService) ApplyVote(ctx context.Context, commentID, voterID string, kind models.VoteKind) (*VoteResult, error) {
	if err := validation.CommentID(commentID); err != nil {
		return nil, err
	}
	if voterID == "" {
		return nil, models.NewValidationError("voter ID is required")
	}
	if !kind.Valid() {
		return nil, models.NewValidationError("vote must be like or dislike")
	}

	span, ctx := observability.StartSpan(ctx, "vote.apply",
		attribute.String("comment.id", commentID),
		attribute.String("vote.kind", string(kind)),
	)
	defer span.End()

	unlock := s.locks.Lock(commentID)
	defer unlock()

	outcome, err := retryStore(ctx, s.retry, "vote", func() (*repository.VoteOutcome, error) {
		return s.comments.ApplyVote(ctx, commentID, voterID, kind)
	})
	if err != nil {
		span.SetError(err)
		return nil, storeError("Comment", commentID, err)
	}

	comment := outcome.Comment
	span.AddAttributes(
		attribute.Bool("vote.changed", outcome.Changed),
		attribute.Int("comment.dislikes", comment.Dislikes),
	)

	if comment.Dislikes >= DeletionThreshold {
		removed, err := s.cascade.DeleteComment(ctx, commentID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		observability.VotesTotal.WithLabelValues(string(kind), "deleted").Inc()
		if removed {
			observability.CommentsAutoDeleted.Inc()
			publish(ctx, s.publisher, notifications.CommentDeleted(commentID))
		}
		return &VoteResult{Deleted: true, CommentID: commentID, Changed: outcome.Changed}, nil
	}

	if !outcome.Changed {
		observability.VotesTotal.WithLabelValues(string(kind), "unchanged").Inc()
		return &VoteResult{Comment: comment, CommentID: commentID}, nil
	}

	observability.VotesTotal.WithLabelValues(string(kind), "applied").Inc()
	publish(ctx, s.publisher, notifications.CommentUpdated(comment))
	return &VoteResult{Comment: comment, CommentID: commentID, Changed: true}, nil
}

// Like is ApplyVote with a like intent.
func (s *VoteService) Like(ctx context.Context, commentID, voterID string) (*VoteResult, error) {
	return s.ApplyVote(ctx, commentID, voterID, models.VoteLike)
}

// Dislike is ApplyVote with a dislike intent.
func (s *VoteService) Dislike(ctx context.Context, commentID, voterID string) (*VoteResult, error) {
	return s.ApplyVote(ctx, commentID, voterID, models.VoteDislike)
}
