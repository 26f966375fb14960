package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"commentboard/internal/observability"
	"commentboard/internal/repository"
)

// TranslationCache is the hot translation store kept in front of the
// translations table.
type TranslationCache interface {
	Get(ctx context.Context, commentID, lang string) (string, bool, error)
	Put(ctx context.Context, commentID, lang, text string) error
	Drop(ctx context.Context, commentID string) error
}

// DeletionCascade removes a comment together with everything it owns.
type DeletionCascade struct {
	comments repository.CommentRepository
	cache    TranslationCache
	retry    RetryPolicy
}

// NewDeletionCascade wires the cascade. cache may be nil.
func NewDeletionCascade(comments repository.CommentRepository, cache TranslationCache, retry RetryPolicy) *DeletionCascade {
	return &DeletionCascade{comments: comments, cache: cache, retry: retry}
}

// DeleteComment drops the cached translations of commentID, then removes its
// translation rows, votes and the comment itself in one transaction. It
// reports whether a comment row was removed; an absent comment yields
// false with no error.
func (d *DeletionCascade) DeleteComment(ctx context.Context, commentID string) (bool, error) {
	span, ctx := observability.StartSpan(ctx, "comment.cascade", attribute.String("comment.id", commentID))
	defer span.End()

	if d.cache != nil {
		// The hash carries a TTL, so a failed drop only delays cleanup.
		if err := d.cache.Drop(ctx, commentID); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to drop cached translations",
				"comment_id", commentID,
				"error", err.Error(),
			)
		}
	}

	removed, err := retryStore(ctx, d.retry, "delete", func() (bool, error) {
		return d.comments.DeleteCascade(ctx, commentID)
	})
	if err != nil {
		span.SetError(err)
		return false, storeError("Comment", commentID, err)
	}
	span.AddAttributes(attribute.Bool("comment.removed", removed))
	return removed, nil
}
