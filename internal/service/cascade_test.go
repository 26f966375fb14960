package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commentboard/internal/cache"
	"commentboard/internal/models"
	"commentboard/internal/repository"
)

func TestDeletionCascade_RemovesCommentAndDependents(t *testing.T) {
	t.Parallel()
	db := setupSQLite(t)
	comments := repository.NewCommentRepository(db)
	translations := repository.NewTranslationRepository(db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	tc := cache.NewTranslationCache(rdb)

	ctx := context.Background()
	c := seedComment(t, comments)
	other := seedComment(t, comments)

	_, err := comments.ApplyVote(ctx, c.ID, "voter-a", models.VoteLike)
	require.NoError(t, err)
	for _, id := range []string{c.ID, other.ID} {
		require.NoError(t, translations.Upsert(ctx, &models.Translation{
			CommentID: id, TargetLanguage: "pt", OriginalText: "Hello board", TranslatedText: "Olá quadro",
		}))
		require.NoError(t, tc.Put(ctx, id, "pt", "Olá quadro"))
	}

	cascade := NewDeletionCascade(comments, tc, fastRetry())
	removed, err := cascade.DeleteComment(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = comments.GetByID(ctx, c.ID)
	assert.True(t, repository.IsNotFound(err))
	_, err = translations.Get(ctx, c.ID, "pt")
	assert.True(t, repository.IsNotFound(err))
	assert.False(t, mr.Exists(cache.TranslationKey(c.ID)))

	var votes int64
	require.NoError(t, db.Model(&models.CommentVote{}).Where("comment_id = ?", c.ID).Count(&votes).Error)
	assert.Zero(t, votes)

	// Unrelated comments keep their translations.
	_, err = translations.Get(ctx, other.ID, "pt")
	assert.NoError(t, err)
	assert.True(t, mr.Exists(cache.TranslationKey(other.ID)))
}

func TestDeletionCascade_IsIdempotent(t *testing.T) {
	t.Parallel()
	comments := repository.NewCommentRepository(setupSQLite(t))
	c := seedComment(t, comments)
	cascade := NewDeletionCascade(comments, nil, fastRetry())
	ctx := context.Background()

	removed, err := cascade.DeleteComment(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = cascade.DeleteComment(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeletionCascade_RedisFailureIsTolerated(t *testing.T) {
	t.Parallel()
	comments := repository.NewCommentRepository(setupSQLite(t))
	c := seedComment(t, comments)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cascade := NewDeletionCascade(comments, cache.NewTranslationCache(rdb), fastRetry())
	removed, err := cascade.DeleteComment(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}
