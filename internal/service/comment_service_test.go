package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commentboard/internal/geo"
	"commentboard/internal/models"
	"commentboard/internal/notifications"
	"commentboard/internal/repository"
)

type locatorFunc func(ctx context.Context, ip string) geo.Location

func (f locatorFunc) Locate(ctx context.Context, ip string) geo.Location { return f(ctx, ip) }

func TestCommentService_CreateComment_Validation(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), nil, &recordingPublisher{}, fastRetry())
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateCommentInput
		msg  string
	}{
		{"missing username", CreateCommentInput{Content: "hi"}, "username is required"},
		{"blank content", CreateCommentInput{Username: "ana", Content: "   "}, "content is required"},
		{"bad username", CreateCommentInput{Username: "ana smith", Content: "hi"}, "username can only contain"},
		{"long username", CreateCommentInput{Username: strings.Repeat("a", 51), Content: "hi"}, "at most 50"},
		{"bad content", CreateCommentInput{Username: "ana", Content: "<script>"}, "invalid characters"},
		{"long content", CreateCommentInput{Username: "ana", Content: strings.Repeat("a", 501)}, "at most 500"},
		{"bad language", CreateCommentInput{Username: "ana", Content: "hi", Language: "english!"}, "language code"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateComment(ctx, tt.in)
			assertAppCode(t, err, models.CodeValidation)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCommentService_CreateComment_Success(t *testing.T) {
	t.Parallel()

	comments := repository.NewCommentRepository(setupSQLite(t))
	pub := &recordingPublisher{}
	var lookedUp string
	locator := locatorFunc(func(_ context.Context, ip string) geo.Location {
		lookedUp = ip
		return geo.Location{City: "Porto", Country: "Portugal"}
	})
	svc := NewCommentService(comments, locator, pub, fastRetry())

	c, err := svc.CreateComment(context.Background(), CreateCommentInput{
		Username: "  ana_b ",
		Content:  " Great post, thanks! ",
		Language: "en",
		ClientIP: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.Len(t, c.ID, 36)
	assert.Equal(t, "ana_b", c.Username)
	assert.Equal(t, "Great post, thanks!", c.Content)
	assert.Equal(t, "Porto", c.City)
	assert.Equal(t, "203.0.113.9", lookedUp)
	assert.Empty(t, c.LikedBy)
	assert.NotNil(t, c.LikedBy)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notifications.EventCommentNew, events[0].Type)

	stored, err := svc.GetComment(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Portugal", stored.Country)
	assert.Equal(t, "en", stored.OriginalLanguage)
}

func TestCommentService_CreateComment_WithoutLocator(t *testing.T) {
	t.Parallel()

	var created *models.Comment
	repo := noopCommentRepo()
	repo.createFn = func(_ context.Context, c *models.Comment) error {
		created = c
		return nil
	}
	svc := NewCommentService(repo, nil, nil, fastRetry())

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{Username: "ana", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, geo.Unknown.City, created.City)
	assert.Equal(t, geo.Unknown.Country, created.Country)
}

func TestCommentService_StoreFailure(t *testing.T) {
	t.Parallel()

	repo := noopCommentRepo()
	repo.createFn = func(_ context.Context, _ *models.Comment) error { return errors.New("disk full") }
	pub := &recordingPublisher{}
	svc := NewCommentService(repo, nil, pub, fastRetry())

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{Username: "ana", Content: "hi"})
	assertAppCode(t, err, models.CodeInternal)
	assert.Empty(t, pub.Events())
}

func TestCommentService_ListAndGet(t *testing.T) {
	t.Parallel()

	comments := repository.NewCommentRepository(setupSQLite(t))
	svc := NewCommentService(comments, nil, nil, fastRetry())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedComment(t, comments)
	}
	page, err := svc.ListComments(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := svc.ListComments(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	_, err = svc.GetComment(ctx, "nope")
	assertAppCode(t, err, models.CodeValidation)

	_, err = svc.GetComment(ctx, "00000000-0000-0000-0000-000000000000")
	assertAppCode(t, err, models.CodeNotFound)
}
