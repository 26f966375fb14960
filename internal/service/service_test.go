package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"commentboard/internal/database"
	"commentboard/internal/models"
	"commentboard/internal/notifications"
	"commentboard/internal/repository"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, string) (*models.Comment, error)
	listFn          func(context.Context, int, int) ([]*models.Comment, error)
	applyVoteFn     func(context.Context, string, string, models.VoteKind) (*repository.VoteOutcome, error)
	deleteCascadeFn func(context.Context, string) (bool, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Comment, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *commentRepoStub) ApplyVote(ctx context.Context, commentID, voterID string, kind models.VoteKind) (*repository.VoteOutcome, error) {
	return s.applyVoteFn(ctx, commentID, voterID, kind)
}
func (s *commentRepoStub) DeleteCascade(ctx context.Context, id string) (bool, error) {
	return s.deleteCascadeFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listFn: func(_ context.Context, _, _ int) ([]*models.Comment, error) { return nil, nil },
		applyVoteFn: func(_ context.Context, id, _ string, _ models.VoteKind) (*repository.VoteOutcome, error) {
			return &repository.VoteOutcome{Comment: &models.Comment{ID: id}, Changed: true}, nil
		},
		deleteCascadeFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
	}
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (p *recordingPublisher) Publish(e notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.Event(nil), p.events...)
}

func (p *recordingPublisher) Types() []string {
	var out []string
	for _, e := range p.Events() {
		out = append(out, e.Type)
	}
	return out
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedComment(t *testing.T, repo repository.CommentRepository) *models.Comment {
	t.Helper()
	c := &models.Comment{
		ID:       uuid.NewString(),
		Username: "ana",
		Content:  "Hello board",
		City:     "Lisbon",
		Country:  "Portugal",
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
