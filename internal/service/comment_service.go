package service

import (
	"context"

	"github.com/google/uuid"

	"commentboard/internal/geo"
	"commentboard/internal/models"
	"commentboard/internal/notifications"
	"commentboard/internal/repository"
	"commentboard/internal/validation"
)

// Locator resolves a client address to a coarse location. It never fails;
// unknown addresses resolve to geo.Unknown.
type Locator interface {
	Locate(ctx context.Context, ip string) geo.Location
}

// CommentService creates and reads comments.
type CommentService struct {
	comments  repository.CommentRepository
	locator   Locator
	publisher Publisher
	retry     RetryPolicy
}

// CreateCommentInput is the body of a new comment.
type CreateCommentInput struct {
	Username string `json:"username" validate:"required,max=50,username"`
	Content  string `json:"content" validate:"required,max=500,commenttext"`
	Language string `json:"language" validate:"omitempty,max=16,langtag"`
	ClientIP string `json:"-"`
}

// NewCommentService wires the comment service. locator may be nil.
func NewCommentService(
	comments repository.CommentRepository,
	locator Locator,
	publisher Publisher,
	retry RetryPolicy,
) *CommentService {
	return &CommentService{
		comments:  comments,
		locator:   locator,
		publisher: publisher,
		retry:     retry,
	}
}

// CreateComment validates in, stamps the author's location and stores the
// comment. Viewers receive comment:new once the row is committed.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	in.Username = validation.NormalizeText(in.Username)
	in.Content = validation.NormalizeText(in.Content)
	in.Language = validation.NormalizeText(in.Language)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	loc := geo.Unknown
	if s.locator != nil {
		loc = s.locator.Locate(ctx, in.ClientIP)
	}

	comment := &models.Comment{
		ID:               uuid.NewString(),
		Username:         in.Username,
		Content:          in.Content,
		OriginalLanguage: in.Language,
		City:             loc.City,
		Country:          loc.Country,
	}
	_, err := retryStore(ctx, s.retry, "create", func() (struct{}, error) {
		return struct{}{}, s.comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, storeError("Comment", comment.ID, err)
	}

	publish(ctx, s.publisher, notifications.CommentNew(comment))
	return comment, nil
}

// ListComments returns a page of comments, newest first.
func (s *CommentService) ListComments(ctx context.Context, limit, offset int) ([]*models.Comment, error) {
	comments, err := retryStore(ctx, s.retry, "list", func() ([]*models.Comment, error) {
		return s.comments.List(ctx, limit, offset)
	})
	if err != nil {
		return nil, storeError("Comment", "", err)
	}
	return comments, nil
}

// GetComment returns the authoritative current state of one comment.
func (s *CommentService) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	if err := validation.CommentID(id); err != nil {
		return nil, err
	}
	comment, err := retryStore(ctx, s.retry, "get", func() (*models.Comment, error) {
		return s.comments.GetByID(ctx, id)
	})
	if err != nil {
		return nil, storeError("Comment", id, err)
	}
	return comment, nil
}
