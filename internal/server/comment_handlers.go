package server

import (
	"github.com/gofiber/fiber/v2"

	"commentboard/internal/middleware"
	"commentboard/internal/models"
	"commentboard/internal/service"
)

// listResponse wraps a page of comments.
type listResponse struct {
	Success bool              `json:"success"`
	Data    []*models.Comment `json:"data"`
}

// commentResponse wraps a single comment.
type commentResponse struct {
	Success bool            `json:"success"`
	Data    *models.Comment `json:"data"`
}

// voteResponse is either the updated comment or the id of a comment that the
// vote caused to be deleted.
type voteResponse struct {
	Success   bool            `json:"success"`
	Data      *models.Comment `json:"data,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	CommentID string          `json:"commentId,omitempty"`
}

// GetComments godoc
// @Summary List comments
// @Description Returns comments newest first.
// @Tags comments
// @Produce json
// @Param limit query int false "Page size (default 50, max 100)"
// @Param skip query int false "Number of comments to skip"
// @Success 200 {object} listResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	page := parsePagination(c)
	comments, err := s.comments.ListComments(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse{Success: true, Data: comments})
}

// GetComment godoc
// @Summary Get a comment
// @Description Authoritative current state of one comment, used to recover from missed live events.
// @Tags comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} commentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	comment, err := s.comments.GetComment(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(commentResponse{Success: true, Data: comment})
}

// CreateComment godoc
// @Summary Post a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param body body service.CreateCommentInput true "Comment"
// @Success 201 {object} commentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var in service.CreateCommentInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	in.ClientIP = middleware.ClientIP(c)

	comment, err := s.comments.CreateComment(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(commentResponse{Success: true, Data: comment})
}

// LikeComment godoc
// @Summary Like a comment
// @Description Idempotent per voter. Moves the voter out of the dislike set if needed.
// @Tags votes
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} voteResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /comments/{id}/like [post]
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.vote(c, models.VoteLike)
}

// DislikeComment godoc
// @Summary Dislike a comment
// @Description Idempotent per voter. A comment reaching two dislikes is deleted.
// @Tags votes
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} voteResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /comments/{id}/dislike [post]
func (s *Server) DislikeComment(c *fiber.Ctx) error {
	return s.vote(c, models.VoteDislike)
}

func (s *Server) vote(c *fiber.Ctx, kind models.VoteKind) error {
	res, err := s.votes.ApplyVote(c.UserContext(), c.Params("id"), middleware.VoterID(c), kind)
	if err != nil {
		return respondError(c, err)
	}
	if res.Deleted {
		return c.JSON(voteResponse{Success: true, Deleted: true, CommentID: res.CommentID})
	}
	return c.JSON(voteResponse{Success: true, Data: res.Comment})
}
