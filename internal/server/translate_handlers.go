package server

import (
	"github.com/gofiber/fiber/v2"

	"commentboard/internal/service"
)

// translateRequest accepts the older commentText field as well as text.
type translateRequest struct {
	CommentID      string `json:"commentId"`
	Text           string `json:"text"`
	CommentText    string `json:"commentText"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage"`
}

type translateResponse struct {
	Success bool                       `json:"success"`
	Data    *service.TranslationResult `json:"data"`
}

// TranslateComment godoc
// @Summary Translate a comment
// @Description Translates the stored comment text. Results are cached per comment and language.
// @Tags translations
// @Accept json
// @Produce json
// @Param body body translateRequest true "Translation request"
// @Success 200 {object} translateResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /translate [post]
func (s *Server) TranslateComment(c *fiber.Ctx) error {
	var req translateRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	text := req.Text
	if text == "" {
		text = req.CommentText
	}

	res, err := s.translations.Translate(c.UserContext(), service.TranslateInput{
		CommentID:      req.CommentID,
		Text:           text,
		TargetLanguage: req.TargetLanguage,
		SourceLanguage: req.SourceLanguage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(translateResponse{Success: true, Data: res})
}
