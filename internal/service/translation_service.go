package service

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"commentboard/internal/models"
	"commentboard/internal/observability"
	"commentboard/internal/repository"
	"commentboard/internal/validation"
)

// Translator turns text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

// TranslateInput is a translation request for one comment.
type TranslateInput struct {
	CommentID      string `json:"commentId" validate:"required,uuid"`
	Text           string `json:"text" validate:"max=500"`
	TargetLanguage string `json:"targetLanguage" validate:"required,max=16,langtag"`
	SourceLanguage string `json:"sourceLanguage" validate:"omitempty,max=16,langtag"`
}

// TranslationResult is returned to the client.
type TranslationResult struct {
	TranslatedText string `json:"translatedText"`
	Cached         bool   `json:"cached"`
}

// TranslationService translates comments on demand and caches the result
// per (comment, target language), first in Redis and then in the database.
type TranslationService struct {
	comments     repository.CommentRepository
	translations repository.TranslationRepository
	cache        TranslationCache
	translator   Translator
	retry        RetryPolicy
	inflight     singleflight.Group
}

// NewTranslationService wires the translation service. cache may be nil.
func NewTranslationService(
	comments repository.CommentRepository,
	translations repository.TranslationRepository,
	cache TranslationCache,
	translator Translator,
	retry RetryPolicy,
) *TranslationService {
	return &TranslationService{
		comments:     comments,
		translations: translations,
		cache:        cache,
		translator:   translator,
		retry:        retry,
	}
}

// Translate returns the translation of the stored comment text. The text in
// the request is only validated; the stored content is what gets translated
// and cached, so a client cannot seed the cache with arbitrary text.
func (s *TranslationService) Translate(ctx context.Context, in TranslateInput) (*TranslationResult, error) {
	in.CommentID = validation.NormalizeText(in.CommentID)
	in.TargetLanguage = validation.NormalizeText(in.TargetLanguage)
	in.SourceLanguage = validation.NormalizeText(in.SourceLanguage)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	comment, err := retryStore(ctx, s.retry, "get", func() (*models.Comment, error) {
		return s.comments.GetByID(ctx, in.CommentID)
	})
	if err != nil {
		return nil, storeError("Comment", in.CommentID, err)
	}

	if text, ok := s.lookup(ctx, comment.ID, in.TargetLanguage); ok {
		return &TranslationResult{TranslatedText: text, Cached: true}, nil
	}

	source := in.SourceLanguage
	if source == "" {
		source = comment.OriginalLanguage
	}
	if source == "" {
		source = "auto"
	}

	key := comment.ID + "|" + in.TargetLanguage
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		return s.translateAndStore(ctx, comment, source, in.TargetLanguage)
	})
	if err != nil {
		return nil, err
	}
	return &TranslationResult{TranslatedText: v.(string)}, nil
}

// lookup checks Redis, then the translations table, warming Redis on a
// database hit. Cache failures count as misses.
func (s *TranslationService) lookup(ctx context.Context, commentID, lang string) (string, bool) {
	if s.cache != nil {
		text, ok, err := s.cache.Get(ctx, commentID, lang)
		if err != nil {
			warnCache(ctx, "get", commentID, err)
		} else if ok {
			return text, true
		}
	}

	stored, err := s.translations.Get(ctx, commentID, lang)
	if err != nil {
		if !repository.IsNotFound(err) {
			warnCache(ctx, "db get", commentID, err)
		}
		return "", false
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, commentID, lang, stored.TranslatedText); err != nil {
			warnCache(ctx, "put", commentID, err)
		}
	}
	return stored.TranslatedText, true
}

func (s *TranslationService) translateAndStore(ctx context.Context, comment *models.Comment, source, target string) (string, error) {
	text, err := s.translator.Translate(ctx, comment.Content, source, target)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", models.NewUpstreamUnavailableError("Translation", err)
	}

	// The comment may have been deleted meanwhile; the foreign key then
	// rejects the row and the result is simply not cached.
	err = s.translations.Upsert(ctx, &models.Translation{
		CommentID:      comment.ID,
		TargetLanguage: target,
		SourceLanguage: source,
		OriginalText:   comment.Content,
		TranslatedText: text,
	})
	if err != nil {
		warnCache(ctx, "db upsert", comment.ID, err)
		return text, nil
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, comment.ID, target, text); err != nil {
			warnCache(ctx, "put", comment.ID, err)
		}
	}
	return text, nil
}

func warnCache(ctx context.Context, op, commentID string, err error) {
	observability.GlobalLogger.WarnContext(ctx, "translation cache "+op+" failed",
		"comment_id", commentID,
		"error", err.Error(),
	)
}
