package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commentboard/internal/models"
	"commentboard/internal/observability"
)

// TranslationRepository stores translations keyed by (comment, target language).
type TranslationRepository interface {
	Get(ctx context.Context, commentID, targetLanguage string) (*models.Translation, error)
	Upsert(ctx context.Context, t *models.Translation) error
}

type translationRepository struct {
	db *gorm.DB
}

// NewTranslationRepository creates a new TranslationRepository
func NewTranslationRepository(db *gorm.DB) TranslationRepository {
	return &translationRepository{db: db}
}

func (r *translationRepository) Get(ctx context.Context, commentID, targetLanguage string) (*models.Translation, error) {
	defer observability.TrackQuery("select", "translations")()

	var t models.Translation
	err := r.db.WithContext(ctx).
		Where("comment_id = ? AND target_language = ?", commentID, targetLanguage).
		Take(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert inserts t or overwrites the existing translation for the same pair.
// The foreign key rejects translations of comments that no longer exist.
func (r *translationRepository) Upsert(ctx context.Context, t *models.Translation) error {
	defer observability.TrackQuery("upsert", "translations")()

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "comment_id"}, {Name: "target_language"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_language", "original_text", "translated_text"}),
	}).Create(t).Error
}
