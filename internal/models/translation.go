package models

import "time"

// Translation is a cached machine translation of a comment into one target
// language. Rows are owned by their comment and removed with it.
type Translation struct {
	CommentID      string    `gorm:"type:varchar(36);primaryKey" json:"commentId"`
	TargetLanguage string    `gorm:"type:varchar(16);primaryKey" json:"targetLanguage"`
	Comment        *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	SourceLanguage string    `gorm:"size:16" json:"sourceLanguage,omitempty"`
	OriginalText   string    `gorm:"size:500;not null" json:"originalText"`
	TranslatedText string    `gorm:"type:text;not null" json:"translatedText"`
	CreatedAt      time.Time `gorm:"type:timestamp" json:"createdAt"`
}
