package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commentboard/internal/models"
)

type sampleInput struct {
	Username string `json:"username" validate:"required,max=50,username"`
	Content  string `json:"content" validate:"required,max=500,commenttext"`
	Language string `json:"language" validate:"omitempty,langtag"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   sampleInput
		wantErr string
	}{
		{"valid", sampleInput{Username: "ana_b-1", Content: "Hello, world! (really)"}, ""},
		{"valid with language", sampleInput{Username: "ana", Content: "Hi.", Language: "pt-BR"}, ""},
		{"missing username", sampleInput{Content: "Hi"}, "username is required"},
		{"username with space", sampleInput{Username: "ana b", Content: "Hi"}, "username can only contain"},
		{"username too long", sampleInput{Username: strings.Repeat("a", 51), Content: "Hi"}, "username must be at most 50"},
		{"content with markup", sampleInput{Username: "ana", Content: "<script>"}, "content contains invalid characters"},
		{"content too long", sampleInput{Username: "ana", Content: strings.Repeat("a", 501)}, "content must be at most 500"},
		{"bad language", sampleInput{Username: "ana", Content: "Hi", Language: "english!"}, "language must be a language code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Struct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestCommentID(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CommentID("3f1c2a9e-8b7d-4c6e-9f00-112233445566"))
	assert.Error(t, CommentID(""))
	assert.Error(t, CommentID("12"))
	assert.Error(t, CommentID("3f1c2a9e8b7d4c6e9f00112233445566"))
	assert.Error(t, CommentID("{3f1c2a9e-8b7d-4c6e-9f00-112233445566}"))
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hi there", NormalizeText("  hi there \n"))
}
