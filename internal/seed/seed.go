// Package seed fills a board with demo comments and votes for local
// development. It is not used by the server at request time.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"commentboard/internal/models"
	"commentboard/internal/repository"
	"commentboard/internal/validation"
	"commentboard/internal/voter"
)

// Options controls how much data the Seeder creates.
type Options struct {
	Comments int
	// MaxLikes caps the likes given to a single comment.
	MaxLikes int
	// Seed makes the generated data reproducible when non-zero.
	Seed int64
	// VoterSalt must match the server's salt for seeded votes to line up
	// with real voters.
	VoterSalt string
}

// Seeder writes demo data through the comment repository so counters and
// voter rows stay consistent.
type Seeder struct {
	db     *gorm.DB
	repo   repository.CommentRepository
	faker  *gofakeit.Faker
	rng    *rand.Rand
	voters *voter.Deriver
	opts   Options
}

var (
	usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	contentStrip  = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?'"()-]`)
)

var languages = []string{"en", "pt", "es", "fr", "de", ""}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.Comments <= 0 {
		opts.Comments = 25
	}
	if opts.MaxLikes <= 0 {
		opts.MaxLikes = 5
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		db:     db,
		repo:   repository.NewCommentRepository(db),
		faker:  gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)),
		voters: voter.NewDeriver(opts.VoterSalt),
		opts:   opts,
	}
}

// ClearAll removes every comment together with its votes and translations.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Translation{}, &models.CommentVote{}, &models.Comment{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// BuildComment returns a valid, unsaved comment with fake content.
func (s *Seeder) BuildComment() *models.Comment {
	username := usernameStrip.ReplaceAllString(s.faker.Username(), "")
	if username == "" {
		username = "guest"
	}
	if len(username) > validation.MaxUsernameLength {
		username = username[:validation.MaxUsernameLength]
	}

	content := strings.TrimSpace(contentStrip.ReplaceAllString(s.faker.Sentence(s.rng.Intn(12)+4), ""))
	if len(content) > validation.MaxContentLength {
		content = strings.TrimSpace(content[:validation.MaxContentLength])
	}
	if content == "" {
		content = "Hello"
	}

	createdAt := time.Now().Add(-time.Duration(s.rng.Intn(72*60)) * time.Minute)
	return &models.Comment{
		ID:               uuid.NewString(),
		Username:         username,
		Content:          content,
		OriginalLanguage: languages[s.rng.Intn(len(languages))],
		City:             s.faker.City(),
		Country:          s.faker.Country(),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

// Run creates the configured number of comments and spreads votes over them.
// A comment never receives enough dislikes to be removed.
func (s *Seeder) Run(ctx context.Context) ([]*models.Comment, error) {
	created := make([]*models.Comment, 0, s.opts.Comments)
	for i := 0; i < s.opts.Comments; i++ {
		c := s.BuildComment()
		if err := s.repo.Create(ctx, c); err != nil {
			return created, fmt.Errorf("create comment %d: %w", i, err)
		}

		likes := s.rng.Intn(s.opts.MaxLikes + 1)
		for j := 0; j < likes; j++ {
			if _, err := s.repo.ApplyVote(ctx, c.ID, s.fakeVoter(), models.VoteLike); err != nil {
				return created, fmt.Errorf("like comment %s: %w", c.ID, err)
			}
		}
		if s.rng.Intn(3) == 0 {
			if _, err := s.repo.ApplyVote(ctx, c.ID, s.fakeVoter(), models.VoteDislike); err != nil {
				return created, fmt.Errorf("dislike comment %s: %w", c.ID, err)
			}
		}

		stored, err := s.repo.GetByID(ctx, c.ID)
		if err != nil {
			return created, err
		}
		created = append(created, stored)
	}
	return created, nil
}

func (s *Seeder) fakeVoter() string {
	return s.voters.ID(s.faker.IPv4Address())
}
