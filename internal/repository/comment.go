// Package repository provides the data access layer for comments, votes and translations.
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commentboard/internal/models"
	"commentboard/internal/observability"
)

// VoteOutcome is the committed state of a comment after a vote transaction.
type VoteOutcome struct {
	Comment *models.Comment
	// Changed is false when the voter already held the requested vote.
	Changed bool
	// Previous is the voter's vote before the transaction, "" if none.
	Previous models.VoteKind
}

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	List(ctx context.Context, limit, offset int) ([]*models.Comment, error)
	ApplyVote(ctx context.Context, commentID, voterID string, kind models.VoteKind) (*VoteOutcome, error)
	DeleteCascade(ctx context.Context, id string) (bool, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("insert", "comments")()

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return err
	}
	comment.LikedBy = []string{}
	comment.DislikedBy = []string{}
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	defer observability.TrackQuery("select", "comments")()

	var comment models.Comment
	db := r.db.WithContext(ctx)
	if err := db.Where("id = ?", id).Take(&comment).Error; err != nil {
		return nil, err
	}
	if err := attachVoters(db, []*models.Comment{&comment}); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) List(ctx context.Context, limit, offset int) ([]*models.Comment, error) {
	defer observability.TrackQuery("select", "comments")()

	comments := []*models.Comment{}
	db := r.db.WithContext(ctx)
	err := db.Order("created_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&comments).Error
	if err != nil {
		return nil, err
	}
	if err := attachVoters(db, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

const recountVotesSQL = `UPDATE comments SET
	likes = (SELECT COUNT(*) FROM comment_votes WHERE comment_id = ? AND kind = ?),
	dislikes = (SELECT COUNT(*) FROM comment_votes WHERE comment_id = ? AND kind = ?),
	version = version + 1,
	updated_at = ?
WHERE id = ?`

// ApplyVote moves voterID into the kind set of the comment inside one
// transaction. The comment row is locked first (Postgres) so concurrent votes
// on the same comment serialize; SQLite serializes writers on its own.
// Counters are recomputed from comment_votes rather than incremented, so they
// always equal the set sizes. A repeat of the voter's current vote changes
// nothing and does not bump updated_at or version.
func (r *commentRepository) ApplyVote(ctx context.Context, commentID, voterID string, kind models.VoteKind) (*VoteOutcome, error) {
	defer observability.TrackQuery("vote", "comment_votes")()

	out := &VoteOutcome{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx
		if tx.Dialector.Name() == "postgres" {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var comment models.Comment
		if err := lock.Where("id = ?", commentID).Take(&comment).Error; err != nil {
			return err
		}

		var existing models.CommentVote
		err := tx.Where("comment_id = ? AND voter_id = ?", commentID, voterID).Take(&existing).Error
		now := time.Now().UTC()

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.CommentVote{
				CommentID: commentID,
				VoterID:   voterID,
				Kind:      kind,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			out.Changed = true
		case err != nil:
			return err
		case existing.Kind == kind:
			out.Previous = existing.Kind
		default:
			out.Previous = existing.Kind
			err := tx.Model(&models.CommentVote{}).
				Where("comment_id = ? AND voter_id = ?", commentID, voterID).
				Updates(map[string]interface{}{"kind": string(kind), "updated_at": now}).Error
			if err != nil {
				return err
			}
			out.Changed = true
		}

		if out.Changed {
			err := tx.Exec(recountVotesSQL,
				commentID, string(models.VoteLike),
				commentID, string(models.VoteDislike),
				now, commentID,
			).Error
			if err != nil {
				return err
			}
			if err := tx.Where("id = ?", commentID).Take(&comment).Error; err != nil {
				return err
			}
		}

		if err := attachVoters(tx, []*models.Comment{&comment}); err != nil {
			return err
		}
		out.Comment = &comment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Changed {
		r.log.LogUpdate(ctx, map[string]interface{}{
			"comment_id": commentID,
			"kind":       string(kind),
			"previous":   string(out.Previous),
			"version":    out.Comment.Version,
		})
	}
	return out, nil
}

// DeleteCascade removes the comment with its translations and votes in one
// transaction. It reports whether a comment row was actually removed, so a
// repeated or concurrent delete returns false without error.
func (r *commentRepository) DeleteCascade(ctx context.Context, id string) (bool, error) {
	defer observability.TrackQuery("delete", "comments")()

	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Translation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", id).Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return false, err
	}
	if removed {
		r.log.LogDelete(ctx, map[string]interface{}{"comment_id": id})
	}
	return removed, nil
}

type voterRow struct {
	CommentID string
	VoterID   string
	Kind      models.VoteKind
}

// attachVoters fills LikedBy and DislikedBy from comment_votes.
func attachVoters(db *gorm.DB, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	byID := make(map[string]*models.Comment, len(comments))
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		c.LikedBy = []string{}
		c.DislikedBy = []string{}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	var rows []voterRow
	err := db.Model(&models.CommentVote{}).
		Select("comment_id", "voter_id", "kind").
		Where("comment_id IN ?", ids).
		Order("created_at, voter_id").
		Find(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		c, ok := byID[row.CommentID]
		if !ok {
			continue
		}
		switch row.Kind {
		case models.VoteLike:
			c.LikedBy = append(c.LikedBy, row.VoterID)
		case models.VoteDislike:
			c.DislikedBy = append(c.DislikedBy, row.VoterID)
		}
	}
	return nil
}
