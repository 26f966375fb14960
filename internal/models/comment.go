// Package models contains data structures for the comment board's domain models.
package models

import "time"

// VoteKind is the direction of a single voter's vote on a comment.
type VoteKind string

const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

// Valid reports whether k is one of the two known vote kinds.
func (k VoteKind) Valid() bool {
	return k == VoteLike || k == VoteDislike
}

// Opposite returns the other vote kind.
func (k VoteKind) Opposite() VoteKind {
	if k == VoteLike {
		return VoteDislike
	}
	return VoteLike
}

// Comment is a single post on the board.
type Comment struct {
	ID               string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username         string `gorm:"size:50;not null" json:"username"`
	Content          string `gorm:"size:500;not null" json:"content"`
	OriginalLanguage string `gorm:"size:16" json:"originalLanguage,omitempty"`
	City             string `gorm:"size:100;not null;default:'Unknown'" json:"city"`
	Country          string `gorm:"size:100;not null;default:'Unknown'" json:"country"`
	Likes            int    `gorm:"type:integer;not null;default:0" json:"likes"`
	Dislikes         int    `gorm:"type:integer;not null;default:0" json:"dislikes"`
	// Version increments on every vote mutation so viewers can discard stale events.
	Version int64 `gorm:"type:bigint;not null;default:0" json:"version"`
	// LikedBy and DislikedBy are materialized from comment_votes on read.
	LikedBy    []string  `gorm:"-" json:"likedBy"`
	DislikedBy []string  `gorm:"-" json:"dislikedBy"`
	CreatedAt  time.Time `gorm:"type:timestamp;index:idx_comments_created_at" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"type:timestamp" json:"updatedAt"`
}

// CommentVote records one voter's current vote on a comment. The composite
// primary key keeps a voter in at most one of the like/dislike sets.
type CommentVote struct {
	CommentID string    `gorm:"type:varchar(36);primaryKey" json:"commentId"`
	VoterID   string    `gorm:"type:varchar(64);primaryKey" json:"voterId"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	Kind      VoteKind  `gorm:"type:varchar(8);not null" json:"kind"`
	CreatedAt time.Time `gorm:"type:timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamp" json:"updatedAt"`
}

// TableName pins the vote table name.
func (CommentVote) TableName() string {
	return "comment_votes"
}
