package models

import (
	"time"

	"gorm.io/gorm"
)

// CommentScope tells which part of a logbook a comment targets.
type CommentScope string

const (
	CommentScopeLogbook                 CommentScope = "logbook"
	CommentScopePractice                CommentScope = "practice"
	CommentScopeProfessionalDevelopment CommentScope = "professional_development"
	CommentScopeSupervision             CommentScope = "supervision"
	CommentScopeEntry                   CommentScope = "entry"
)

// Valid reports whether s is a known scope.
func (s CommentScope) Valid() bool {
	switch s {
	case CommentScopeLogbook, CommentScopePractice, CommentScopeProfessionalDevelopment,
		CommentScopeSupervision, CommentScopeEntry:
		return true
	}
	return false
}

// Comment is a review note on a logbook, a section or a single entry.
type Comment struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	LogbookID  uint         `gorm:"not null;index" json:"logbook_id"`
	AuthorID   uint         `gorm:"not null;index" json:"author_id"`
	AuthorRole string       `gorm:"size:32;not null" json:"author_role"`
	Scope      CommentScope `gorm:"size:32;not null" json:"scope"`
	EntryID    *uint        `json:"entry_id"`
	ParentID   *uint        `gorm:"index" json:"parent_id"`
	Body       string       `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time    `json:"created_at"`
}

// BeforeUpdate rejects edits; comments are immutable once stored.
func (Comment) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects removal of a stored comment.
func (Comment) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}
