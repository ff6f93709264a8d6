package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/models"
)

// CommentRepository stores review comments. Comments are insert-only.
type CommentRepository interface {
	CreateWithAudit(ctx context.Context, comment *models.Comment, audit func(models.Comment) models.AuditEntry) error
	GetByID(ctx context.Context, id uint) (models.Comment, error)
	ListByLogbook(ctx context.Context, logbookID uint) ([]models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository constructs the comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// CreateWithAudit inserts the comment and the audit entry built from it in a
// single transaction.
func (r *commentRepository) CreateWithAudit(ctx context.Context, comment *models.Comment, audit func(models.Comment) models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		entry := audit(*comment)
		return tx.Create(&entry).Error
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	return comment, err
}

func (r *commentRepository) ListByLogbook(ctx context.Context, logbookID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("logbook_id = ?", logbookID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}
