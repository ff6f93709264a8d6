package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/praxis-api/internal/models"
)

// TransitionFunc receives the freshly read logbook and returns the logbook to
// store together with the audit entry describing the change.
type TransitionFunc func(current models.Logbook) (models.Logbook, models.AuditEntry, error)

// LogbookRepository persists logbooks and applies status transitions atomically.
type LogbookRepository interface {
	GetByID(ctx context.Context, id uint) (models.Logbook, error)
	FindByTraineeWeek(ctx context.Context, traineeID uint, weekStart time.Time) (models.Logbook, error)
	CountClosedOverlapping(ctx context.Context, traineeID uint, weekStart time.Time, excludeID uint) (int64, error)
	Transition(ctx context.Context, id uint, fn TransitionFunc) (models.Logbook, error)
}

type logbookRepository struct {
	db *gorm.DB
}

// NewLogbookRepository constructs the logbook repository.
func NewLogbookRepository(db *gorm.DB) LogbookRepository {
	return &logbookRepository{db: db}
}

func (r *logbookRepository) GetByID(ctx context.Context, id uint) (models.Logbook, error) {
	var lb models.Logbook
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&lb, id).Error
	return lb, err
}

func (r *logbookRepository) FindByTraineeWeek(ctx context.Context, traineeID uint, weekStart time.Time) (models.Logbook, error) {
	var lb models.Logbook
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("trainee_id = ? AND week_start = ?", traineeID, weekStart.UTC()).
		First(&lb).Error
	return lb, err
}

// CountClosedOverlapping counts other approved or locked logbooks of the
// trainee whose week overlaps the week starting at weekStart.
func (r *logbookRepository) CountClosedOverlapping(ctx context.Context, traineeID uint, weekStart time.Time, excludeID uint) (int64, error) {
	start := weekStart.UTC()
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Logbook{}).
		Where("trainee_id = ? AND id <> ?", traineeID, excludeID).
		Where("week_start > ? AND week_start < ?", start.AddDate(0, 0, -7), start.AddDate(0, 0, 7)).
		Where("status IN ?", []models.LogbookStatus{models.LogbookStatusApproved, models.LogbookStatusLocked}).
		Count(&count).Error
	return count, err
}

// Transition reads the logbook, hands it to fn and stores the result with a
// compare-and-swap on the previous status. Section locks, entry approval and
// the audit entry are written in the same transaction.
func (r *logbookRepository) Transition(ctx context.Context, id uint, fn TransitionFunc) (models.Logbook, error) {
	var result models.Logbook
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := forUpdate(tx).Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })

		var current models.Logbook
		if err := query.First(&current, id).Error; err != nil {
			return err
		}

		next, audit, err := fn(current)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Logbook{}).
			Where("id = ? AND status = ?", current.ID, current.Status).
			Updates(map[string]interface{}{
				"status":               next.Status,
				"submitted_at":         next.SubmittedAt,
				"review_started_at":    next.ReviewStartedAt,
				"changes_requested_at": next.ChangesRequestedAt,
				"approved_at":          next.ApprovedAt,
				"edit_requested_at":    next.EditRequestedAt,
				"unlocked_at":          next.UnlockedAt,
				"locked_at":            next.LockedAt,
				"updated_at":           next.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleLogbook
		}

		for _, section := range next.Sections {
			if err := tx.Model(&models.LogbookSection{}).
				Where("id = ?", section.ID).
				Updates(map[string]interface{}{
					"is_locked":  section.IsLocked,
					"locked_at":  section.LockedAt,
					"updated_at": section.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		}

		if err := syncEntryApproval(tx, next, audit.ActorID); err != nil {
			return err
		}

		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		result = next
		return nil
	})
	return result, err
}

// forUpdate takes a row lock on the selected logbook where the dialect
// supports it. sqlite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// syncEntryApproval approves every entry of a logbook entering approved and
// withdraws approval when the logbook is reopened for editing.
func syncEntryApproval(tx *gorm.DB, lb models.Logbook, approver *uint) error {
	var values map[string]interface{}
	switch lb.Status {
	case models.LogbookStatusApproved:
		values = map[string]interface{}{"approved": true, "approved_by": approver, "approved_at": lb.ApprovedAt}
	case models.LogbookStatusUnlocked:
		values = map[string]interface{}{"approved": false, "approved_by": nil, "approved_at": nil}
	default:
		return nil
	}

	for _, model := range []interface{}{&models.PracticeEntry{}, &models.ProfessionalDevelopmentEntry{}, &models.SupervisionEntry{}} {
		if err := tx.Model(model).Where("logbook_id = ?", lb.ID).Updates(values).Error; err != nil {
			return err
		}
	}
	return nil
}
