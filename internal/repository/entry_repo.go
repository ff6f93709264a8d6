package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/models"
)

// RecordableEntry is implemented by the three entry models.
type RecordableEntry interface {
	AttachTo(logbookID uint)
	Minutes() int64
}

// RecordRequest describes one entry write.
type RecordRequest struct {
	TraineeID    uint
	WeekStart    time.Time
	Section      compliance.Section
	SupervisorID *uint
	Entry        RecordableEntry
}

// EntrySet holds a trainee's entries across all sections.
type EntrySet struct {
	Practice                []models.PracticeEntry
	ProfessionalDevelopment []models.ProfessionalDevelopmentEntry
	Supervision             []models.SupervisionEntry
}

// ComplianceEntries flattens the set into aggregation input.
func (s EntrySet) ComplianceEntries() []compliance.Entry {
	entries := make([]compliance.Entry, 0, len(s.Practice)+len(s.ProfessionalDevelopment)+len(s.Supervision))
	for _, e := range s.Practice {
		entries = append(entries, e.ComplianceEntry())
	}
	for _, e := range s.ProfessionalDevelopment {
		entries = append(entries, e.ComplianceEntry())
	}
	for _, e := range s.Supervision {
		entries = append(entries, e.ComplianceEntry())
	}
	return entries
}

// EntryRepository stores activity entries inside weekly logbooks.
type EntryRepository interface {
	Record(ctx context.Context, req RecordRequest) (models.Logbook, error)
	ListForTrainee(ctx context.Context, traineeID uint) (EntrySet, error)
	CountBySection(ctx context.Context, logbookID uint) (map[compliance.Section]int64, error)
	LastModified(ctx context.Context, traineeID uint) (time.Time, error)
}

type entryRepository struct {
	db *gorm.DB
}

// NewEntryRepository constructs the entry repository.
func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

// Record stores the entry in the trainee's logbook for the week. The draft
// logbook and its sections are created on first use. Locked sections and a
// logbook with a pending edit request refuse the write with ErrSectionLocked.
// The logbook row stays locked until the entry is stored so a concurrent
// submission cannot slip in between the check and the insert.
func (r *entryRepository) Record(ctx context.Context, req RecordRequest) (models.Logbook, error) {
	weekStart := req.WeekStart.UTC()
	var result models.Logbook

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lb, err := findOrCreateLogbook(tx, req.TraineeID, weekStart, req.SupervisorID)
		if err != nil {
			return err
		}

		section, ok := lb.Section(req.Section)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		if section.IsLocked || lb.Status == models.LogbookStatusEditRequested {
			return ErrSectionLocked
		}

		req.Entry.AttachTo(lb.ID)
		if err := tx.Create(req.Entry).Error; err != nil {
			return err
		}

		column := models.SectionMinutesColumn(req.Section)
		if err := tx.Model(&models.Logbook{}).
			Where("id = ?", lb.ID).
			UpdateColumn(column, gorm.Expr(column+" + ?", req.Entry.Minutes())).Error; err != nil {
			return err
		}

		return tx.Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			First(&result, lb.ID).Error
	})
	return result, err
}

func findOrCreateLogbook(tx *gorm.DB, traineeID uint, weekStart time.Time, supervisorID *uint) (models.Logbook, error) {
	var lb models.Logbook
	err := forUpdate(tx).Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("trainee_id = ? AND week_start = ?", traineeID, weekStart).
		First(&lb).Error
	if err == nil {
		return lb, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return lb, err
	}

	lb = models.Logbook{
		TraineeID:    traineeID,
		WeekStart:    weekStart,
		SupervisorID: supervisorID,
		Status:       models.LogbookStatusDraft,
	}
	for _, kind := range compliance.Sections {
		lb.Sections = append(lb.Sections, models.LogbookSection{Kind: kind})
	}
	if err := tx.Create(&lb).Error; err != nil {
		return lb, err
	}
	return lb, nil
}

func (r *entryRepository) ListForTrainee(ctx context.Context, traineeID uint) (EntrySet, error) {
	var set EntrySet
	db := r.db.WithContext(ctx)
	if err := db.Where("trainee_id = ?", traineeID).Order("session_date ASC, id ASC").Find(&set.Practice).Error; err != nil {
		return set, err
	}
	if err := db.Where("trainee_id = ?", traineeID).Order("activity_date ASC, id ASC").Find(&set.ProfessionalDevelopment).Error; err != nil {
		return set, err
	}
	if err := db.Where("trainee_id = ?", traineeID).Order("session_date ASC, id ASC").Find(&set.Supervision).Error; err != nil {
		return set, err
	}
	return set, nil
}

func (r *entryRepository) CountBySection(ctx context.Context, logbookID uint) (map[compliance.Section]int64, error) {
	counts := make(map[compliance.Section]int64, len(compliance.Sections))
	db := r.db.WithContext(ctx)
	sources := map[compliance.Section]interface{}{
		compliance.SectionPractice:                &models.PracticeEntry{},
		compliance.SectionProfessionalDevelopment: &models.ProfessionalDevelopmentEntry{},
		compliance.SectionSupervision:             &models.SupervisionEntry{},
	}
	for section, model := range sources {
		var count int64
		if err := db.Model(model).Where("logbook_id = ?", logbookID).Count(&count).Error; err != nil {
			return nil, err
		}
		counts[section] = count
	}
	return counts, nil
}

// LastModified returns the latest updated_at across the trainee's entries, or
// the zero time when none exist.
func (r *entryRepository) LastModified(ctx context.Context, traineeID uint) (time.Time, error) {
	var latest time.Time
	db := r.db.WithContext(ctx)
	for _, model := range []interface{}{&models.PracticeEntry{}, &models.ProfessionalDevelopmentEntry{}, &models.SupervisionEntry{}} {
		var rows []time.Time
		if err := db.Model(model).
			Where("trainee_id = ?", traineeID).
			Order("updated_at DESC").
			Limit(1).
			Pluck("updated_at", &rows).Error; err != nil {
			return time.Time{}, err
		}
		if len(rows) > 0 && rows[0].After(latest) {
			latest = rows[0]
		}
	}
	return latest, nil
}
