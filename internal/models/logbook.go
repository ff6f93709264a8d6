package models

import (
	"time"

	"github.com/noah-isme/praxis-api/internal/compliance"
)

// LogbookStatus is the review state of a weekly logbook.
type LogbookStatus string

const (
	LogbookStatusDraft            LogbookStatus = "draft"
	LogbookStatusSubmitted        LogbookStatus = "submitted"
	LogbookStatusUnderReview      LogbookStatus = "under_review"
	LogbookStatusChangesRequested LogbookStatus = "changes_requested"
	LogbookStatusApproved         LogbookStatus = "approved"
	LogbookStatusEditRequested    LogbookStatus = "edit_requested"
	LogbookStatusUnlocked         LogbookStatus = "unlocked"
	LogbookStatusLocked           LogbookStatus = "locked"
)

// LogbookStatuses lists every status in workflow order.
var LogbookStatuses = []LogbookStatus{
	LogbookStatusDraft,
	LogbookStatusSubmitted,
	LogbookStatusUnderReview,
	LogbookStatusChangesRequested,
	LogbookStatusApproved,
	LogbookStatusEditRequested,
	LogbookStatusUnlocked,
	LogbookStatusLocked,
}

// Valid reports whether s is a known status.
func (s LogbookStatus) Valid() bool {
	for _, status := range LogbookStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Logbook groups a trainee's entries for one week and carries the review state.
type Logbook struct {
	ID                             uint             `gorm:"primaryKey" json:"id"`
	TraineeID                      uint             `gorm:"not null;uniqueIndex:idx_logbook_trainee_week" json:"trainee_id"`
	WeekStart                      time.Time        `gorm:"not null;uniqueIndex:idx_logbook_trainee_week" json:"week_start"`
	SupervisorID                   *uint            `gorm:"index" json:"supervisor_id"`
	Status                         LogbookStatus    `gorm:"size:32;not null;default:draft;index" json:"status"`
	FinalWeek                      bool             `gorm:"not null;default:false" json:"final_week"`
	PracticeMinutes                int64            `gorm:"not null;default:0" json:"practice_minutes"`
	ProfessionalDevelopmentMinutes int64            `gorm:"not null;default:0" json:"professional_development_minutes"`
	SupervisionMinutes             int64            `gorm:"not null;default:0" json:"supervision_minutes"`
	SubmittedAt                    *time.Time       `json:"submitted_at"`
	ReviewStartedAt                *time.Time       `json:"review_started_at"`
	ChangesRequestedAt             *time.Time       `json:"changes_requested_at"`
	ApprovedAt                     *time.Time       `json:"approved_at"`
	EditRequestedAt                *time.Time       `json:"edit_requested_at"`
	UnlockedAt                     *time.Time       `json:"unlocked_at"`
	LockedAt                       *time.Time       `json:"locked_at"`
	CreatedAt                      time.Time        `json:"created_at"`
	UpdatedAt                      time.Time        `json:"updated_at"`
	Sections                       []LogbookSection `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"sections"`
}

// SectionMinutes returns the running total recorded for a section.
func (l Logbook) SectionMinutes(section compliance.Section) int64 {
	switch section {
	case compliance.SectionPractice:
		return l.PracticeMinutes
	case compliance.SectionProfessionalDevelopment:
		return l.ProfessionalDevelopmentMinutes
	case compliance.SectionSupervision:
		return l.SupervisionMinutes
	default:
		return 0
	}
}

// TotalMinutes sums every section.
func (l Logbook) TotalMinutes() int64 {
	return l.PracticeMinutes + l.ProfessionalDevelopmentMinutes + l.SupervisionMinutes
}

// Section returns the section of the given kind when loaded.
func (l Logbook) Section(kind compliance.Section) (LogbookSection, bool) {
	for _, section := range l.Sections {
		if section.Kind == kind {
			return section, true
		}
	}
	return LogbookSection{}, false
}

// SectionMinutesColumn maps a section to the logbook column holding its total.
func SectionMinutesColumn(section compliance.Section) string {
	switch section {
	case compliance.SectionPractice:
		return "practice_minutes"
	case compliance.SectionProfessionalDevelopment:
		return "professional_development_minutes"
	case compliance.SectionSupervision:
		return "supervision_minutes"
	default:
		return ""
	}
}

// LogbookSection is one of the three fixed sections of a logbook.
type LogbookSection struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	LogbookID uint               `gorm:"not null;uniqueIndex:idx_section_logbook_kind" json:"logbook_id"`
	Kind      compliance.Section `gorm:"size:32;not null;uniqueIndex:idx_section_logbook_kind" json:"kind"`
	IsLocked  bool               `gorm:"not null;default:false" json:"is_locked"`
	LockedAt  *time.Time         `json:"locked_at"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
