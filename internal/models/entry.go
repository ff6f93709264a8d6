package models

import (
	"time"

	"github.com/noah-isme/praxis-api/internal/compliance"
)

// PracticeEntry is a logged block of psychological practice.
type PracticeEntry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TraineeID       uint       `gorm:"not null;index" json:"trainee_id"`
	LogbookID       uint       `gorm:"not null;index" json:"logbook_id"`
	SessionDate     time.Time  `gorm:"not null;index" json:"session_date"`
	DurationMinutes int64      `gorm:"not null" json:"duration_minutes"`
	ActivityType    string     `gorm:"size:32;not null" json:"activity_type"`
	Simulated       bool       `gorm:"not null;default:false" json:"simulated"`
	ObservationType string     `gorm:"size:32" json:"observation_type"`
	Description     string     `gorm:"type:text" json:"description"`
	Approved        bool       `gorm:"not null;default:false" json:"approved"`
	ApprovedBy      *uint      `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ComplianceEntry returns the aggregation view of the entry.
func (e PracticeEntry) ComplianceEntry() compliance.Entry {
	return compliance.Entry{
		Section:     compliance.SectionPractice,
		Date:        e.SessionDate,
		Minutes:     e.DurationMinutes,
		Approved:    e.Approved,
		Activity:    compliance.PracticeActivity(e.ActivityType),
		Simulated:   e.Simulated,
		Observation: compliance.ObservationKind(e.ObservationType),
	}
}

// ProfessionalDevelopmentEntry is a logged professional development activity.
type ProfessionalDevelopmentEntry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TraineeID       uint       `gorm:"not null;index" json:"trainee_id"`
	LogbookID       uint       `gorm:"not null;index" json:"logbook_id"`
	ActivityDate    time.Time  `gorm:"not null;index" json:"activity_date"`
	DurationMinutes int64      `gorm:"not null" json:"duration_minutes"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Provider        string     `gorm:"size:255" json:"provider"`
	CPD             bool       `gorm:"column:cpd;not null" json:"cpd"`
	Active          bool       `gorm:"not null;default:false" json:"active"`
	Approved        bool       `gorm:"not null;default:false" json:"approved"`
	ApprovedBy      *uint      `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ComplianceEntry returns the aggregation view of the entry.
func (e ProfessionalDevelopmentEntry) ComplianceEntry() compliance.Entry {
	return compliance.Entry{
		Section:   compliance.SectionProfessionalDevelopment,
		Date:      e.ActivityDate,
		Minutes:   e.DurationMinutes,
		Approved:  e.Approved,
		CPD:       e.CPD,
		ActiveCPD: e.CPD && e.Active,
	}
}

// SupervisionEntry is a logged supervision session.
type SupervisionEntry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TraineeID       uint       `gorm:"not null;index" json:"trainee_id"`
	LogbookID       uint       `gorm:"not null;index" json:"logbook_id"`
	SupervisorID    uint       `gorm:"not null;index" json:"supervisor_id"`
	SessionDate     time.Time  `gorm:"not null;index" json:"session_date"`
	DurationMinutes int64      `gorm:"not null" json:"duration_minutes"`
	Mode            string     `gorm:"size:32;not null" json:"mode"`
	Format          string     `gorm:"size:32;not null;default:in_person" json:"format"`
	Direct          bool       `gorm:"not null" json:"direct"`
	Principal       bool       `gorm:"not null;default:false" json:"principal"`
	Cultural        bool       `gorm:"not null;default:false" json:"cultural"`
	Summary         string     `gorm:"type:text" json:"summary"`
	Approved        bool       `gorm:"not null;default:false" json:"approved"`
	ApprovedBy      *uint      `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ComplianceEntry returns the aggregation view of the entry.
func (e SupervisionEntry) ComplianceEntry() compliance.Entry {
	return compliance.Entry{
		Section:   compliance.SectionSupervision,
		Date:      e.SessionDate,
		Minutes:   e.DurationMinutes,
		Approved:  e.Approved,
		Mode:      compliance.SupervisionMode(e.Mode),
		Direct:    e.Direct,
		Principal: e.Principal,
		Cultural:  e.Cultural,
		Format:    compliance.SupervisionFormat(e.Format),
	}
}

// AttachTo sets the owning logbook.
func (e *PracticeEntry) AttachTo(logbookID uint) { e.LogbookID = logbookID }

// Minutes returns the entry duration.
func (e *PracticeEntry) Minutes() int64 { return e.DurationMinutes }

// AttachTo sets the owning logbook.
func (e *ProfessionalDevelopmentEntry) AttachTo(logbookID uint) { e.LogbookID = logbookID }

// Minutes returns the entry duration.
func (e *ProfessionalDevelopmentEntry) Minutes() int64 { return e.DurationMinutes }

// AttachTo sets the owning logbook.
func (e *SupervisionEntry) AttachTo(logbookID uint) { e.LogbookID = logbookID }

// Minutes returns the entry duration.
func (e *SupervisionEntry) Minutes() int64 { return e.DurationMinutes }
