package dto

import (
	"time"

	"github.com/noah-isme/praxis-api/internal/models"
)

// PracticeEntryRequest records a practice session.
type PracticeEntryRequest struct {
	SessionDate     string `json:"session_date" validate:"required,datetime=2006-01-02"`
	DurationMinutes int64  `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	ActivityType    string `json:"activity_type" validate:"required,oneof=client_contact client_related other"`
	Simulated       bool   `json:"simulated"`
	ObservationType string `json:"observation_type" validate:"omitempty,oneof=assessment intervention"`
	Description     string `json:"description" validate:"max=2000"`
}

// ProfessionalDevelopmentEntryRequest records a professional development activity.
type ProfessionalDevelopmentEntryRequest struct {
	ActivityDate    string `json:"activity_date" validate:"required,datetime=2006-01-02"`
	DurationMinutes int64  `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	Title           string `json:"title" validate:"required,max=255"`
	Provider        string `json:"provider" validate:"max=255"`
	CPD             *bool  `json:"cpd"`
	Active          bool   `json:"active"`
}

// SupervisionEntryRequest records a supervision session.
type SupervisionEntryRequest struct {
	SessionDate     string `json:"session_date" validate:"required,datetime=2006-01-02"`
	DurationMinutes int64  `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	SupervisorID    uint   `json:"supervisor_id" validate:"required"`
	Mode            string `json:"mode" validate:"required,oneof=individual group"`
	Format          string `json:"format" validate:"omitempty,oneof=in_person video phone"`
	Direct          *bool  `json:"direct"`
	Cultural        bool   `json:"cultural"`
	Summary         string `json:"summary" validate:"max=4000"`
}

// EntryResponse reports a stored entry and its logbook.
type EntryResponse struct {
	ID        uint            `json:"id"`
	Section   string          `json:"section"`
	Date      string          `json:"date"`
	Minutes   int64           `json:"minutes"`
	Simulated bool            `json:"simulated,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Logbook   LogbookResponse `json:"logbook"`
}

// NewPracticeEntryResponse converts a stored practice entry.
func NewPracticeEntryResponse(e models.PracticeEntry, logbook LogbookResponse) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		Section:   "practice",
		Date:      e.SessionDate.Format(dateLayout),
		Minutes:   e.DurationMinutes,
		Simulated: e.Simulated,
		CreatedAt: e.CreatedAt,
		Logbook:   logbook,
	}
}

// NewProfessionalDevelopmentEntryResponse converts a stored development entry.
func NewProfessionalDevelopmentEntryResponse(e models.ProfessionalDevelopmentEntry, logbook LogbookResponse) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		Section:   "professional_development",
		Date:      e.ActivityDate.Format(dateLayout),
		Minutes:   e.DurationMinutes,
		CreatedAt: e.CreatedAt,
		Logbook:   logbook,
	}
}

// NewSupervisionEntryResponse converts a stored supervision entry.
func NewSupervisionEntryResponse(e models.SupervisionEntry, logbook LogbookResponse) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		Section:   "supervision",
		Date:      e.SessionDate.Format(dateLayout),
		Minutes:   e.DurationMinutes,
		CreatedAt: e.CreatedAt,
		Logbook:   logbook,
	}
}
