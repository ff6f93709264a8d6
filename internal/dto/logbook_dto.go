package dto

import (
	"time"

	"github.com/noah-isme/praxis-api/internal/models"
)

// LogbookSectionResponse serializes a logbook section.
type LogbookSectionResponse struct {
	Kind     string     `json:"kind"`
	IsLocked bool       `json:"is_locked"`
	LockedAt *time.Time `json:"locked_at"`
	Minutes  int64      `json:"minutes"`
}

// LogbookResponse serializes a weekly logbook.
type LogbookResponse struct {
	ID                 uint                     `json:"id"`
	TraineeID          uint                     `json:"trainee_id"`
	WeekStart          string                   `json:"week_start"`
	SupervisorID       *uint                    `json:"supervisor_id"`
	Status             string                   `json:"status"`
	FinalWeek          bool                     `json:"final_week"`
	TotalMinutes       int64                    `json:"total_minutes"`
	Sections           []LogbookSectionResponse `json:"sections"`
	NextStatuses       []string                 `json:"next_statuses"`
	SubmittedAt        *time.Time               `json:"submitted_at"`
	ReviewStartedAt    *time.Time               `json:"review_started_at"`
	ChangesRequestedAt *time.Time               `json:"changes_requested_at"`
	ApprovedAt         *time.Time               `json:"approved_at"`
	EditRequestedAt    *time.Time               `json:"edit_requested_at"`
	UnlockedAt         *time.Time               `json:"unlocked_at"`
	LockedAt           *time.Time               `json:"locked_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// NewLogbookResponse converts a logbook. next lists the statuses reachable
// from the current one.
func NewLogbookResponse(lb models.Logbook, next []models.LogbookStatus) LogbookResponse {
	resp := LogbookResponse{
		ID:                 lb.ID,
		TraineeID:          lb.TraineeID,
		WeekStart:          lb.WeekStart.Format(dateLayout),
		SupervisorID:       lb.SupervisorID,
		Status:             string(lb.Status),
		FinalWeek:          lb.FinalWeek,
		TotalMinutes:       lb.TotalMinutes(),
		Sections:           make([]LogbookSectionResponse, 0, len(lb.Sections)),
		NextStatuses:       make([]string, 0, len(next)),
		SubmittedAt:        lb.SubmittedAt,
		ReviewStartedAt:    lb.ReviewStartedAt,
		ChangesRequestedAt: lb.ChangesRequestedAt,
		ApprovedAt:         lb.ApprovedAt,
		EditRequestedAt:    lb.EditRequestedAt,
		UnlockedAt:         lb.UnlockedAt,
		LockedAt:           lb.LockedAt,
		UpdatedAt:          lb.UpdatedAt,
	}
	for _, section := range lb.Sections {
		resp.Sections = append(resp.Sections, LogbookSectionResponse{
			Kind:     string(section.Kind),
			IsLocked: section.IsLocked,
			LockedAt: section.LockedAt,
			Minutes:  lb.SectionMinutes(section.Kind),
		})
	}
	for _, status := range next {
		resp.NextStatuses = append(resp.NextStatuses, string(status))
	}
	return resp
}

// TransitionRequest asks for a logbook status change.
type TransitionRequest struct {
	To   string `json:"to" validate:"required,oneof=draft submitted under_review changes_requested approved edit_requested unlocked locked"`
	Note string `json:"note" validate:"max=2000"`
}

// CloseRequest asks for an approved logbook to be locked.
type CloseRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// AuditEntryResponse serializes an audit entry.
type AuditEntryResponse struct {
	ID           uint                   `json:"id"`
	TraineeID    uint                   `json:"trainee_id"`
	LogbookID    *uint                  `json:"logbook_id"`
	ActorID      *uint                  `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	Action       string                 `json:"action"`
	FromStatus   string                 `json:"from_status,omitempty"`
	ToStatus     string                 `json:"to_status,omitempty"`
	Description  string                 `json:"description,omitempty"`
	DiffSnapshot map[string]interface{} `json:"diff_snapshot"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewAuditEntryResponse converts an audit entry.
func NewAuditEntryResponse(entry models.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:           entry.ID,
		TraineeID:    entry.TraineeID,
		LogbookID:    entry.LogbookID,
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		Action:       entry.Action,
		FromStatus:   entry.FromStatus,
		ToStatus:     entry.ToStatus,
		Description:  entry.Description,
		DiffSnapshot: map[string]interface{}(entry.DiffSnapshot),
		CreatedAt:    entry.CreatedAt,
	}
}

// AuditListResponse wraps a paginated audit trail.
type AuditListResponse struct {
	Items      []AuditEntryResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// CommentCreateRequest is the payload for a new review comment.
type CommentCreateRequest struct {
	Scope    string `json:"scope" validate:"required,oneof=logbook practice professional_development supervision entry"`
	EntryID  *uint  `json:"entry_id" validate:"required_if=Scope entry"`
	ParentID *uint  `json:"parent_id"`
	Body     string `json:"body" validate:"required,max=4000"`
}

// CommentResponse serializes a comment.
type CommentResponse struct {
	ID         uint      `json:"id"`
	LogbookID  uint      `json:"logbook_id"`
	AuthorID   uint      `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Scope      string    `json:"scope"`
	EntryID    *uint     `json:"entry_id"`
	ParentID   *uint     `json:"parent_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentResponse converts a comment.
func NewCommentResponse(c models.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		LogbookID:  c.LogbookID,
		AuthorID:   c.AuthorID,
		AuthorRole: c.AuthorRole,
		Scope:      string(c.Scope),
		EntryID:    c.EntryID,
		ParentID:   c.ParentID,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}
