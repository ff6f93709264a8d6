package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrImmutableRecord is returned by hooks guarding append-only tables.
var ErrImmutableRecord = errors.New("record is immutable")

// Audit actions.
const (
	AuditActionTransition         = "logbook.transition"
	AuditActionComment            = "logbook.comment"
	AuditActionComplianceEvaluate = "compliance.evaluate"
)

// AuditEntry is an append-only record of a state change or calculation.
type AuditEntry struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	TraineeID    uint              `gorm:"not null;index" json:"trainee_id"`
	LogbookID    *uint             `gorm:"index" json:"logbook_id"`
	ActorID      *uint             `json:"actor_id"`
	ActorRole    string            `gorm:"size:32;not null" json:"actor_role"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	FromStatus   string            `gorm:"size:32" json:"from_status"`
	ToStatus     string            `gorm:"size:32" json:"to_status"`
	Description  string            `gorm:"type:text" json:"description"`
	DiffSnapshot datatypes.JSONMap `gorm:"type:json" json:"diff_snapshot"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

// BeforeUpdate rejects any modification of a stored audit entry.
func (AuditEntry) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects removal of a stored audit entry.
func (AuditEntry) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}
