package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/noah-isme/praxis-api/internal/compliance"
)

// Trainee is a person accruing supervised practice towards registration.
type Trainee struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	UserID               uint              `gorm:"uniqueIndex;not null" json:"user_id"`
	Name                 string            `gorm:"size:255;not null" json:"name"`
	Email                string            `gorm:"size:255;uniqueIndex;not null" json:"email"`
	ProgramType          string            `gorm:"size:32;not null" json:"program_type"`
	Track                string            `gorm:"size:32;not null;default:general" json:"track"`
	StartDate            time.Time         `gorm:"not null" json:"start_date"`
	PriorHours           datatypes.JSONMap `gorm:"type:json" json:"prior_hours"`
	PriorHoursDeclaredAt *time.Time        `json:"prior_hours_declared_at"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// DeclaredPriorHours decodes the prior-hours declaration into bucket totals.
// Values may be stored as JSON numbers or numeric strings.
func (t Trainee) DeclaredPriorHours() (map[compliance.Bucket]decimal.Decimal, error) {
	if len(t.PriorHours) == 0 {
		return nil, nil
	}

	hours := make(map[compliance.Bucket]decimal.Decimal, len(t.PriorHours))
	for key, raw := range t.PriorHours {
		var (
			value decimal.Decimal
			err   error
		)
		switch v := raw.(type) {
		case float64:
			value = decimal.NewFromFloat(v)
		case int:
			value = decimal.NewFromInt(int64(v))
		case int64:
			value = decimal.NewFromInt(v)
		case json.Number:
			value, err = decimal.NewFromString(v.String())
		case string:
			value, err = decimal.NewFromString(strings.TrimSpace(v))
		default:
			err = fmt.Errorf("unsupported value type %T", raw)
		}
		if err != nil {
			return nil, fmt.Errorf("prior hours %q: %w", key, err)
		}
		hours[compliance.Bucket(key)] = value
	}
	return hours, nil
}

// Supervisor roles within an assignment.
const (
	SupervisorRolePrincipal = "principal"
	SupervisorRoleSecondary = "secondary"
)

// SupervisorAssignment links a supervisor to a trainee. Only accepted
// assignments grant review authority.
type SupervisorAssignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TraineeID    uint       `gorm:"not null;uniqueIndex:idx_assignment_pair" json:"trainee_id"`
	SupervisorID uint       `gorm:"not null;uniqueIndex:idx_assignment_pair;index" json:"supervisor_id"`
	Role         string     `gorm:"size:32;not null;default:principal" json:"role"`
	Accepted     bool       `gorm:"not null;default:false" json:"accepted"`
	AcceptedAt   *time.Time `json:"accepted_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
