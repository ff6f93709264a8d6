package middleware

import (
	"fmt"
	"strings"

	"github.com/noah-isme/praxis-api/internal/logbook"
)

// Roles carried in bearer tokens. They match the workflow actor roles.
const (
	RoleTrainee    = logbook.RoleTrainee
	RoleSupervisor = logbook.RoleSupervisor
	RoleAdmin      = logbook.RoleAdmin
)

// normalizeRole picks the first recognised role from a string or list claim.
func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return knownRole(v)
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := knownRole(str); role != "" {
					return role
				}
			}
		}
	case []string:
		for _, item := range v {
			if role := knownRole(item); role != "" {
				return role
			}
		}
	}
	return ""
}

func knownRole(raw string) string {
	role := strings.ToLower(strings.TrimSpace(raw))
	switch role {
	case RoleTrainee, RoleSupervisor, RoleAdmin:
		return role
	default:
		return ""
	}
}

// normalizeRoleValue lowercases whatever an upstream middleware stored under
// LocalUserRole.
func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
