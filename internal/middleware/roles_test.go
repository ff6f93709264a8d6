package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type roleName string

func (r roleName) String() string { return string(r) }

func TestNormalizeRoleClaims(t *testing.T) {
	cases := []struct {
		name  string
		claim interface{}
		want  string
	}{
		{"plain", "Supervisor", RoleSupervisor},
		{"padded", "  admin ", RoleAdmin},
		{"unknown", "auditor", ""},
		{"list picks first known", []interface{}{"auditor", 7, "TRAINEE", "admin"}, RoleTrainee},
		{"string list", []string{"", "supervisor"}, RoleSupervisor},
		{"number", 3, ""},
		{"missing", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, normalizeRole(tc.claim))
		})
	}
}

func TestNormalizeRoleValue(t *testing.T) {
	require.Equal(t, "trainee", normalizeRoleValue(" Trainee "))
	require.Equal(t, "supervisor", normalizeRoleValue(roleName("SUPERVISOR")))
	require.Equal(t, "42", normalizeRoleValue(42))
	require.Equal(t, "", normalizeRoleValue(nil))
}
