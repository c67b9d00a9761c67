package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/core/capability"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestEnforcer_Allow(t *testing.T) {
	enf, err := NewEnforcer(nopLogger{})
	require.NoError(t, err)

	tests := []struct {
		name string
		role capability.Role
		obj  string
		act  string
		want bool
	}{
		{"player reads session", capability.RolePlayer, Session, ActRead, true},
		{"player cannot list users", capability.RolePlayer, Users, ActList, false},
		{"player cannot create missions", capability.RolePlayer, Missions, ActCreate, false},
		{"player submits evidence", capability.RolePlayer, Submissions, ActCreate, true},
		{"player cannot review submissions", capability.RolePlayer, Submissions, ActReview, false},
		{"org_admin inherits player", capability.RoleOrgAdmin, Redemptions, ActCreate, true},
		{"org_admin creates missions", capability.RoleOrgAdmin, Missions, ActCreate, true},
		{"org_admin requests grants", capability.RoleOrgAdmin, Grants, ActCreate, true},
		{"org_admin cannot decide grants", capability.RoleOrgAdmin, Grants, ActReview, false},
		{"org_admin cannot list users", capability.RoleOrgAdmin, Users, ActList, false},
		{"org_admin cannot create organizations", capability.RoleOrgAdmin, Organizations, ActCreate, false},
		{"cin_admin decides grants", capability.RoleCINAdmin, Grants, ActReview, true},
		{"cin_admin lists users", capability.RoleCINAdmin, Users, ActList, true},
		{"cin_admin inherits org_admin", capability.RoleCINAdmin, Missions, ActUpdate, true},
		{"unknown role acts as player", capability.Role("root"), Session, ActRead, true},
		{"unknown role denied admin actions", capability.Role("root"), Users, ActList, false},
		{"unknown resource", capability.RoleCINAdmin, "secrets", ActRead, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, enf.Allow(tc.role, tc.obj, tc.act))
		})
	}
}

func TestEnforcer_GrantRevoke(t *testing.T) {
	enf, err := NewEnforcer(nopLogger{})
	require.NoError(t, err)

	require.NoError(t, enf.Grant(capability.RolePlayer, Grants, ActList))
	assert.True(t, enf.Allow(capability.RolePlayer, Grants, ActList))

	require.NoError(t, enf.Revoke(capability.RolePlayer, Grants, ActList))
	assert.False(t, enf.Allow(capability.RolePlayer, Grants, ActList))
	assert.True(t, enf.Allow(capability.RoleOrgAdmin, Grants, ActList), "default policy untouched")
}
