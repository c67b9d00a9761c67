package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/user"
	emailsvc "github.com/cinetwork/cin/backend/services/email"
	inmemdb "github.com/cinetwork/cin/backend/storage/database/inmem"
	testutil "github.com/cinetwork/cin/backend/tests"
)

const pwd = "Gr33n!Leaf#42"

type fixture struct {
	svc     *user.Service
	repo    user.Repository
	orgRepo organization.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conf := core.NewTestConfig()
	validate, _ := testutil.NewValidator()
	mailSvc := testutil.NewMailService(t, conf)
	db := inmemdb.NewDB()
	repo := inmemdb.NewUserRepository(db)
	return fixture{
		svc:     user.NewService(repo, mailSvc, validate, conf),
		repo:    repo,
		orgRepo: inmemdb.NewOrganizationRepository(db),
		mailSvc: mailSvc,
	}
}

// failedTags maps the failed fields of a validation error to their failed tag.
func failedTags(t *testing.T, err error) map[string]string {
	t.Helper()
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "expected validator.ValidationErrors, got %T: %v", err, err)
	tags := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	require.True(t, core.IsValidationError(err), "expected *core.ValidationError, got %T: %v", err, err)
	vErr := err.(*core.ValidationError)
	require.Len(t, vErr.Fields, 1)
	return vErr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := testutil.CreateOrganization(t, f.orgRepo, "Green Club", "")
	testutil.CreateUser(t, f.repo, "Taken", "taken", "taken@cin.org", "", capability.RolePlayer, org.ID, true)

	t.Run("player defaults", func(t *testing.T) {
		usr, err := f.svc.Create(ctx, user.NewUser{
			Name:            "Jane Doe",
			Username:        " JaneD ",
			OrganizationID:  org.ID,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
		require.NoError(t, err)
		assert.Equal(t, "janed", usr.Username)
		assert.Equal(t, capability.RolePlayer, usr.Role)
		assert.True(t, usr.Active())
		assert.Equal(t, 0, usr.Points)
		assert.Equal(t, []string{}, usr.Badges)
		assert.NoError(t, usr.CheckPassword(pwd))
	})

	tests := []struct {
		name     string
		nu       user.NewUser
		wantTags map[string]string
	}{
		{
			name:     "no username nor email",
			nu:       user.NewUser{Name: "Jane", OrganizationID: org.ID, Password: pwd, PasswordConfirm: pwd},
			wantTags: map[string]string{"username": "username_or_email", "email": "username_or_email"},
		},
		{
			name:     "player without organization",
			nu:       user.NewUser{Name: "Jane", Username: "jane", Password: pwd, PasswordConfirm: pwd},
			wantTags: map[string]string{"organization_id": "orgrequired"},
		},
		{
			name:     "network admin in an organization",
			nu:       user.NewUser{Name: "Jane", Username: "jane", Role: "cin_admin", OrganizationID: org.ID, Password: pwd, PasswordConfirm: pwd},
			wantTags: map[string]string{"organization_id": "orgforbidden"},
		},
		{
			name:     "unknown role",
			nu:       user.NewUser{Name: "Jane", Username: "jane", Role: "root", OrganizationID: org.ID, Password: pwd, PasswordConfirm: pwd},
			wantTags: map[string]string{"role": "role"},
		},
		{
			name:     "password mismatch",
			nu:       user.NewUser{Name: "Jane", Username: "jane", OrganizationID: org.ID, Password: pwd, PasswordConfirm: pwd + "x"},
			wantTags: map[string]string{"password_confirm": "eqfield"},
		},
		{
			name:     "short password",
			nu:       user.NewUser{Name: "Jane", Username: "jane", OrganizationID: org.ID, Password: "Ab1!", PasswordConfirm: "Ab1!"},
			wantTags: map[string]string{"password": "pwdminlen"},
		},
		{
			name:     "numeric password",
			nu:       user.NewUser{Name: "Jane", Username: "jane", OrganizationID: org.ID, Password: "12345678901", PasswordConfirm: "12345678901"},
			wantTags: map[string]string{"password": "pwdnotallnum"},
		},
		{
			name:     "simple password",
			nu:       user.NewUser{Name: "Jane", Username: "jane", OrganizationID: org.ID, Password: "greenleaf42", PasswordConfirm: "greenleaf42"},
			wantTags: map[string]string{"password": "pwdcplx"},
		},
		{
			name:     "password similar to username",
			nu:       user.NewUser{Name: "Jane", Username: "greenleaf", OrganizationID: org.ID, Password: "Gr33nLeaf!", PasswordConfirm: "Gr33nLeaf!"},
			wantTags: map[string]string{"password": "pwdtoosim"},
		},
		{
			name:     "common password",
			nu:       user.NewUser{Name: "Jane", Username: "jane", OrganizationID: org.ID, Password: "P@ssw0rd1", PasswordConfirm: "P@ssw0rd1"},
			wantTags: map[string]string{"password": "pwdnocommon"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.nu)
			tags := failedTags(t, err)
			for fld, tag := range tc.wantTags {
				assert.Equal(t, tag, tags[fld], fld)
			}
		})
	}

	t.Run("username taken", func(t *testing.T) {
		_, err := f.svc.Create(ctx, user.NewUser{Name: "Jane", Username: "Taken", OrganizationID: org.ID, Password: pwd, PasswordConfirm: pwd})
		assert.Equal(t, "username", fieldOf(t, err))
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := f.svc.Create(ctx, user.NewUser{Name: "Jane", Email: "TAKEN@cin.org", OrganizationID: org.ID, Password: pwd, PasswordConfirm: pwd})
		assert.Equal(t, "email", fieldOf(t, err))
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := f.svc.Create(ctx, user.NewUser{Name: "Jane", Username: "jane2", OrganizationID: "nope", Password: pwd, PasswordConfirm: pwd})
		assert.Equal(t, "organization_id", fieldOf(t, err))
	})
}

func TestService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := testutil.CreateOrganization(t, f.orgRepo, "Green Club", "")
	other := testutil.CreateOrganization(t, f.orgRepo, "Blue Ocean", "")
	usr := testutil.CreateUser(t, f.repo, "Jane", "jane", "jane@cin.org", pwd, capability.RolePlayer, org.ID, true)
	testutil.CreateUser(t, f.repo, "Bob", "bob", "bob@cin.org", "", capability.RolePlayer, org.ID, true)

	t.Run("partial update keeps the rest", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Jane Doe"})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", updated.Name)
		assert.Equal(t, "jane", updated.Username)
		assert.Equal(t, org.ID, updated.OrganizationID)
		assert.NoError(t, updated.CheckPassword(pwd))
	})

	t.Run("move to another organization", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, usr.ID, user.UpdateUser{Role: "org_admin", OrganizationID: other.ID})
		require.NoError(t, err)
		assert.Equal(t, capability.RoleOrgAdmin, updated.Role)
		assert.Equal(t, other.ID, updated.OrganizationID)
	})

	t.Run("promotion to network admin leaves the organization", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, usr.ID, user.UpdateUser{Role: "cin_admin"})
		require.NoError(t, err)
		assert.Equal(t, capability.RoleCINAdmin, updated.Role)
		assert.Empty(t, updated.OrganizationID)
	})

	t.Run("username of another user", func(t *testing.T) {
		_, err := f.svc.Update(ctx, usr.ID, user.UpdateUser{Username: "bob"})
		assert.Equal(t, "username", fieldOf(t, err))
	})

	t.Run("deactivate", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, usr.ID, user.UpdateUser{IsActive: testutil.BoolPtr(false)})
		require.NoError(t, err)
		assert.False(t, updated.Active())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.svc.Update(ctx, "nope", user.UpdateUser{Name: "x"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestService_UserPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "Jane", "jane", "", "", capability.RoleCINAdmin, "", true)

	points, err := f.svc.UserPoints(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, points)

	_, err = f.svc.UserPoints(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_PasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "Jane", "jane", "jane@cin.org", pwd, capability.RoleCINAdmin, "", true)
	testutil.CreateUser(t, f.repo, "Gone", "gone", "gone@cin.org", pwd, capability.RoleCINAdmin, "", false)

	assert.Equal(t, user.ErrNotFound, f.svc.RequestPasswordReset(ctx, "nobody@cin.org"))
	assert.Equal(t, user.ErrNotFound, f.svc.RequestPasswordReset(ctx, "gone@cin.org"))
	assert.Empty(t, f.mailSvc.SentMessages())

	require.NoError(t, f.svc.RequestPasswordReset(ctx, " JANE@cin.org "))
	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@cin.org", sent[0].To[0].Address)
	data := sent[0].TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)
	assert.Equal(t, user.EncodeUID(usr), uid)
	assert.Contains(t, sent[0].TextContent, token)

	newPwd := "Bl0ssom?Tree7"
	t.Run("invalid uid", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: "!!", Token: token, Password: newPwd, PasswordConfirm: newPwd})
		assert.Equal(t, "uid", fieldOf(t, err))
	})

	t.Run("invalid token", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "abc-def", Password: newPwd, PasswordConfirm: newPwd})
		assert.Equal(t, "token", fieldOf(t, err))
	})

	t.Run("weak password", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "weak", PasswordConfirm: "weak"})
		assert.Equal(t, "pwdminlen", failedTags(t, err)["password"])
	})

	t.Run("reset", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
		require.NoError(t, err)

		updated, err := f.svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.NoError(t, updated.CheckPassword(newPwd))
	})

	t.Run("token is single use", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
		assert.Equal(t, "token", fieldOf(t, err))
	})
}

func TestService_SetLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "Jane", "jane", "", "", capability.RoleCINAdmin, "", true)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = time.Now }()

	usr, err := f.svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, now, usr.LastLogin)
}
