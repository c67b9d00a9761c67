package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/cinetwork/cin/backend/apps/api/echo"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
	testutil "github.com/cinetwork/cin/backend/tests"
)

func Test_organizationApi_directory(t *testing.T) {
	app := setup(t)
	green := testutil.CreateOrganization(t, app.orgRepo, "Green Lagos", "green@test.cd")
	blue := testutil.CreateOrganization(t, app.orgRepo, "Blue Accra", "blue@test.cd")
	cinAdmin := testutil.CreateUser(t, app.usrRepo, "Root", "root", "root@test.cd", "", capability.RoleCINAdmin, "", true)
	greenAdmin := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "ada@test.cd", "", capability.RoleOrgAdmin, green.ID, true)
	greenPlayer := testutil.CreateUser(t, app.usrRepo, "Musa", "musa", "musa@test.cd", "", capability.RolePlayer, green.ID, true)

	rootToken := getToken(t, app, cinAdmin)
	adminToken := getToken(t, app, greenAdmin)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	notFound := marchallObj(t, httpErr{Error: "not found"})

	app.run(t, []httpTest{
		{name: "network admin browses", path: "/v1/organizations?ordering=name", token: rootToken, wantData: marchallList(t, blue, green)},
		{name: "search", path: "/v1/organizations?search=lag", token: rootToken, wantData: marchallList(t, green)},
		{name: "org admin cannot browse", path: "/v1/organizations", token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "member reads own", path: "/v1/organizations/" + green.ID, token: getToken(t, app, greenPlayer), wantData: marchallObj(t, green)},
		{name: "outsider", path: "/v1/organizations/" + blue.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "player cannot update", method: http.MethodPut, path: "/v1/organizations/" + green.ID,
			token: getToken(t, app, greenPlayer), body: []byte(`{"name": "Mine"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "org admin cannot create", method: http.MethodPost, path: "/v1/organizations",
			token: adminToken, body: []byte(`{"name": "Red Dakar"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "org admin cannot delete", method: http.MethodDelete, path: "/v1/organizations/" + green.ID,
			token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "cannot delete with members", method: http.MethodDelete, path: "/v1/organizations/" + green.ID,
			token: rootToken, wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: organization.ErrInUse.Error()}),
		},
	})

	t.Run("org admin updates own", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/v1/organizations/"+green.ID, adminToken, []byte(`{"name": "Green Lagos Club"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var org organization.Organization
		unmarchall(t, rec, &org)
		assert.Equal(t, "Green Lagos Club", org.Name)
	})

	t.Run("network admin creates", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/organizations", rootToken, []byte(`{"name": "Red Dakar"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var org organization.Organization
		unmarchall(t, rec, &org)
		assert.NotEmpty(t, org.ID)
		assert.Equal(t, "Red Dakar", org.Name)
	})
}

func Test_organizationApi_grantWorkflow(t *testing.T) {
	app := setup(t)
	green := testutil.CreateOrganization(t, app.orgRepo, "Green Lagos", "green@test.cd")
	blue := testutil.CreateOrganization(t, app.orgRepo, "Blue Accra", "")
	cinAdmin := testutil.CreateUser(t, app.usrRepo, "Root", "root", "root@test.cd", "", capability.RoleCINAdmin, "", true)
	greenAdmin := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "ada@test.cd", "", capability.RoleOrgAdmin, green.ID, true)
	greenPlayer := testutil.CreateUser(t, app.usrRepo, "Musa", "musa", "musa@test.cd", "", capability.RolePlayer, green.ID, true)

	rootToken := getToken(t, app, cinAdmin)
	adminToken := getToken(t, app, greenAdmin)
	grantsPath := "/v1/organizations/" + green.ID + "/grants"
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	app.run(t, []httpTest{
		{
			name: "players cannot request", method: http.MethodPost, path: grantsPath, token: getToken(t, app, greenPlayer),
			body: []byte(`{"type": "mission_creator"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "not for other organizations", method: http.MethodPost, path: "/v1/organizations/" + blue.ID + "/grants",
			token: adminToken, body: []byte(`{"type": "mission_creator"}`), wantCode: http.StatusNotFound,
		},
		{
			name: "unknown type", method: http.MethodPost, path: grantsPath, token: adminToken,
			body: []byte(`{"type": "world_domination"}`), wantCode: http.StatusBadRequest,
		},
		{name: "org admins cannot review", path: "/v1/grants", token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
	})

	// request
	rec := app.do(http.MethodPost, grantsPath, adminToken, []byte(`{"type": "mission_partners"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var grant capability.Grant
	unmarchall(t, rec, &grant)
	assert.Equal(t, capability.GrantMissionCreator, grant.Type)
	assert.Equal(t, capability.StatusPending, grant.Status)
	assert.Equal(t, green.ID, grant.OrganizationID)

	rec = app.do(http.MethodPost, grantsPath, adminToken, []byte(`{"type": "mission_creator"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"type": "`+organization.ErrGrantExists.Error()+`"}`, rec.Body.String())

	// review queue
	app.run(t, []httpTest{
		{name: "pending queue", path: "/v1/grants?status=pending", token: rootToken, wantData: marchallList(t, grant)},
		{name: "approved queue", path: "/v1/grants?status=approved", token: rootToken, wantData: marchallList(t)},
		{name: "own grants", path: grantsPath, token: adminToken, wantData: marchallList(t, grant)},
		{
			name: "org admins cannot decide", method: http.MethodPost, path: "/v1/grants/" + grant.ID + "/approve",
			token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "unknown grant", method: http.MethodPost, path: "/v1/grants/nope/approve", token: rootToken, wantCode: http.StatusNotFound},
	})

	// the feature is off until approval
	rec = app.do(http.MethodGet, "/v1/session", adminToken)
	var sess echoapi.SessionResponse
	unmarchall(t, rec, &sess)
	assert.False(t, sess.Features.HasMissionCreator)

	rec = app.do(http.MethodPost, "/v1/grants/"+grant.ID+"/approve", rootToken, []byte(`{"note": "Welcome aboard"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchall(t, rec, &grant)
	assert.Equal(t, capability.StatusApproved, grant.Status)
	assert.Equal(t, "Welcome aboard", grant.Note)
	assert.Equal(t, cinAdmin.ID, grant.DecidedBy)
	assert.Contains(t, scrapeMetrics(t, app), `cin_capability_decisions_total{status="approved",type="mission_creator"} 1`)

	sent := app.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "green@test.cd", sent[0].To[0].Address)

	rec = app.do(http.MethodPost, "/v1/grants/"+grant.ID+"/reject", rootToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error": "`+organization.ErrGrantDecided.Error()+`"}`, rec.Body.String())

	// the feature is on
	rec = app.do(http.MethodGet, "/v1/session", adminToken)
	unmarchall(t, rec, &sess)
	assert.True(t, sess.Features.HasMissionCreator)

	rec = app.do(http.MethodPost, "/v1/missions", adminToken, []byte(`{"title": "Plant a tree", "points": 10}`))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
