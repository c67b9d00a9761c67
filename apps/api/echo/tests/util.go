package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/cinetwork/cin/backend/apps/api/echo"
	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
	"github.com/cinetwork/cin/backend/services/authz"
	emailsvc "github.com/cinetwork/cin/backend/services/email"
	metricsvc "github.com/cinetwork/cin/backend/services/metrics"
	inmemdb "github.com/cinetwork/cin/backend/storage/database/inmem"
	testutil "github.com/cinetwork/cin/backend/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*echoapi.Server
	usrRepo     user.Repository
	orgRepo     organization.Repository
	missionRepo mission.Repository
	rewardRepo  reward.Repository
	mailSvc     *emailsvc.ConsoleServiceMock
	metrics     *metricsvc.Metrics
}

func setup(t *testing.T) testApp {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	orgRepo := inmemdb.NewOrganizationRepository(db)
	missionRepo := inmemdb.NewMissionRepository(db)
	rewardRepo := inmemdb.NewRewardRepository(db)

	// set up services
	mailSvc := testutil.NewMailService(t, conf)
	usrSvc := user.NewService(usrRepo, mailSvc, validate, conf)
	enforcer, err := authz.NewEnforcer(logger)
	require.NoError(t, err)
	metrics := metricsvc.New()

	// set up server
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Enforcer:      enforcer,
		Metrics:       metrics,
		UserSvc:       usrSvc,
		OrgSvc:        organization.NewService(orgRepo, mailSvc, validate),
		MissionSvc:    mission.NewService(missionRepo, validate),
		SubmissionSvc: submission.NewService(inmemdb.NewSubmissionRepository(db), missionRepo, validate),
		RewardSvc:     reward.NewService(rewardRepo, usrSvc, validate),
	})
	t.Cleanup(func() { _ = srv.Close() })

	return testApp{
		Server:      srv,
		usrRepo:     usrRepo,
		orgRepo:     orgRepo,
		missionRepo: missionRepo,
		rewardRepo:  rewardRepo,
		mailSvc:     mailSvc,
		metrics:     metrics,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves the request and returns the recorded response.
func (app testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func (app testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func getToken(t *testing.T, app testApp, usr user.User) string {
	token, err := app.GenerateToken(app.UserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// scrapeMetrics returns what prometheus would scrape off the app.
func scrapeMetrics(t *testing.T, app testApp) string {
	t.Helper()
	rec := httptest.NewRecorder()
	app.metrics.Handler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
