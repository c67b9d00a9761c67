package submission_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
	inmemdb "github.com/cinetwork/cin/backend/storage/database/inmem"
	testutil "github.com/cinetwork/cin/backend/tests"
)

type fixture struct {
	svc      *submission.Service
	missions mission.Repository
	users    user.Repository
}

func newFixture() fixture {
	validate, _ := testutil.NewValidator()
	db := inmemdb.NewDB()
	missions := inmemdb.NewMissionRepository(db)
	return fixture{
		svc:      submission.NewService(inmemdb.NewSubmissionRepository(db), missions, validate),
		missions: missions,
		users:    inmemdb.NewUserRepository(db),
	}
}

func validationErr(t *testing.T, err error) error {
	t.Helper()
	require.True(t, core.IsValidationError(err), "expected *core.ValidationError, got %T: %v", err, err)
	return err.(*core.ValidationError).Err
}

func TestService_Submit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	open := testutil.CreateMission(t, f.missions, "org-id", "Plant a tree", 50, "", true)
	closed := testutil.CreateMission(t, f.missions, "org-id", "Bike to work", 5, "", false)

	t.Run("invalid evidence", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, open.ID, "user-id", submission.NewSubmission{Evidence: "Done", EvidenceURL: "not a url"})
		assert.IsType(t, validator.ValidationErrors{}, err)
	})

	t.Run("unknown mission", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, "nope", "user-id", submission.NewSubmission{Evidence: "Done"})
		assert.Equal(t, mission.ErrNotFound, err)
	})

	t.Run("closed mission", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, closed.ID, "user-id", submission.NewSubmission{Evidence: "Done"})
		assert.Equal(t, submission.ErrMissionClosed, validationErr(t, err))
	})

	t.Run("submit", func(t *testing.T) {
		s, err := f.svc.Submit(ctx, open.ID, "user-id", submission.NewSubmission{
			Evidence:    " Planted an oak ",
			EvidenceURL: "https://photos.example.org/oak.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, "Planted an oak", s.Evidence)
		assert.Equal(t, open.ID, s.MissionID)
		assert.Equal(t, "org-id", s.OrganizationID)
		assert.Equal(t, submission.StatusPending, s.Status)
		assert.Nil(t, s.ReviewedAt)
	})

	t.Run("already submitted", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, open.ID, "user-id", submission.NewSubmission{Evidence: "Again"})
		assert.Equal(t, submission.ErrAlreadySubmitted, validationErr(t, err))
	})

	t.Run("after the mission ended", func(t *testing.T) {
		submission.NowFunc = func() time.Time { return time.Now().Add(48 * time.Hour) }
		defer func() { submission.NowFunc = time.Now }()

		ends := time.Now().Add(24 * time.Hour)
		m, err := f.missions.UpdateMission(ctx, mission.Mission{ID: open.ID, Title: open.Title, Points: open.Points, EndsAt: &ends, IsActive: true})
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, m.ID, "other-id", submission.NewSubmission{Evidence: "Late"})
		assert.Equal(t, submission.ErrMissionClosed, validationErr(t, err))
	})
}

func TestService_Review(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	submission.NowFunc = func() time.Time { return now }
	defer func() { submission.NowFunc = time.Now }()

	org := "org-id"
	tree := testutil.CreateMission(t, f.missions, org, "Plant a tree", 50, "Arborist", true)
	oak := testutil.CreateMission(t, f.missions, org, "Plant an oak", 20, "Arborist", true)
	bike := testutil.CreateMission(t, f.missions, org, "Bike to work", 5, "", true)
	usr := testutil.CreateUser(t, f.users, "Jane", "jane", "", "", capability.RolePlayer, org, true)

	submit := func(m mission.Mission) submission.Submission {
		s, err := f.svc.Submit(ctx, m.ID, usr.ID, submission.NewSubmission{Evidence: "Done"})
		require.NoError(t, err)
		return s
	}
	balance := func() (int, []string) {
		u, err := f.users.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		return u.Points, u.Badges
	}

	t.Run("unknown decision", func(t *testing.T) {
		_, err := f.svc.Review(ctx, submit(bike), core.Decision("maybe"), "admin-id", core.ReviewNote{})
		assert.Error(t, err)
	})

	t.Run("approve awards points and badge", func(t *testing.T) {
		s, err := f.svc.Review(ctx, submit(tree), core.DecisionApprove, "admin-id", core.ReviewNote{Note: " well done "})
		require.NoError(t, err)
		assert.Equal(t, submission.StatusApproved, s.Status)
		assert.Equal(t, 50, s.AwardedPoints)
		assert.Equal(t, "well done", s.ReviewNote)
		assert.Equal(t, "admin-id", s.ReviewedBy)
		require.NotNil(t, s.ReviewedAt)
		assert.Equal(t, now, *s.ReviewedAt)

		points, badges := balance()
		assert.Equal(t, 50, points)
		assert.Equal(t, []string{"Arborist"}, badges)

		_, err = f.svc.Review(ctx, s, core.DecisionApprove, "admin-id", core.ReviewNote{})
		assert.Equal(t, submission.ErrAlreadyReviewed, err)
	})

	t.Run("stale copy is reviewed once", func(t *testing.T) {
		s := submit(oak)
		_, err := f.svc.Review(ctx, s, core.DecisionApprove, "admin-id", core.ReviewNote{})
		require.NoError(t, err)
		_, err = f.svc.Review(ctx, s, core.DecisionApprove, "other-admin", core.ReviewNote{})
		assert.Equal(t, submission.ErrAlreadyReviewed, err)

		points, badges := balance()
		assert.Equal(t, 70, points)
		assert.Equal(t, []string{"Arborist"}, badges, "badge is not duplicated")
	})

	t.Run("reject awards nothing and allows a new submission", func(t *testing.T) {
		pending, err := f.svc.Query(ctx, &submission.QueryFilter{MissionID: bike.ID, Status: submission.StatusPending}, nil)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		s, err := f.svc.Review(ctx, pending[0], core.DecisionReject, "admin-id", core.ReviewNote{})
		require.NoError(t, err)
		assert.Equal(t, submission.StatusRejected, s.Status)
		assert.Equal(t, 0, s.AwardedPoints)

		points, _ := balance()
		assert.Equal(t, 70, points)

		_, err = f.svc.Submit(ctx, bike.ID, usr.ID, submission.NewSubmission{Evidence: "Second try"})
		assert.NoError(t, err)
	})
}
