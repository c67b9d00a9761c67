package mission_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/submission"
	inmemdb "github.com/cinetwork/cin/backend/storage/database/inmem"
	testutil "github.com/cinetwork/cin/backend/tests"
)

func newService() (*mission.Service, *inmemdb.DB) {
	validate, _ := testutil.NewValidator()
	db := inmemdb.NewDB()
	return mission.NewService(inmemdb.NewMissionRepository(db), validate), db
}

func TestMission_IsOpen(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Hour), now.Add(time.Hour)

	tests := []struct {
		name string
		m    mission.Mission
		want bool
	}{
		{"active, no schedule", mission.Mission{IsActive: true}, true},
		{"inactive", mission.Mission{IsActive: false}, false},
		{"not started", mission.Mission{IsActive: true, StartsAt: &after}, false},
		{"started", mission.Mission{IsActive: true, StartsAt: &before}, true},
		{"ended", mission.Mission{IsActive: true, EndsAt: &before}, false},
		{"running", mission.Mission{IsActive: true, StartsAt: &before, EndsAt: &after}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.m.IsOpen(now))
		})
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	starts := time.Date(2024, 4, 1, 0, 0, 0, 0, time.FixedZone("WAT", 3600))
	ends := starts.Add(-time.Hour)

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			nm      mission.NewMission
			wantFld string
			wantTag string
		}{
			{"blank title", mission.NewMission{Title: "  ", Points: 10}, "title", "required"},
			{"no points", mission.NewMission{Title: "Plant a tree"}, "points", "min"},
			{"ends before it starts", mission.NewMission{Title: "Plant a tree", Points: 10, StartsAt: &starts, EndsAt: &ends}, "ends_at", "schedule"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Create(ctx, "org-id", "creator-id", tc.nm)
				vErrs, ok := err.(validator.ValidationErrors)
				require.True(t, ok, "got %T: %v", err, err)
				require.Len(t, vErrs, 1)
				assert.Equal(t, tc.wantFld, vErrs[0].Field())
				assert.Equal(t, tc.wantTag, vErrs[0].Tag())
			})
		}
	})

	t.Run("defaults to active", func(t *testing.T) {
		m, err := svc.Create(ctx, "org-id", "creator-id", mission.NewMission{
			Title:    " Plant a tree ",
			Points:   50,
			Badge:    " Arborist ",
			StartsAt: &starts,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "Plant a tree", m.Title)
		assert.Equal(t, "Arborist", m.Badge)
		assert.Equal(t, "org-id", m.OrganizationID)
		assert.Equal(t, "creator-id", m.CreatedBy)
		assert.True(t, m.IsActive)
		require.NotNil(t, m.StartsAt)
		assert.Equal(t, time.UTC, m.StartsAt.Location())
		assert.True(t, m.StartsAt.Equal(starts))
		assert.Nil(t, m.EndsAt)
	})

	t.Run("inactive", func(t *testing.T) {
		m, err := svc.Create(ctx, "org-id", "creator-id", mission.NewMission{Title: "Bike to work", Points: 5, IsActive: testutil.BoolPtr(false)})
		require.NoError(t, err)
		assert.False(t, m.IsActive)
	})
}

func TestService_Update(t *testing.T) {
	svc, db := newService()
	ctx := context.Background()
	orig := testutil.CreateMission(t, inmemdb.NewMissionRepository(db), "org-id", "Plant a tree", 50, "Arborist", true)

	m, err := svc.Update(ctx, orig, mission.UpdateMission{Points: 80})
	require.NoError(t, err)
	assert.Equal(t, 80, m.Points)
	assert.Equal(t, "Plant a tree", m.Title)
	assert.Equal(t, "Arborist", m.Badge)
	assert.True(t, m.IsActive)

	empty := ""
	m, err = svc.Update(ctx, m, mission.UpdateMission{Badge: &empty, IsActive: testutil.BoolPtr(false)})
	require.NoError(t, err)
	assert.Empty(t, m.Badge)
	assert.False(t, m.IsActive)

	got, err := svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Points)
	assert.False(t, got.IsActive)
}

func TestService_Delete(t *testing.T) {
	svc, db := newService()
	ctx := context.Background()
	repo := inmemdb.NewMissionRepository(db)
	unused := testutil.CreateMission(t, repo, "org-id", "Plant a tree", 50, "", true)
	used := testutil.CreateMission(t, repo, "org-id", "Bike to work", 5, "", true)

	_, err := inmemdb.NewSubmissionRepository(db).CreateSubmission(ctx, submission.Submission{
		MissionID: used.ID,
		UserID:    "user-id",
		Status:    submission.StatusPending,
	})
	require.NoError(t, err)

	assert.NoError(t, svc.Delete(ctx, unused.ID))
	assert.Equal(t, mission.ErrNotFound, svc.Delete(ctx, unused.ID))
	assert.Equal(t, mission.ErrInUse, svc.Delete(ctx, used.ID))
}

func TestService_Query(t *testing.T) {
	svc, db := newService()
	ctx := context.Background()
	repo := inmemdb.NewMissionRepository(db)
	testutil.CreateMission(t, repo, "green", "Plant a tree", 50, "", true)
	testutil.CreateMission(t, repo, "green", "Plant flowers", 10, "", false)
	testutil.CreateMission(t, repo, "blue", "Clean the beach", 30, "", true)

	missions, err := svc.Query(ctx, &mission.QueryFilter{Search: "PLANT"}, nil)
	require.NoError(t, err)
	assert.Len(t, missions, 2)

	missions, err = svc.Query(ctx, &mission.QueryFilter{OrganizationID: "green", IsActive: testutil.BoolPtr(true)}, nil)
	require.NoError(t, err)
	require.Len(t, missions, 1)
	assert.Equal(t, "Plant a tree", missions[0].Title)
}
