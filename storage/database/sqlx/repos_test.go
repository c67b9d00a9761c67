package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
	sqlxrepos "github.com/cinetwork/cin/backend/storage/database/sqlx"
	testutil "github.com/cinetwork/cin/backend/tests"
)

func TestOrganizationRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	orgRepo := sqlxrepos.NewOrganizationRepository(db)
	userRepo := sqlxrepos.NewUserRepository(db)

	org := testutil.CreateOrganization(
		t, orgRepo, "Green Club", "green@club.org",
		capability.Grant{Type: capability.GrantPlayerOrg, Status: capability.StatusApproved},
		capability.Grant{Type: capability.GrantMissionCreator, Status: capability.StatusPending},
	)
	require.Len(t, org.Grants, 2)
	assert.Equal(t, capability.GrantPlayerOrg, org.Grants[0].Type)
	assert.Equal(t, capability.StatusApproved, org.Grants[0].Status)
	assert.False(t, org.Grants[0].DecidedAt.IsZero())
	assert.True(t, org.Grants[1].DecidedAt.IsZero())

	t.Run("duplicate open grant", func(t *testing.T) {
		_, err := orgRepo.CreateGrant(ctx, capability.Grant{
			OrganizationID: org.ID,
			Type:           capability.GrantMissionCreator,
			Status:         capability.StatusPending,
			RequestedAt:    time.Now(),
		})
		assert.Equal(t, organization.ErrGrantExists, err)
	})

	t.Run("decide twice", func(t *testing.T) {
		g := org.Grants[1]
		g.Status = capability.StatusRejected
		g.DecidedAt = time.Now()
		decided, err := orgRepo.DecideGrant(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, capability.StatusRejected, decided.Status)

		_, err = orgRepo.DecideGrant(ctx, g)
		assert.Equal(t, organization.ErrGrantDecided, err)
	})

	t.Run("search", func(t *testing.T) {
		testutil.CreateOrganization(t, orgRepo, "Blue_Ocean", "blue@ocean.org")
		orgs, err := orgRepo.QueryOrganizations(ctx, &organization.QueryFilter{Search: "club"}, nil)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		assert.Equal(t, org.ID, orgs[0].ID)
		assert.Len(t, orgs[0].Grants, 2)

		orgs, err = orgRepo.QueryOrganizations(ctx, &organization.QueryFilter{Search: "_"}, nil)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		assert.Equal(t, "Blue_Ocean", orgs[0].Name)
	})

	t.Run("delete in use", func(t *testing.T) {
		testutil.CreateUser(t, userRepo, "Ada", "ada", "ada@club.org", "", capability.RoleOrgAdmin, org.ID, true)
		assert.Equal(t, organization.ErrInUse, orgRepo.DeleteOrganization(ctx, org.ID))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := orgRepo.GetOrganization(ctx, "not-an-id")
		assert.Equal(t, organization.ErrNotFound, err)
		_, err = orgRepo.GetGrant(ctx, "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, organization.ErrGrantNotFound, err)
	})
}

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	now := time.Now().UTC()
	alice := testutil.CreateUser(t, repo, "Alice", "alice", "alice@cin.org", "", capability.RoleCINAdmin, "", true, now.Add(-time.Hour))
	bob := testutil.CreateUser(t, repo, "Bob", "", "bob@cin.org", "", capability.RolePlayer, "", false, now)

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUniqueness(ctx, "alice", "x@cin.org", ""))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, "bobby", "bob@cin.org", ""))
		assert.NoError(t, repo.CheckUniqueness(ctx, "alice", "alice@cin.org", alice.ID))
		assert.NoError(t, repo.CheckUniqueness(ctx, "", "", ""))
	})

	t.Run("create duplicate", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Name: "Alice 2", Email: "alice@cin.org", Role: capability.RolePlayer, CreatedAt: now, UpdatedAt: now})
		assert.Equal(t, user.ErrEmailExists, err)
	})

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"bob@cin.org"}})
		require.NoError(t, err)
		assert.Equal(t, bob.ID, usr.ID)
		assert.Equal(t, "", usr.Username)
		assert.False(t, usr.Active())
		assert.Equal(t, []string{}, usr.Badges)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: "nope"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		users, err := repo.QueryUsers(ctx, &user.QueryFilter{IsActive: testutil.BoolPtr(true)}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{"player", "org_admin"}}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, bob.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, alice.ID, users[0].ID)
	})

	t.Run("update keeps points", func(t *testing.T) {
		usr := bob
		usr.Name = "Robert"
		usr.Points = 1000
		usr, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, "Robert", usr.Name)
		assert.Equal(t, 0, usr.Points)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUsers(ctx, bob.ID, "garbage"))
		_, err := repo.GetUser(ctx, user.GetFilter{ID: bob.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestReviews(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	orgRepo := sqlxrepos.NewOrganizationRepository(db)
	userRepo := sqlxrepos.NewUserRepository(db)
	missionRepo := sqlxrepos.NewMissionRepository(db)
	subRepo := sqlxrepos.NewSubmissionRepository(db)
	rewardRepo := sqlxrepos.NewRewardRepository(db)

	org := testutil.CreateOrganization(t, orgRepo, "Green Club", "green@club.org")
	player := testutil.CreateUser(t, userRepo, "Pat", "pat", "pat@club.org", "", capability.RolePlayer, org.ID, true)
	m := testutil.CreateMission(t, missionRepo, org.ID, "Plant a tree", 50, "planter", true)
	now := time.Now().UTC()

	submit := func() submission.Submission {
		s, err := subRepo.CreateSubmission(ctx, submission.Submission{
			MissionID:      m.ID,
			OrganizationID: org.ID,
			UserID:         player.ID,
			Evidence:       "done",
			Status:         submission.StatusPending,
			CreatedAt:      now,
		})
		require.NoError(t, err)
		return s
	}
	approve := func(s submission.Submission) (submission.Submission, error) {
		s.Status = submission.StatusApproved
		s.ReviewedAt = &now
		return subRepo.ReviewSubmission(ctx, s, submission.Award{Points: m.Points, Badge: m.Badge})
	}

	t.Run("submission", func(t *testing.T) {
		s := submit()
		_, err := subRepo.CreateSubmission(ctx, s)
		assert.Equal(t, submission.ErrAlreadySubmitted, err)

		reviewed, err := approve(s)
		require.NoError(t, err)
		assert.Equal(t, submission.StatusApproved, reviewed.Status)
		assert.Equal(t, 50, reviewed.AwardedPoints)

		_, err = approve(s)
		assert.Equal(t, submission.ErrAlreadyReviewed, err)

		usr, err := userRepo.GetUser(ctx, user.GetFilter{ID: player.ID})
		require.NoError(t, err)
		assert.Equal(t, 50, usr.Points)
		assert.Equal(t, []string{"planter"}, usr.Badges)
	})

	t.Run("redemption", func(t *testing.T) {
		rwd := testutil.CreateReward(t, rewardRepo, org.ID, "Bike day", 30, testutil.IntPtr(1), true)
		redeem := func() reward.Redemption {
			rd, err := rewardRepo.CreateRedemption(ctx, reward.Redemption{
				RewardID:       rwd.ID,
				OrganizationID: org.ID,
				UserID:         player.ID,
				Code:           reward.NewCode(),
				Status:         reward.StatusPending,
				Cost:           rwd.Cost,
				CreatedAt:      now,
			})
			require.NoError(t, err)
			return rd
		}
		first, second := redeem(), redeem()

		first.Status = reward.StatusApproved
		first.ReviewedAt = &now
		reviewed, err := rewardRepo.ReviewRedemption(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, reward.StatusApproved, reviewed.Status)

		// 20 points left, out of stock: the points check comes first
		second.Status = reward.StatusApproved
		_, err = rewardRepo.ReviewRedemption(ctx, second)
		assert.Equal(t, reward.ErrInsufficientPoints, err)

		usr, err := userRepo.GetUser(ctx, user.GetFilter{ID: player.ID})
		require.NoError(t, err)
		assert.Equal(t, 20, usr.Points)
		rwd, err = rewardRepo.GetReward(ctx, rwd.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, *rwd.Stock)

		found, err := rewardRepo.GetRedemptionByCode(ctx, second.Code)
		require.NoError(t, err)
		assert.Equal(t, reward.StatusPending, found.Status)

		assert.Equal(t, reward.ErrInUse, rewardRepo.DeleteReward(ctx, rwd.ID))
	})
}
