package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/cinetwork/cin/backend/assets"
	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/user"
	emailsvc "github.com/cinetwork/cin/backend/services/email"
	logsvc "github.com/cinetwork/cin/backend/services/logger"
	"github.com/cinetwork/cin/backend/storage/database"
)

// NewValidator returns a validator with every domain validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	organization.InitValidators(validate, translator)
	mission.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that discards everything.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
}

// NewMailService parses the email templates (strictly) and returns a mail service recording what it sends.
func NewMailService(t *testing.T, conf *core.Config) *emailsvc.ConsoleServiceMock {
	t.Helper()
	if err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf.FrontendBaseURL, true); err != nil {
		t.Fatalf("NewMailService() failed: %v", err)
	}
	return emailsvc.NewConsoleServiceMock(conf)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role capability.Role,
	orgID string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:           name,
		Username:       uname,
		Email:          email,
		Role:           role,
		OrganizationID: orgID,
		Badges:         []string{},
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateOrganization creates an organization holding grants of the given types & statuses, in order.
func CreateOrganization(
	t *testing.T,
	repo organization.Repository,
	name, contactEmail string,
	grants ...capability.Grant,
) organization.Organization {
	ctx := context.Background()
	now := time.Now().UTC()
	org, err := repo.CreateOrganization(ctx, organization.Organization{
		Name:         name,
		ContactEmail: contactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateOrganization() failed: %v", err)
	}

	for i, g := range grants {
		status := g.Status
		g.OrganizationID = org.ID
		g.Status = capability.StatusPending
		g.RequestedAt = now.Add(time.Duration(i) * time.Millisecond)
		if g, err = repo.CreateGrant(ctx, g); err != nil {
			t.Fatalf("CreateOrganization().CreateGrant() failed: %v", err)
		}
		if status.IsDecided() {
			g.Status = status
			g.DecidedAt = now
			if _, err = repo.DecideGrant(ctx, g); err != nil {
				t.Fatalf("CreateOrganization().DecideGrant() failed: %v", err)
			}
		}
	}

	if org, err = repo.GetOrganization(ctx, org.ID); err != nil {
		t.Fatalf("CreateOrganization() failed: %v", err)
	}
	return org
}

func CreateMission(t *testing.T, repo mission.Repository, orgID, title string, points int, badge string, isActive bool) mission.Mission {
	now := time.Now().UTC()
	m, err := repo.CreateMission(context.Background(), mission.Mission{
		OrganizationID: orgID,
		Title:          title,
		Points:         points,
		Badge:          badge,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateMission() failed: %v", err)
	}
	return m
}

func CreateReward(t *testing.T, repo reward.Repository, orgID, name string, cost int, stock *int, isActive bool) reward.Reward {
	now := time.Now().UTC()
	r, err := repo.CreateReward(context.Background(), reward.Reward{
		OrganizationID: orgID,
		Name:           name,
		Cost:           cost,
		Stock:          stock,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateReward() failed: %v", err)
	}
	return r
}

// PrepareDB opens, migrates and empties the Postgres database at TEST_DATABASE_URL.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Truncate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func IntPtr(i int) *int    { return &i }
func BoolPtr(b bool) *bool { return &b }
