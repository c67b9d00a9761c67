package mission

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("mission not found")
	ErrInUse    = errors.New("mission has submissions, deactivate it instead")
)

type (
	Repository interface {
		CreateMission(ctx context.Context, m Mission) (Mission, error)
		// QueryMissions applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Mission.Title.
		QueryMissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Mission, error)
		GetMission(ctx context.Context, id string) (Mission, error)
		UpdateMission(ctx context.Context, m Mission) (Mission, error)
		// DeleteMission fails with ErrInUse once the mission has submissions.
		DeleteMission(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Create adds a Mission to the organization. Missions are active unless told otherwise.
func (svc *Service) Create(ctx context.Context, orgID, creatorID string, nm NewMission) (Mission, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Mission{}, err
	}
	isActive := true
	if nm.IsActive != nil {
		isActive = *nm.IsActive
	}

	now := NowFunc().UTC()
	return svc.repo.CreateMission(ctx, Mission{
		OrganizationID: orgID,
		Title:          nm.Title,
		Description:    nm.Description,
		Points:         nm.Points,
		Badge:          nm.Badge,
		StartsAt:       nm.StartsAt,
		EndsAt:         nm.EndsAt,
		IsActive:       isActive,
		CreatedBy:      creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Mission, error) {
	return svc.repo.QueryMissions(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Mission, error) {
	return svc.repo.GetMission(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Mission, um UpdateMission) (Mission, error) {
	if err := um.Validate(orig, svc.validate); err != nil {
		return Mission{}, err
	}
	m := orig
	m.Title = um.Title
	m.Description = um.Description
	m.Points = um.Points
	m.Badge = *um.Badge
	m.StartsAt = um.StartsAt
	m.EndsAt = um.EndsAt
	m.IsActive = *um.IsActive
	m.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateMission(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMission(ctx, id)
}
