package organization

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound      = errors.New("organization not found")
	ErrInUse         = errors.New("organization still has members, missions or rewards")
	ErrGrantNotFound = errors.New("capability grant not found")
	ErrGrantExists   = errors.New("this capability is already granted or awaiting review")
	ErrGrantDecided  = errors.New("this capability request has already been decided")
)

type (
	Repository interface {
		CreateOrganization(ctx context.Context, org Organization) (Organization, error)
		// QueryOrganizations returns organizations with their grants.
		// QueryFilter.Search does a case-insensitive match on Organization.Name or Organization.ContactEmail.
		QueryOrganizations(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Organization, error)
		GetOrganization(ctx context.Context, id string) (Organization, error)
		UpdateOrganization(ctx context.Context, org Organization) (Organization, error)
		// DeleteOrganization fails with ErrInUse while users, missions or rewards reference it.
		DeleteOrganization(ctx context.Context, id string) error

		// CreateGrant fails with ErrGrantExists if a pending or approved grant of the same type exists.
		CreateGrant(ctx context.Context, grant capability.Grant) (capability.Grant, error)
		QueryGrants(ctx context.Context, filter *GrantFilter) ([]capability.Grant, error)
		GetGrant(ctx context.Context, id string) (capability.Grant, error)
		// DecideGrant sets the terminal status of a pending grant; fails with ErrGrantDecided otherwise.
		DecideGrant(ctx context.Context, grant capability.Grant) (capability.Grant, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, validate: validate}
}

func (svc *Service) Create(ctx context.Context, no NewOrganization) (Organization, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Organization{}, err
	}
	now := NowFunc().UTC()
	org := Organization{
		Name:         no.Name,
		Description:  no.Description,
		ContactEmail: no.ContactEmail,
		Grants:       []capability.Grant{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateOrganization(ctx, org)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Organization, error) {
	return svc.repo.QueryOrganizations(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganization(ctx, id)
}

// Session returns the resolver's view of the organization with the given id.
// A missing organization is not an error: the session then has no organization.
func (svc *Service) Session(ctx context.Context, id string) (*capability.Organization, error) {
	if id == "" {
		return nil, nil
	}
	org, err := svc.repo.GetOrganization(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "loading session organization")
	}
	return org.View(), nil
}

func (svc *Service) Update(ctx context.Context, id string, uo UpdateOrganization) (Organization, error) {
	org, err := svc.repo.GetOrganization(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	if err = uo.Validate(org, svc.validate); err != nil {
		return Organization{}, err
	}
	org.Name = uo.Name
	org.Description = uo.Description
	org.ContactEmail = uo.ContactEmail
	org.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateOrganization(ctx, org)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteOrganization(ctx, id)
}

// RequestGrant files a pending capability request for the organization.
func (svc *Service) RequestGrant(ctx context.Context, orgID string, req GrantRequest) (capability.Grant, error) {
	if err := req.Validate(svc.validate); err != nil {
		return capability.Grant{}, err
	}
	gt, _ := capability.ParseGrantType(req.Type)

	if _, err := svc.repo.GetOrganization(ctx, orgID); err != nil {
		return capability.Grant{}, err
	}

	grant, err := svc.repo.CreateGrant(ctx, capability.Grant{
		OrganizationID: orgID,
		Type:           gt,
		Status:         capability.StatusPending,
		RequestedAt:    NowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrGrantExists {
			return capability.Grant{}, core.NewFieldError("type", ErrGrantExists)
		}
		return capability.Grant{}, err
	}
	return grant, nil
}

func (svc *Service) QueryGrants(ctx context.Context, filter *GrantFilter) ([]capability.Grant, error) {
	return svc.repo.QueryGrants(ctx, filter)
}

func (svc *Service) GetGrant(ctx context.Context, id string) (capability.Grant, error) {
	return svc.repo.GetGrant(ctx, id)
}

// DecideGrant approves or rejects a pending grant, then notifies the organization.
func (svc *Service) DecideGrant(ctx context.Context, id string, decision core.Decision, reviewerID string, rn core.ReviewNote) (capability.Grant, error) {
	status, ok := decisionStatus(decision)
	if !ok {
		return capability.Grant{}, errors.Errorf("unknown grant decision %q", decision)
	}
	if err := rn.Validate(svc.validate); err != nil {
		return capability.Grant{}, err
	}

	grant, err := svc.repo.GetGrant(ctx, id)
	if err != nil {
		return capability.Grant{}, err
	}
	if grant.Status.IsDecided() {
		return capability.Grant{}, ErrGrantDecided
	}

	grant.Status = status
	grant.Note = rn.Note
	grant.DecidedBy = reviewerID
	grant.DecidedAt = NowFunc().UTC()
	grant, err = svc.repo.DecideGrant(ctx, grant)
	if err != nil {
		return capability.Grant{}, err
	}

	if org, err := svc.repo.GetOrganization(ctx, grant.OrganizationID); err == nil {
		svc.sendDecisionMail(org, grant)
	}
	return grant, nil
}

func (svc *Service) sendDecisionMail(org Organization, grant capability.Grant) {
	if svc.mailSvc == nil || org.ContactEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: org.Name, Address: org.ContactEmail}},
		Subject:      fmt.Sprintf("Capability request %s", grant.Status),
		TemplateName: "grant_decision",
		TemplateData: map[string]interface{}{
			"Organization": org.Name,
			"Type":         string(grant.Type),
			"Status":       string(grant.Status),
			"Note":         grant.Note,
		},
	})
}
