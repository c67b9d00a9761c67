package organization

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
)

// decisionStatus returns the terminal grant status a decision leads to.
func decisionStatus(d core.Decision) (capability.GrantStatus, bool) {
	switch d {
	case core.DecisionApprove:
		return capability.StatusApproved, true
	case core.DecisionReject:
		return capability.StatusRejected, true
	}
	return "", false
}

type Organization struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	ContactEmail string             `json:"contact_email"`
	Grants       []capability.Grant `json:"grants"`
	CreatedAt    time.Time          `json:"created_at"` // UTC
	UpdatedAt    time.Time          `json:"updated_at"` // UTC
}

// View returns what the capability resolver reads of the Organization.
func (o *Organization) View() *capability.Organization {
	if o == nil {
		return nil
	}
	grants := make([]capability.Grant, len(o.Grants))
	copy(grants, o.Grants)
	return &capability.Organization{ID: o.ID, Name: o.Name, Grants: grants}
}

// NewOrganization contains information needed to create a new Organization.
type NewOrganization struct {
	Name         string `json:"name" validate:"required,notblank,max=120"`
	Description  string `json:"description" validate:"max=2000"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

func (no *NewOrganization) Validate(validate *validator.Validate) error {
	no.Name = core.CleanString(no.Name)
	no.Description = core.CleanString(no.Description)
	no.ContactEmail = core.CleanString(no.ContactEmail, true /* lower */)
	return validate.Struct(no)
}

// UpdateOrganization defines what information may be provided to modify an existing Organization.
// Empty fields are left untouched.
type UpdateOrganization struct {
	Name         string `json:"name" validate:"max=120"`
	Description  string `json:"description" validate:"max=2000"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

func (uo *UpdateOrganization) Validate(orig Organization, validate *validator.Validate) error {
	if name := core.CleanString(uo.Name); name != "" {
		uo.Name = name
	} else {
		uo.Name = orig.Name
	}
	if desc := core.CleanString(uo.Description); desc != "" {
		uo.Description = desc
	} else {
		uo.Description = orig.Description
	}
	if email := core.CleanString(uo.ContactEmail, true /* lower */); email != "" {
		uo.ContactEmail = email
	} else {
		uo.ContactEmail = orig.ContactEmail
	}
	return validate.Struct(uo)
}

// GrantRequest is an organization's request for a capability.
type GrantRequest struct {
	Type string `json:"type" validate:"required,granttype"`
}

func (gr *GrantRequest) Validate(validate *validator.Validate) error {
	gr.Type = core.CleanString(gr.Type, true /* lower */)
	return validate.Struct(gr)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type GrantFilter struct {
	OrganizationID string                 `query:"organization_id"`
	Type           capability.GrantType   `query:"type"`
	Status         capability.GrantStatus `query:"status"`
}

// Clean canonicalizes the grant type. Unknown types & statuses are kept: they match nothing.
func (gf *GrantFilter) Clean() {
	gf.OrganizationID = core.CleanString(gf.OrganizationID)
	if ct := gf.Type.Canonical(); ct != "" {
		gf.Type = ct
	}
	gf.Status = capability.GrantStatus(core.CleanString(string(gf.Status), true /* lower */))
}
