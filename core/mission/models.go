package mission

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cinetwork/cin/backend/core"
)

type Mission struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Points         int        `json:"points"`
	Badge          string     `json:"badge"`
	StartsAt       *time.Time `json:"starts_at"` // UTC
	EndsAt         *time.Time `json:"ends_at"`   // UTC
	IsActive       bool       `json:"is_active"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

// IsOpen reports whether the mission accepts submissions at t.
func (m *Mission) IsOpen(t time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.StartsAt != nil && t.Before(*m.StartsAt) {
		return false
	}
	if m.EndsAt != nil && t.After(*m.EndsAt) {
		return false
	}
	return true
}

// NewMission contains information needed to create a new Mission.
type NewMission struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Points      int        `json:"points" validate:"min=1,max=10000"`
	Badge       string     `json:"badge" validate:"max=60"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    *bool      `json:"is_active"`
}

func (nm *NewMission) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.Badge = core.CleanString(nm.Badge)
	nm.StartsAt = utcPtr(nm.StartsAt)
	nm.EndsAt = utcPtr(nm.EndsAt)
	return validate.Struct(nm)
}

// UpdateMission defines what information may be provided to modify an existing Mission.
// Empty fields are left untouched.
type UpdateMission struct {
	Title       string     `json:"title" validate:"max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Points      int        `json:"points" validate:"min=1,max=10000"`
	Badge       *string    `json:"badge" validate:"omitempty,max=60"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    *bool      `json:"is_active"`
}

func (um *UpdateMission) Validate(orig Mission, validate *validator.Validate) error {
	if title := core.CleanString(um.Title); title != "" {
		um.Title = title
	} else {
		um.Title = orig.Title
	}
	if desc := core.CleanString(um.Description); desc != "" {
		um.Description = desc
	} else {
		um.Description = orig.Description
	}
	if um.Points == 0 {
		um.Points = orig.Points
	}
	if um.Badge != nil {
		badge := core.CleanString(*um.Badge)
		um.Badge = &badge
	} else {
		um.Badge = &orig.Badge
	}
	if um.StartsAt == nil {
		um.StartsAt = orig.StartsAt
	}
	if um.EndsAt == nil {
		um.EndsAt = orig.EndsAt
	}
	um.StartsAt = utcPtr(um.StartsAt)
	um.EndsAt = utcPtr(um.EndsAt)
	if um.IsActive == nil {
		um.IsActive = &orig.IsActive
	}
	return validate.Struct(um)
}

type QueryFilter struct {
	Search         string `query:"search"`
	OrganizationID string `query:"organization_id"`
	IsActive       *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.OrganizationID = core.CleanString(qf.OrganizationID)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
