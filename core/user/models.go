package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
)

type User struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	IsActive       *bool           `json:"is_active"`
	Role           capability.Role `json:"role"`
	OrganizationID string          `json:"organization_id"`
	Points         int             `json:"points"`
	Badges         []string        `json:"badges"`
	PasswordHash   []byte          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
	LastLogin      time.Time       `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

// Active reports whether the account may log in. A nil IsActive counts as active.
func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func (u *User) IsCINAdmin() bool { return u.Role == capability.RoleCINAdmin }
func (u *User) IsOrgAdmin() bool { return u.Role == capability.RoleOrgAdmin }
func (u *User) IsPlayer() bool   { return u.Role == capability.RolePlayer }

// BelongsTo reports whether the user is a member of the organization.
func (u *User) BelongsTo(orgID string) bool {
	return orgID != "" && u.OrganizationID == orgID
}

func (u *User) HasBadge(badge string) bool {
	for _, b := range u.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// Identity is what gets reported along with the user's errors.
func (u *User) Identity() core.Identity {
	return core.Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Username        string `json:"username" validate:"omitempty,min=3,max=60,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,role"`
	OrganizationID  string `json:"organization_id"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.OrganizationID = core.CleanString(nu.OrganizationID)
	if nu.Role = core.CleanString(nu.Role, true /* lower */); nu.Role == "" {
		nu.Role = string(capability.RolePlayer)
	}
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields are left untouched.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=3,max=60,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,role"`
	OrganizationID  string `json:"organization_id"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(orig User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = orig.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = string(orig.Role)
	}
	if orgID := core.CleanString(uu.OrganizationID); orgID != "" {
		uu.OrganizationID = orgID
	} else if capability.Role(uu.Role).IsOrgScoped() {
		uu.OrganizationID = orig.OrganizationID
	}
	return validate.Struct(uu)
}

// RoleChanged reports whether the update modifies the role or the organization of `orig`.
func (uu *UpdateUser) RoleChanged(orig User) bool {
	return uu.Role != string(orig.Role) || uu.OrganizationID != orig.OrganizationID
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	rp.UID = core.CleanString(rp.UID)
	return validate.Struct(rp)
}

// GetFilter finds one User, by ID or by any of the given usernames/emails.
type GetFilter struct {
	ID              string
	UsernameOrEmail []string
}

type QueryFilter struct {
	Search         string    `query:"search"`
	Roles          []string  `query:"role"`
	OrganizationID string    `query:"organization_id"`
	IsActive       *bool     `query:"is_active"`
	CreatedFrom    time.Time `query:"created_from"`
	CreatedTo      time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.OrganizationID == "" && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.OrganizationID = core.CleanString(qf.OrganizationID)
	for i, role := range qf.Roles {
		qf.Roles[i] = core.CleanString(role, true /* lower */)
	}
}
