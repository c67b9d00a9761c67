package reward

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cinetwork/cin/backend/core"
)

// Redemption statuses
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

const codeLen = 10

type Status string

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

func statusOf(d core.Decision) Status {
	if d.Approves() {
		return StatusApproved
	}
	return StatusRejected
}

type Reward struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Cost           int       `json:"cost"`
	Stock          *int      `json:"stock"` // nil: unlimited
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

func (r *Reward) InStock() bool {
	return r.Stock == nil || *r.Stock > 0
}

// Redemption is a player's claim of a reward, paid in points once approved.
// Its Code is what the player's QR code carries.
type Redemption struct {
	ID             string     `json:"id"`
	RewardID       string     `json:"reward_id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Code           string     `json:"code"`
	Status         Status     `json:"status"`
	Cost           int        `json:"cost"`
	ReviewedBy     string     `json:"reviewed_by"`
	ReviewNote     string     `json:"review_note"`
	ReviewedAt     *time.Time `json:"reviewed_at"` // UTC
	CreatedAt      time.Time  `json:"created_at"`  // UTC
}

// NewCode returns a random redemption code.
func NewCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return code[:codeLen]
}

// CleanCode normalizes a scanned or typed redemption code.
func CleanCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(core.CleanString(code), "-", ""))
}

// NewReward contains information needed to create a new Reward.
type NewReward struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Cost        int    `json:"cost" validate:"min=1,max=1000000"`
	Stock       *int   `json:"stock" validate:"omitempty,min=0"`
	IsActive    *bool  `json:"is_active"`
}

func (nr *NewReward) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

// UpdateReward defines what information may be provided to modify an existing Reward.
// Empty fields are left untouched; UnlimitedStock clears the stock.
type UpdateReward struct {
	Name           string `json:"name" validate:"max=120"`
	Description    string `json:"description" validate:"max=2000"`
	Cost           int    `json:"cost" validate:"min=1,max=1000000"`
	Stock          *int   `json:"stock" validate:"omitempty,min=0"`
	UnlimitedStock bool   `json:"unlimited_stock"`
	IsActive       *bool  `json:"is_active"`
}

func (ur *UpdateReward) Validate(orig Reward, validate *validator.Validate) error {
	if name := core.CleanString(ur.Name); name != "" {
		ur.Name = name
	} else {
		ur.Name = orig.Name
	}
	if desc := core.CleanString(ur.Description); desc != "" {
		ur.Description = desc
	} else {
		ur.Description = orig.Description
	}
	if ur.Cost == 0 {
		ur.Cost = orig.Cost
	}
	if ur.UnlimitedStock {
		ur.Stock = nil
	} else if ur.Stock == nil {
		ur.Stock = orig.Stock
	}
	if ur.IsActive == nil {
		ur.IsActive = &orig.IsActive
	}
	return validate.Struct(ur)
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

type RedemptionFilter struct {
	RewardID       string `query:"reward_id"`
	OrganizationID string `query:"organization_id"`
	UserID         string `query:"user_id"`
	Status         Status `query:"status"`
}

func (rf *RedemptionFilter) Clean() {
	rf.RewardID = core.CleanString(rf.RewardID)
	rf.OrganizationID = core.CleanString(rf.OrganizationID)
	rf.UserID = core.CleanString(rf.UserID)
	rf.Status = Status(core.CleanString(string(rf.Status), true /* lower */))
}
