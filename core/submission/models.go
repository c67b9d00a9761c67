package submission

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cinetwork/cin/backend/core"
)

// Review statuses
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

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

// Submission is a player's evidence of having completed a mission.
type Submission struct {
	ID             string     `json:"id"`
	MissionID      string     `json:"mission_id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Evidence       string     `json:"evidence"`
	EvidenceURL    string     `json:"evidence_url"`
	Status         Status     `json:"status"`
	ReviewedBy     string     `json:"reviewed_by"`
	ReviewNote     string     `json:"review_note"`
	ReviewedAt     *time.Time `json:"reviewed_at"` // UTC
	AwardedPoints  int        `json:"awarded_points"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
}

// Award is what approving a submission grants its author.
type Award struct {
	Points int
	Badge  string
}

// NewSubmission contains information needed to submit evidence for a mission.
type NewSubmission struct {
	Evidence    string `json:"evidence" validate:"required,notblank,max=5000"`
	EvidenceURL string `json:"evidence_url" validate:"omitempty,url,max=2000"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Evidence = core.CleanString(ns.Evidence)
	ns.EvidenceURL = core.CleanString(ns.EvidenceURL)
	return validate.Struct(ns)
}

type QueryFilter struct {
	MissionID      string `query:"mission_id"`
	OrganizationID string `query:"organization_id"`
	UserID         string `query:"user_id"`
	Status         Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.MissionID = core.CleanString(qf.MissionID)
	qf.OrganizationID = core.CleanString(qf.OrganizationID)
	qf.UserID = core.CleanString(qf.UserID)
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
}
