package core

import "github.com/go-playground/validator/v10"

// Decisions a reviewer can take on a pending request
const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type Decision string

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

func (d Decision) Approves() bool { return d == DecisionApprove }

// ReviewNote is the optional note a reviewer leaves with a decision.
type ReviewNote struct {
	Note string `json:"note" validate:"max=500"`
}

func (rn *ReviewNote) Validate(validate *validator.Validate) error {
	rn.Note = CleanString(rn.Note)
	return validate.Struct(rn)
}
