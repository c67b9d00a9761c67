package submission

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/mission"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound         = errors.New("submission not found")
	ErrMissionClosed    = errors.New("this mission does not accept submissions")
	ErrAlreadySubmitted = errors.New("you already submitted evidence for this mission")
	ErrAlreadyReviewed  = errors.New("this submission has already been reviewed")
	errUnknownDecision  = errors.New("unknown decision")
)

type (
	Repository interface {
		// CreateSubmission fails with ErrAlreadySubmitted if the user has a pending or approved
		// submission for the same mission.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// ReviewSubmission saves the review of a pending submission and, when approved, credits
		// the award to its author, all at once. Fails with ErrAlreadyReviewed if it is not pending anymore.
		ReviewSubmission(ctx context.Context, s Submission, award Award) (Submission, error)
	}

	// MissionFinder finds the mission a submission is for.
	MissionFinder interface {
		GetMission(ctx context.Context, id string) (mission.Mission, error)
	}

	Service struct {
		repo     Repository
		missions MissionFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, missions MissionFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, missions: missions, validate: validate}
}

// Submit files the evidence of a player for an open mission.
func (svc *Service) Submit(ctx context.Context, missionID, userID string, ns NewSubmission) (Submission, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Submission{}, err
	}

	m, err := svc.missions.GetMission(ctx, missionID)
	if err != nil {
		return Submission{}, err
	}
	now := NowFunc().UTC()
	if !m.IsOpen(now) {
		return Submission{}, core.NewValidationError(ErrMissionClosed)
	}

	s, err := svc.repo.CreateSubmission(ctx, Submission{
		MissionID:      m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         userID,
		Evidence:       ns.Evidence,
		EvidenceURL:    ns.EvidenceURL,
		Status:         StatusPending,
		CreatedAt:      now,
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Submission{}, core.NewValidationError(ErrAlreadySubmitted)
		}
		return Submission{}, err
	}
	return s, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

// Review approves or rejects a pending submission.
// Approving credits the mission's points, and its badge if any, to the author.
func (svc *Service) Review(ctx context.Context, s Submission, decision core.Decision, reviewerID string, rn core.ReviewNote) (Submission, error) {
	if !decision.IsValid() {
		return Submission{}, errUnknownDecision
	}
	if err := rn.Validate(svc.validate); err != nil {
		return Submission{}, err
	}
	if s.Status != StatusPending {
		return Submission{}, ErrAlreadyReviewed
	}

	var award Award
	if decision.Approves() {
		m, err := svc.missions.GetMission(ctx, s.MissionID)
		if err != nil {
			return Submission{}, errors.Wrap(err, "finding mission")
		}
		award = Award{Points: m.Points, Badge: m.Badge}
	}

	now := NowFunc().UTC()
	s.Status = statusOf(decision)
	s.ReviewedBy = reviewerID
	s.ReviewNote = rn.Note
	s.ReviewedAt = &now
	s.AwardedPoints = award.Points
	return svc.repo.ReviewSubmission(ctx, s, award)
}
