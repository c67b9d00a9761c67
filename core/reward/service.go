package reward

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
	ErrNotFound           = errors.New("reward not found")
	ErrInUse              = errors.New("reward has redemptions, deactivate it instead")
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrUnavailable        = errors.New("this reward is not available")
	ErrOutOfStock         = errors.New("this reward is out of stock")
	ErrInsufficientPoints = errors.New("not enough points to redeem this reward")
	ErrAlreadyReviewed    = errors.New("this redemption has already been reviewed")
	errUnknownDecision    = errors.New("unknown decision")
)

type (
	Repository interface {
		CreateReward(ctx context.Context, r Reward) (Reward, error)
		// QueryRewards applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Reward.Name.
		QueryRewards(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Reward, error)
		GetReward(ctx context.Context, id string) (Reward, error)
		UpdateReward(ctx context.Context, r Reward) (Reward, error)
		// DeleteReward fails with ErrInUse once the reward has redemptions.
		DeleteReward(ctx context.Context, id string) error

		CreateRedemption(ctx context.Context, r Redemption) (Redemption, error)
		QueryRedemptions(ctx context.Context, filter *RedemptionFilter, ordering []core.DBOrdering) ([]Redemption, error)
		GetRedemption(ctx context.Context, id string) (Redemption, error)
		GetRedemptionByCode(ctx context.Context, code string) (Redemption, error)
		// ReviewRedemption saves the review of a pending redemption. Approving debits the cost from the
		// player's points and takes one item out of stock, all at once; it fails with ErrInsufficientPoints
		// or ErrOutOfStock, leaving everything untouched. Fails with ErrAlreadyReviewed if it is not pending.
		ReviewRedemption(ctx context.Context, r Redemption) (Redemption, error)
	}

	// PointsFinder returns the points balance of a user.
	PointsFinder interface {
		UserPoints(ctx context.Context, userID string) (int, error)
	}

	Service struct {
		repo     Repository
		points   PointsFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, points PointsFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, points: points, validate: validate}
}

// Create adds a Reward to the organization. Rewards are active unless told otherwise.
func (svc *Service) Create(ctx context.Context, orgID string, nr NewReward) (Reward, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Reward{}, err
	}
	isActive := true
	if nr.IsActive != nil {
		isActive = *nr.IsActive
	}

	now := NowFunc().UTC()
	return svc.repo.CreateReward(ctx, Reward{
		OrganizationID: orgID,
		Name:           nr.Name,
		Description:    nr.Description,
		Cost:           nr.Cost,
		Stock:          nr.Stock,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Reward, error) {
	return svc.repo.QueryRewards(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Reward, error) {
	return svc.repo.GetReward(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Reward, ur UpdateReward) (Reward, error) {
	if err := ur.Validate(orig, svc.validate); err != nil {
		return Reward{}, err
	}
	r := orig
	r.Name = ur.Name
	r.Description = ur.Description
	r.Cost = ur.Cost
	r.Stock = ur.Stock
	r.IsActive = *ur.IsActive
	r.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateReward(ctx, r)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteReward(ctx, id)
}

// Redeem files a pending redemption of the reward for the player.
// Points are only debited once the redemption is approved.
func (svc *Service) Redeem(ctx context.Context, rewardID, userID string) (Redemption, error) {
	r, err := svc.repo.GetReward(ctx, rewardID)
	if err != nil {
		return Redemption{}, err
	}
	if !r.IsActive {
		return Redemption{}, core.NewValidationError(ErrUnavailable)
	}
	if !r.InStock() {
		return Redemption{}, core.NewValidationError(ErrOutOfStock)
	}

	points, err := svc.points.UserPoints(ctx, userID)
	if err != nil {
		return Redemption{}, errors.Wrap(err, "finding user points")
	}
	if points < r.Cost {
		return Redemption{}, core.NewValidationError(ErrInsufficientPoints)
	}

	return svc.repo.CreateRedemption(ctx, Redemption{
		RewardID:       r.ID,
		OrganizationID: r.OrganizationID,
		UserID:         userID,
		Code:           NewCode(),
		Status:         StatusPending,
		Cost:           r.Cost,
		CreatedAt:      NowFunc().UTC(),
	})
}

func (svc *Service) QueryRedemptions(ctx context.Context, filter *RedemptionFilter, ordering []core.DBOrdering) ([]Redemption, error) {
	return svc.repo.QueryRedemptions(ctx, filter, ordering)
}

func (svc *Service) GetRedemption(ctx context.Context, id string) (Redemption, error) {
	return svc.repo.GetRedemption(ctx, id)
}

// LookupCode finds the redemption a scanned QR code refers to.
func (svc *Service) LookupCode(ctx context.Context, code string) (Redemption, error) {
	code = CleanCode(code)
	if code == "" {
		return Redemption{}, ErrRedemptionNotFound
	}
	return svc.repo.GetRedemptionByCode(ctx, code)
}

// Review approves or rejects a pending redemption.
func (svc *Service) Review(ctx context.Context, r Redemption, decision core.Decision, reviewerID string, rn core.ReviewNote) (Redemption, error) {
	if !decision.IsValid() {
		return Redemption{}, errUnknownDecision
	}
	if err := rn.Validate(svc.validate); err != nil {
		return Redemption{}, err
	}
	if r.Status != StatusPending {
		return Redemption{}, ErrAlreadyReviewed
	}

	now := NowFunc().UTC()
	r.Status = statusOf(decision)
	r.ReviewedBy = reviewerID
	r.ReviewNote = rn.Note
	r.ReviewedAt = &now

	res, err := svc.repo.ReviewRedemption(ctx, r)
	if err != nil {
		switch errors.Cause(err) {
		case ErrInsufficientPoints, ErrOutOfStock:
			return Redemption{}, core.NewValidationError(errors.Cause(err))
		}
		return Redemption{}, err
	}
	return res, nil
}
