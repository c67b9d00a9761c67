package inmemdb

import (
	"context"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/user"
)

type rewardRepository struct {
	db *DB
}

func NewRewardRepository(db *DB) reward.Repository {
	return &rewardRepository{db: db}
}

func copyReward(r reward.Reward) reward.Reward {
	r.Stock = copyInt(r.Stock)
	return r
}

func copyRedemption(r reward.Redemption) reward.Redemption {
	r.ReviewedAt = copyTime(r.ReviewedAt)
	return r
}

func (repo *rewardRepository) CreateReward(_ context.Context, r reward.Reward) (reward.Reward, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r.ID = newID()
	repo.db.rewards[r.ID] = copyReward(r)
	return r, nil
}

func (repo *rewardRepository) QueryRewards(_ context.Context, filter *reward.QueryFilter, ordering []core.DBOrdering) ([]reward.Reward, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rewards := make([]reward.Reward, 0)
	for _, r := range repo.db.rewards {
		if filter != nil {
			if filter.Search != "" && !containsFold(r.Name, filter.Search) {
				continue
			}
			if filter.OrganizationID != "" && r.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.IsActive != nil && r.IsActive != *filter.IsActive {
				continue
			}
		}
		rewards = append(rewards, copyReward(r))
	}

	sortItems(len(rewards), func(i, j int) { rewards[i], rewards[j] = rewards[j], rewards[i] }, ordering, map[string]comparator{
		"name":       func(i, j int) int { return cmpString(rewards[i].Name, rewards[j].Name) },
		"cost":       func(i, j int) int { return cmpInt(rewards[i].Cost, rewards[j].Cost) },
		"is_active":  func(i, j int) int { return cmpBool(rewards[i].IsActive, rewards[j].IsActive) },
		"created_at": func(i, j int) int { return cmpTime(rewards[i].CreatedAt, rewards[j].CreatedAt) },
	})
	return rewards, nil
}

func (repo *rewardRepository) GetReward(_ context.Context, id string) (reward.Reward, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.rewards[id]; ok {
		return copyReward(r), nil
	}
	return reward.Reward{}, reward.ErrNotFound
}

func (repo *rewardRepository) UpdateReward(_ context.Context, r reward.Reward) (reward.Reward, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.rewards[r.ID]
	if !ok {
		return reward.Reward{}, reward.ErrNotFound
	}
	r.OrganizationID = orig.OrganizationID
	r.CreatedAt = orig.CreatedAt
	repo.db.rewards[r.ID] = copyReward(r)
	return r, nil
}

func (repo *rewardRepository) DeleteReward(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.rewards[id]; !ok {
		return reward.ErrNotFound
	}
	for _, rd := range repo.db.redemptions {
		if rd.RewardID == id {
			return reward.ErrInUse
		}
	}
	delete(repo.db.rewards, id)
	return nil
}

func (repo *rewardRepository) CreateRedemption(_ context.Context, r reward.Redemption) (reward.Redemption, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.rewards[r.RewardID]; !ok {
		return reward.Redemption{}, reward.ErrNotFound
	}
	r.ID = newID()
	repo.db.redemptions[r.ID] = copyRedemption(r)
	return r, nil
}

func (repo *rewardRepository) QueryRedemptions(
	_ context.Context,
	filter *reward.RedemptionFilter,
	ordering []core.DBOrdering,
) ([]reward.Redemption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rds := make([]reward.Redemption, 0)
	for _, rd := range repo.db.redemptions {
		if filter != nil {
			if filter.RewardID != "" && rd.RewardID != filter.RewardID {
				continue
			}
			if filter.OrganizationID != "" && rd.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.UserID != "" && rd.UserID != filter.UserID {
				continue
			}
			if filter.Status != "" && rd.Status != filter.Status {
				continue
			}
		}
		rds = append(rds, copyRedemption(rd))
	}

	sortItems(len(rds), func(i, j int) { rds[i], rds[j] = rds[j], rds[i] }, ordering, map[string]comparator{
		"status":     func(i, j int) int { return cmpString(string(rds[i].Status), string(rds[j].Status)) },
		"cost":       func(i, j int) int { return cmpInt(rds[i].Cost, rds[j].Cost) },
		"created_at": func(i, j int) int { return cmpTime(rds[i].CreatedAt, rds[j].CreatedAt) },
	})
	return rds, nil
}

func (repo *rewardRepository) GetRedemption(_ context.Context, id string) (reward.Redemption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rd, ok := repo.db.redemptions[id]; ok {
		return copyRedemption(rd), nil
	}
	return reward.Redemption{}, reward.ErrRedemptionNotFound
}

func (repo *rewardRepository) GetRedemptionByCode(_ context.Context, code string) (reward.Redemption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rd := range repo.db.redemptions {
		if rd.Code == code {
			return copyRedemption(rd), nil
		}
	}
	return reward.Redemption{}, reward.ErrRedemptionNotFound
}

func (repo *rewardRepository) ReviewRedemption(_ context.Context, r reward.Redemption) (reward.Redemption, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.redemptions[r.ID]
	if !ok {
		return reward.Redemption{}, reward.ErrRedemptionNotFound
	}
	if orig.Status != reward.StatusPending {
		return reward.Redemption{}, reward.ErrAlreadyReviewed
	}

	if r.Status == reward.StatusApproved {
		usr, ok := repo.db.users[orig.UserID]
		if !ok {
			return reward.Redemption{}, user.ErrNotFound
		}
		rwd, ok := repo.db.rewards[orig.RewardID]
		if !ok {
			return reward.Redemption{}, reward.ErrNotFound
		}
		if usr.Points < orig.Cost {
			return reward.Redemption{}, reward.ErrInsufficientPoints
		}
		if !rwd.InStock() {
			return reward.Redemption{}, reward.ErrOutOfStock
		}

		usr.Points -= orig.Cost
		repo.db.users[usr.ID] = usr
		if rwd.Stock != nil {
			stock := *rwd.Stock - 1
			rwd.Stock = &stock
			repo.db.rewards[rwd.ID] = rwd
		}
	}

	orig.Status = r.Status
	orig.ReviewedBy = r.ReviewedBy
	orig.ReviewNote = r.ReviewNote
	orig.ReviewedAt = copyTime(r.ReviewedAt)
	repo.db.redemptions[orig.ID] = orig
	return copyRedemption(orig), nil
}
