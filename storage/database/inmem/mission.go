package inmemdb

import (
	"context"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/mission"
)

type missionRepository struct {
	db *DB
}

func NewMissionRepository(db *DB) mission.Repository {
	return &missionRepository{db: db}
}

func copyMission(m mission.Mission) mission.Mission {
	m.StartsAt = copyTime(m.StartsAt)
	m.EndsAt = copyTime(m.EndsAt)
	return m
}

func (repo *missionRepository) CreateMission(_ context.Context, m mission.Mission) (mission.Mission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = newID()
	repo.db.missions[m.ID] = copyMission(m)
	return m, nil
}

func (repo *missionRepository) QueryMissions(_ context.Context, filter *mission.QueryFilter, ordering []core.DBOrdering) ([]mission.Mission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	missions := make([]mission.Mission, 0)
	for _, m := range repo.db.missions {
		if filter != nil {
			if filter.Search != "" && !containsFold(m.Title, filter.Search) {
				continue
			}
			if filter.OrganizationID != "" && m.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.IsActive != nil && m.IsActive != *filter.IsActive {
				continue
			}
		}
		missions = append(missions, copyMission(m))
	}

	sortItems(len(missions), func(i, j int) { missions[i], missions[j] = missions[j], missions[i] }, ordering, map[string]comparator{
		"title":      func(i, j int) int { return cmpString(missions[i].Title, missions[j].Title) },
		"points":     func(i, j int) int { return cmpInt(missions[i].Points, missions[j].Points) },
		"is_active":  func(i, j int) int { return cmpBool(missions[i].IsActive, missions[j].IsActive) },
		"starts_at":  func(i, j int) int { return cmpTime(timeOrZero(missions[i].StartsAt), timeOrZero(missions[j].StartsAt)) },
		"ends_at":    func(i, j int) int { return cmpTime(timeOrZero(missions[i].EndsAt), timeOrZero(missions[j].EndsAt)) },
		"created_at": func(i, j int) int { return cmpTime(missions[i].CreatedAt, missions[j].CreatedAt) },
	})
	return missions, nil
}

func (repo *missionRepository) GetMission(_ context.Context, id string) (mission.Mission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.missions[id]; ok {
		return copyMission(m), nil
	}
	return mission.Mission{}, mission.ErrNotFound
}

func (repo *missionRepository) UpdateMission(_ context.Context, m mission.Mission) (mission.Mission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.missions[m.ID]
	if !ok {
		return mission.Mission{}, mission.ErrNotFound
	}
	m.OrganizationID = orig.OrganizationID
	m.CreatedBy = orig.CreatedBy
	m.CreatedAt = orig.CreatedAt
	repo.db.missions[m.ID] = copyMission(m)
	return m, nil
}

func (repo *missionRepository) DeleteMission(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.missions[id]; !ok {
		return mission.ErrNotFound
	}
	for _, s := range repo.db.submissions {
		if s.MissionID == id {
			return mission.ErrInUse
		}
	}
	delete(repo.db.missions, id)
	return nil
}
