package inmemdb

import (
	"context"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	usr.Badges = copyStrings(usr.Badges)
	if usr.IsActive != nil {
		usr.SetActive(*usr.IsActive)
	}
	return usr
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email, excludedID string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.ID == excludedID {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) OrganizationExists(_ context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.organizations[id]
	return ok, nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = newID()
	if usr.Badges == nil {
		usr.Badges = []string{}
	}
	repo.db.users[usr.ID] = copyUser(usr)
	return copyUser(usr), nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, copyUser(usr))
	}

	sortItems(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] }, ordering, map[string]comparator{
		"name":       func(i, j int) int { return cmpString(users[i].Name, users[j].Name) },
		"username":   func(i, j int) int { return cmpString(users[i].Username, users[j].Username) },
		"email":      func(i, j int) int { return cmpString(users[i].Email, users[j].Email) },
		"role":       func(i, j int) int { return cmpString(string(users[i].Role), string(users[j].Role)) },
		"points":     func(i, j int) int { return cmpInt(users[i].Points, users[j].Points) },
		"is_active":  func(i, j int) int { return cmpBool(users[i].Active(), users[j].Active()) },
		"created_at": func(i, j int) int { return cmpTime(users[i].CreatedAt, users[j].CreatedAt) },
		"updated_at": func(i, j int) int { return cmpTime(users[i].UpdatedAt, users[j].UpdatedAt) },
		"last_login": func(i, j int) int { return cmpTime(users[i].LastLogin, users[j].LastLogin) },
	})
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" &&
		!(containsFold(usr.Name, filter.Search) || containsFold(usr.Username, filter.Search) || containsFold(usr.Email, filter.Search)) {
		return false
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if capability.Role(role) == usr.Role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.OrganizationID != "" && usr.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return copyUser(usr), nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		for _, uname := range filter.UsernameOrEmail {
			if uname != "" && (usr.Username == uname || usr.Email == uname) {
				return copyUser(usr), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	// points & badges only change through reviews
	usr.Points = orig.Points
	usr.Badges = orig.Badges
	usr.CreatedAt = orig.CreatedAt
	repo.db.users[usr.ID] = copyUser(usr)
	return copyUser(usr), nil
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
