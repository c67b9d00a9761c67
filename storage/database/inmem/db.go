// Package inmemdb implements the repositories over in-memory tables, for tests and local runs.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
)

// DB holds every table behind a single lock, so that operations spanning tables are atomic.
type DB struct {
	mutex         sync.RWMutex
	organizations map[string]organization.Organization // without grants
	grants        map[string]capability.Grant
	users         map[string]user.User
	missions      map[string]mission.Mission
	submissions   map[string]submission.Submission
	rewards       map[string]reward.Reward
	redemptions   map[string]reward.Redemption
}

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.organizations = make(map[string]organization.Organization)
	db.grants = make(map[string]capability.Grant)
	db.users = make(map[string]user.User)
	db.missions = make(map[string]mission.Mission)
	db.submissions = make(map[string]submission.Submission)
	db.rewards = make(map[string]reward.Reward)
	db.redemptions = make(map[string]reward.Redemption)
}

func newID() string {
	return uuid.New().String()
}

// Orderings

var defaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

// comparator compares items i & j on one field: <0 if i sorts first, >0 if j does.
type comparator func(i, j int) int

// sortItems sorts n items by ordering, using fields to compare them.
// Orderings on unknown fields are ignored; created_at descending is the default.
func sortItems(n int, swap func(i, j int), ordering []core.DBOrdering, fields map[string]comparator) {
	if len(ordering) == 0 {
		ordering = defaultOrdering
	}
	sort.Stable(sorter{n: n, swap: swap, less: func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(i, j); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	}})
}

type sorter struct {
	n    int
	swap func(i, j int)
	less func(i, j int) bool
}

func (s sorter) Len() int           { return s.n }
func (s sorter) Swap(i, j int)      { s.swap(i, j) }
func (s sorter) Less(i, j int) bool { return s.less(i, j) }

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func copyStrings(s []string) []string {
	res := make([]string, len(s))
	copy(res, s)
	return res
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
