package inmemdb

import (
	"context"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
)

type submissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func copySubmission(s submission.Submission) submission.Submission {
	s.ReviewedAt = copyTime(s.ReviewedAt)
	return s
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.submissions {
		if other.MissionID == s.MissionID && other.UserID == s.UserID && other.Status != submission.StatusRejected {
			return submission.Submission{}, submission.ErrAlreadySubmitted
		}
	}
	s.ID = newID()
	repo.db.submissions[s.ID] = copySubmission(s)
	return s, nil
}

func (repo *submissionRepository) QuerySubmissions(
	_ context.Context,
	filter *submission.QueryFilter,
	ordering []core.DBOrdering,
) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, s := range repo.db.submissions {
		if filter != nil {
			if filter.MissionID != "" && s.MissionID != filter.MissionID {
				continue
			}
			if filter.OrganizationID != "" && s.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.UserID != "" && s.UserID != filter.UserID {
				continue
			}
			if filter.Status != "" && s.Status != filter.Status {
				continue
			}
		}
		subs = append(subs, copySubmission(s))
	}

	sortItems(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] }, ordering, map[string]comparator{
		"status":      func(i, j int) int { return cmpString(string(subs[i].Status), string(subs[j].Status)) },
		"reviewed_at": func(i, j int) int { return cmpTime(timeOrZero(subs[i].ReviewedAt), timeOrZero(subs[j].ReviewedAt)) },
		"created_at":  func(i, j int) int { return cmpTime(subs[i].CreatedAt, subs[j].CreatedAt) },
	})
	return subs, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id string) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return copySubmission(s), nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) ReviewSubmission(
	_ context.Context,
	s submission.Submission,
	award submission.Award,
) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.submissions[s.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	if orig.Status != submission.StatusPending {
		return submission.Submission{}, submission.ErrAlreadyReviewed
	}

	if s.Status == submission.StatusApproved {
		usr, ok := repo.db.users[orig.UserID]
		if !ok {
			return submission.Submission{}, user.ErrNotFound
		}
		usr.Points += award.Points
		if award.Badge != "" && !usr.HasBadge(award.Badge) {
			usr.Badges = append(copyStrings(usr.Badges), award.Badge)
		}
		repo.db.users[usr.ID] = usr
	}

	orig.Status = s.Status
	orig.ReviewedBy = s.ReviewedBy
	orig.ReviewNote = s.ReviewNote
	orig.ReviewedAt = copyTime(s.ReviewedAt)
	orig.AwardedPoints = award.Points
	repo.db.submissions[orig.ID] = orig
	return copySubmission(orig), nil
}
