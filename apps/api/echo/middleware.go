package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/user"
)

const (
	contextSessionKey = "session"
	contextObjectKey  = "object"
)

// session is what the API knows of the caller for the duration of a request.
type session struct {
	User         user.User
	Role         capability.Role
	Organization *capability.Organization // nil when the caller has no (existing) organization
	Features     capability.VisibleFeatureSet
}

func (sess *session) isCINAdmin() bool { return sess.Role == capability.RoleCINAdmin }

// inOrganization reports whether the caller belongs to the organization orgID.
func (sess *session) inOrganization(orgID string) bool {
	return sess.Organization != nil && sess.Organization.ID == orgID
}

// orgID is the ID of the caller's organization, or "" if they have none.
func (sess *session) orgID() string {
	if sess.Organization == nil {
		return ""
	}
	return sess.Organization.ID
}

// administers reports whether the caller may manage the content of organization orgID.
func (sess *session) administers(orgID string) bool {
	return sess.isCINAdmin() || (sess.Role == capability.RoleOrgAdmin && sess.inOrganization(orgID))
}

// owns reports whether the caller may see an object of organization orgID belonging to userID.
func (sess *session) owns(orgID, userID string) bool {
	return sess.administers(orgID) || sess.User.ID == userID
}

// activeUserMiddleware rejects tokens of users that were deleted or deactivated since they logged in.
func (s *Server) activeUserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := s.getContextUser(ctx)
		if err != nil {
			return err
		}
		if !usr.Active() {
			return errAccountDeactivated
		}
		return next(ctx)
	}
}

// getSession resolves the caller's features once per request.
// The role & organization are read from the stored user, not from the token.
func (s *Server) getSession(ctx echo.Context) (*session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session); ok {
		return sess, nil
	}

	usr, err := s.getContextUser(ctx)
	if err != nil {
		return nil, err
	}
	role := capability.ParseRole(string(usr.Role))
	org, err := s.OrgSvc.Session(ctx.Request().Context(), usr.OrganizationID)
	if err != nil {
		return nil, errors.Wrap(err, "loading session organization")
	}

	sess := &session{
		User:         usr,
		Role:         role,
		Organization: org,
		Features:     capability.Resolve(role, org),
	}
	ctx.Set(contextSessionKey, sess)
	return sess, nil
}

// requirePolicy lets through callers whose role may perform act on obj.
func (s *Server) requirePolicy(obj, act string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := s.getSession(ctx)
			if err != nil {
				return err
			}
			if !s.Enforcer.Allow(sess.Role, obj, act) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// requireAdministers fails unless the caller manages the content of organization orgID.
func (s *Server) requireAdministers(ctx echo.Context, orgID string) error {
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	if !sess.administers(orgID) {
		return errHttpForbidden
	}
	return nil
}

// requireFeature lets through callers having any of the features.
func (s *Server) requireFeature(features ...capability.Feature) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := s.getSession(ctx)
			if err != nil {
				return err
			}
			for _, f := range features {
				if sess.Features.Has(f) {
					return next(ctx)
				}
			}
			return errFeatureDisabled
		}
	}
}
