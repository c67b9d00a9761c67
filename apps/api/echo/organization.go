package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/services/authz"
)

func (s *Server) registerOrganizationAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	og := g.Group("/organizations", jwt, s.activeUserMiddleware)
	og.GET("", s.queryOrganizations, s.requirePolicy(authz.Organizations, authz.ActList))
	og.POST("", s.createOrganization, s.requirePolicy(authz.Organizations, authz.ActCreate))

	dg := og.Group("/:id", s.organizationObjectMiddleware)
	dg.GET("", s.retrieveOrganization, s.requirePolicy(authz.Organizations, authz.ActRead))
	dg.PUT("", s.updateOrganization, s.requirePolicy(authz.Organizations, authz.ActUpdate))
	dg.DELETE("", s.destroyOrganization, s.requirePolicy(authz.Organizations, authz.ActDelete))
	dg.GET("/grants", s.queryOrganizationGrants, s.requirePolicy(authz.Grants, authz.ActList))
	dg.POST("/grants", s.requestGrant, s.requirePolicy(authz.Grants, authz.ActCreate))

	// review queue
	gg := g.Group("/grants", jwt, s.activeUserMiddleware, s.requirePolicy(authz.Grants, authz.ActReview))
	gg.GET("", s.queryGrants)
	gg.POST("/:id/approve", s.decideGrant(core.DecisionApprove))
	gg.POST("/:id/reject", s.decideGrant(core.DecisionReject))
}

func (s *Server) queryOrganizations(ctx echo.Context) error {
	filter := new(organization.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []organization.Organization{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	orgs, err := s.OrgSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying organizations")
	}
	if orgs == nil {
		orgs = []organization.Organization{}
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (s *Server) createOrganization(ctx echo.Context) error {
	var data organization.NewOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrganization")
	}
	org, err := s.OrgSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating organization")
	}
	return ctx.JSON(http.StatusCreated, org)
}

func (s *Server) retrieveOrganization(ctx echo.Context) error {
	org, ok := ctx.Get(contextObjectKey).(organization.Organization)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, org)
}

func (s *Server) updateOrganization(ctx echo.Context) error {
	org, ok := ctx.Get(contextObjectKey).(organization.Organization)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data organization.UpdateOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrganization")
	}
	org, err := s.OrgSvc.Update(ctx.Request().Context(), org.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	return ctx.JSON(http.StatusOK, org)
}

func (s *Server) destroyOrganization(ctx echo.Context) error {
	org, ok := ctx.Get(contextObjectKey).(organization.Organization)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := s.OrgSvc.Delete(ctx.Request().Context(), org.ID); err != nil {
		return errors.Wrap(err, "deleting organization")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryOrganizationGrants(ctx echo.Context) error {
	org, ok := ctx.Get(contextObjectKey).(organization.Organization)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	filter := new(organization.GrantFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []capability.Grant{})
	}
	filter.Clean()
	filter.OrganizationID = org.ID
	return s.respondGrants(ctx, filter)
}

func (s *Server) requestGrant(ctx echo.Context) error {
	org, ok := ctx.Get(contextObjectKey).(organization.Organization)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data organization.GrantRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GrantRequest")
	}

	grant, err := s.OrgSvc.RequestGrant(ctx.Request().Context(), org.ID, data)
	if err != nil {
		return errors.Wrap(err, "requesting grant")
	}
	if s.Metrics != nil {
		s.Metrics.GrantRequested(string(grant.Type))
	}
	return ctx.JSON(http.StatusCreated, grant)
}

func (s *Server) queryGrants(ctx echo.Context) error {
	filter := new(organization.GrantFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []capability.Grant{})
	}
	filter.Clean()
	return s.respondGrants(ctx, filter)
}

func (s *Server) respondGrants(ctx echo.Context, filter *organization.GrantFilter) error {
	grants, err := s.OrgSvc.QueryGrants(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grants")
	}
	if grants == nil {
		grants = []capability.Grant{}
	}
	return ctx.JSON(http.StatusOK, grants)
}

func (s *Server) decideGrant(decision core.Decision) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rn, err := bindReviewNote(ctx)
		if err != nil {
			return err
		}
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}

		grant, err := s.OrgSvc.DecideGrant(ctx.Request().Context(), ctx.Param("id"), decision, sess.User.ID, rn)
		if err != nil {
			return errors.Wrap(err, "deciding grant")
		}
		if s.Metrics != nil {
			s.Metrics.GrantDecided(string(grant.Type), string(grant.Status))
		}
		return ctx.JSON(http.StatusOK, grant)
	}
}

// organizationObjectMiddleware puts the Organization of the path in the context,
// if the caller is a network admin or one of its members.
func (s *Server) organizationObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}
		id := ctx.Param("id")
		if !(sess.isCINAdmin() || sess.inOrganization(id)) {
			return errHttpNotFound
		}

		org, err := s.OrgSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "finding organization by ID")
		}
		ctx.Set(contextObjectKey, org)
		return next(ctx)
	}
}
