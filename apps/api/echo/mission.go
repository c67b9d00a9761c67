package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/services/authz"
)

func (s *Server) registerMissionAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	mg := g.Group("/missions", jwt, s.activeUserMiddleware,
		s.requireFeature(capability.FeatureMissionCreator, capability.FeatureBrowseOrganizations))
	mg.GET("", s.queryMissions, s.requirePolicy(authz.Missions, authz.ActList))
	mg.POST("", s.createMission, s.requirePolicy(authz.Missions, authz.ActCreate), s.requireFeature(capability.FeatureMissionCreator))

	dg := mg.Group("/:id", s.missionObjectMiddleware)
	dg.GET("", s.retrieveMission, s.requirePolicy(authz.Missions, authz.ActRead))
	dg.PUT("", s.updateMission, s.requirePolicy(authz.Missions, authz.ActUpdate))
	dg.DELETE("", s.destroyMission, s.requirePolicy(authz.Missions, authz.ActDelete))
	dg.POST("/submissions", s.submitEvidence, s.requirePolicy(authz.Submissions, authz.ActCreate))

	sg := g.Group("/submissions", jwt, s.activeUserMiddleware,
		s.requireFeature(capability.FeatureMissionCreator, capability.FeatureReviewSubmissions))
	sg.GET("", s.querySubmissions, s.requirePolicy(authz.Submissions, authz.ActList))

	sdg := sg.Group("/:id", s.submissionObjectMiddleware)
	sdg.GET("", s.retrieveSubmission, s.requirePolicy(authz.Submissions, authz.ActRead))
	sdg.POST("/approve", s.reviewSubmission(core.DecisionApprove), s.requirePolicy(authz.Submissions, authz.ActReview))
	sdg.POST("/reject", s.reviewSubmission(core.DecisionReject), s.requirePolicy(authz.Submissions, authz.ActReview))
}

// Missions

func (s *Server) queryMissions(ctx echo.Context) error {
	filter := new(mission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []mission.Mission{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	if !sess.isCINAdmin() {
		filter.OrganizationID = sess.orgID()
		if sess.Role == capability.RolePlayer {
			active := true
			filter.IsActive = &active
		}
	}

	missions, err := s.MissionSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying missions")
	}
	if missions == nil {
		missions = []mission.Mission{}
	}
	return ctx.JSON(http.StatusOK, missions)
}

func (s *Server) createMission(ctx echo.Context) error {
	var data mission.NewMission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMission")
	}
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	if sess.orgID() == "" {
		return errNoOrganization
	}

	m, err := s.MissionSvc.Create(ctx.Request().Context(), sess.orgID(), sess.User.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating mission")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (s *Server) retrieveMission(ctx echo.Context) error {
	m, ok := ctx.Get(contextObjectKey).(mission.Mission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (s *Server) updateMission(ctx echo.Context) error {
	m, ok := ctx.Get(contextObjectKey).(mission.Mission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := s.requireAdministers(ctx, m.OrganizationID); err != nil {
		return err
	}
	var data mission.UpdateMission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMission")
	}

	m, err := s.MissionSvc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating mission")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (s *Server) destroyMission(ctx echo.Context) error {
	m, ok := ctx.Get(contextObjectKey).(mission.Mission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := s.requireAdministers(ctx, m.OrganizationID); err != nil {
		return err
	}
	if err := s.MissionSvc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting mission")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) submitEvidence(ctx echo.Context) error {
	m, ok := ctx.Get(contextObjectKey).(mission.Mission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data submission.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}

	sub, err := s.SubmissionSvc.Submit(ctx.Request().Context(), m.ID, sess.User.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting evidence")
	}
	if s.Metrics != nil {
		s.Metrics.Submitted()
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// missionObjectMiddleware puts the Mission of the path in the context.
// Missions are visible to network admins and to the members of their organization;
// players only see active ones.
func (s *Server) missionObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}
		m, err := s.MissionSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding mission by ID")
		}
		if !(sess.isCINAdmin() || sess.inOrganization(m.OrganizationID)) {
			return errHttpNotFound
		}
		if sess.Role == capability.RolePlayer && !m.IsActive {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, m)
		return next(ctx)
	}
}

// Submissions

func (s *Server) querySubmissions(ctx echo.Context) error {
	filter := new(submission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []submission.Submission{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	switch sess.Role {
	case capability.RoleCINAdmin:
	case capability.RoleOrgAdmin:
		filter.OrganizationID = sess.orgID()
	default:
		filter.UserID = sess.User.ID
	}

	subs, err := s.SubmissionSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (s *Server) retrieveSubmission(ctx echo.Context) error {
	sub, ok := ctx.Get(contextObjectKey).(submission.Submission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (s *Server) reviewSubmission(decision core.Decision) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sub, ok := ctx.Get(contextObjectKey).(submission.Submission)
		if !ok {
			return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
		}
		if err := s.requireAdministers(ctx, sub.OrganizationID); err != nil {
			return err
		}
		rn, err := bindReviewNote(ctx)
		if err != nil {
			return err
		}
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}

		sub, err = s.SubmissionSvc.Review(ctx.Request().Context(), sub, decision, sess.User.ID, rn)
		if err != nil {
			return errors.Wrap(err, "reviewing submission")
		}
		if s.Metrics != nil {
			s.Metrics.SubmissionReviewed(string(sub.Status))
		}
		return ctx.JSON(http.StatusOK, sub)
	}
}

// submissionObjectMiddleware puts the Submission of the path in the context,
// if the caller is its author or one of its reviewers.
func (s *Server) submissionObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}
		sub, err := s.SubmissionSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding submission by ID")
		}
		if !sess.owns(sub.OrganizationID, sub.UserID) {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, sub)
		return next(ctx)
	}
}
