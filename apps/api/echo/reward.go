package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/services/authz"
)

func (s *Server) registerRewardAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	withFeature := s.requireFeature(capability.FeatureRewardCreator, capability.FeatureBrowseOrganizations)

	rg := g.Group("/rewards", jwt, s.activeUserMiddleware, withFeature)
	rg.GET("", s.queryRewards, s.requirePolicy(authz.Rewards, authz.ActList))
	rg.POST("", s.createReward, s.requirePolicy(authz.Rewards, authz.ActCreate), s.requireFeature(capability.FeatureRewardCreator))

	dg := rg.Group("/:id", s.rewardObjectMiddleware)
	dg.GET("", s.retrieveReward, s.requirePolicy(authz.Rewards, authz.ActRead))
	dg.PUT("", s.updateReward, s.requirePolicy(authz.Rewards, authz.ActUpdate))
	dg.DELETE("", s.destroyReward, s.requirePolicy(authz.Rewards, authz.ActDelete))
	dg.POST("/redeem", s.redeemReward, s.requirePolicy(authz.Redemptions, authz.ActCreate))

	xg := g.Group("/redemptions", jwt, s.activeUserMiddleware, withFeature)
	xg.GET("", s.queryRedemptions, s.requirePolicy(authz.Redemptions, authz.ActList))
	xg.GET("/code/:code", s.lookupRedemption, s.requirePolicy(authz.Redemptions, authz.ActReview))

	xdg := xg.Group("/:id", s.redemptionObjectMiddleware)
	xdg.GET("", s.retrieveRedemption, s.requirePolicy(authz.Redemptions, authz.ActRead))
	xdg.POST("/approve", s.reviewRedemption(core.DecisionApprove), s.requirePolicy(authz.Redemptions, authz.ActReview))
	xdg.POST("/reject", s.reviewRedemption(core.DecisionReject), s.requirePolicy(authz.Redemptions, authz.ActReview))
}

// Rewards

func (s *Server) queryRewards(ctx echo.Context) error {
	filter := new(reward.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []reward.Reward{})
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

	rewards, err := s.RewardSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying rewards")
	}
	if rewards == nil {
		rewards = []reward.Reward{}
	}
	return ctx.JSON(http.StatusOK, rewards)
}

func (s *Server) createReward(ctx echo.Context) error {
	var data reward.NewReward
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReward")
	}
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	if sess.orgID() == "" {
		return errNoOrganization
	}

	r, err := s.RewardSvc.Create(ctx.Request().Context(), sess.orgID(), data)
	if err != nil {
		return errors.Wrap(err, "creating reward")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (s *Server) retrieveReward(ctx echo.Context) error {
	r, ok := ctx.Get(contextObjectKey).(reward.Reward)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (s *Server) updateReward(ctx echo.Context) error {
	r, ok := ctx.Get(contextObjectKey).(reward.Reward)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := s.requireAdministers(ctx, r.OrganizationID); err != nil {
		return err
	}
	var data reward.UpdateReward
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReward")
	}

	r, err := s.RewardSvc.Update(ctx.Request().Context(), r, data)
	if err != nil {
		return errors.Wrap(err, "updating reward")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (s *Server) destroyReward(ctx echo.Context) error {
	r, ok := ctx.Get(contextObjectKey).(reward.Reward)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := s.requireAdministers(ctx, r.OrganizationID); err != nil {
		return err
	}
	if err := s.RewardSvc.Delete(ctx.Request().Context(), r.ID); err != nil {
		return errors.Wrap(err, "deleting reward")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) redeemReward(ctx echo.Context) error {
	r, ok := ctx.Get(contextObjectKey).(reward.Reward)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}

	red, err := s.RewardSvc.Redeem(ctx.Request().Context(), r.ID, sess.User.ID)
	if err != nil {
		return errors.Wrap(err, "redeeming reward")
	}
	if s.Metrics != nil {
		s.Metrics.Redeemed()
	}
	return ctx.JSON(http.StatusCreated, red)
}

// rewardObjectMiddleware puts the Reward of the path in the context.
// Rewards are visible to network admins and to the members of their organization;
// players only see active ones.
func (s *Server) rewardObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}
		r, err := s.RewardSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding reward by ID")
		}
		if !(sess.isCINAdmin() || sess.inOrganization(r.OrganizationID)) {
			return errHttpNotFound
		}
		if sess.Role == capability.RolePlayer && !r.IsActive {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, r)
		return next(ctx)
	}
}

// Redemptions

func (s *Server) queryRedemptions(ctx echo.Context) error {
	filter := new(reward.RedemptionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []reward.Redemption{})
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

	reds, err := s.RewardSvc.QueryRedemptions(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying redemptions")
	}
	if reds == nil {
		reds = []reward.Redemption{}
	}
	return ctx.JSON(http.StatusOK, reds)
}

// lookupRedemption finds the redemption behind a scanned QR code.
func (s *Server) lookupRedemption(ctx echo.Context) error {
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	red, err := s.RewardSvc.LookupCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "looking up redemption code")
	}
	if !sess.administers(red.OrganizationID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, red)
}

func (s *Server) retrieveRedemption(ctx echo.Context) error {
	red, ok := ctx.Get(contextObjectKey).(reward.Redemption)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, red)
}

func (s *Server) reviewRedemption(decision core.Decision) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		red, ok := ctx.Get(contextObjectKey).(reward.Redemption)
		if !ok {
			return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
		}
		if err := s.requireAdministers(ctx, red.OrganizationID); err != nil {
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

		red, err = s.RewardSvc.Review(ctx.Request().Context(), red, decision, sess.User.ID, rn)
		if err != nil {
			return errors.Wrap(err, "reviewing redemption")
		}
		if s.Metrics != nil {
			s.Metrics.RedemptionReviewed(string(red.Status))
		}
		return ctx.JSON(http.StatusOK, red)
	}
}

// redemptionObjectMiddleware puts the Redemption of the path in the context,
// if the caller is the player who filed it or one of its reviewers.
func (s *Server) redemptionObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}
		red, err := s.RewardSvc.GetRedemption(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding redemption by ID")
		}
		if !sess.owns(red.OrganizationID, red.UserID) {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, red)
		return next(ctx)
	}
}
