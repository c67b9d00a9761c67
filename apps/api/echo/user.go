package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/user"
	"github.com/cinetwork/cin/backend/services/authz"
)

var (
	errNoPermsToSetRole = errors.New("not enough rights to set this role")
	errNoPermsToSetOrg  = errors.New("you can only add members to your own organization")
)

func (s *Server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ug.POST("/login", s.login)
	ug.POST("/password-reset", s.resetPassword)
	ug.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt, s.activeUserMiddleware)
	ag.POST("/token-refresh", s.refreshTokenHandler)
	ag.POST("", s.createUser, s.requirePolicy(authz.Users, authz.ActCreate))
	ag.GET("", s.queryUsers, s.requirePolicy(authz.Users, authz.ActList))
	ag.DELETE("", s.destroyUsers, s.requirePolicy(authz.Users, authz.ActDelete))
	ag.GET("/roles", s.queryRoles, s.requirePolicy(authz.Users, authz.ActCreate))

	// detail endpoints
	dg := ag.Group("/:id", s.userObjectMiddleware)
	dg.GET("", s.retrieveUser, s.requirePolicy(authz.Users, authz.ActRead))
	dg.PUT("", s.updateUser, s.requirePolicy(authz.Users, authz.ActUpdate))
	dg.DELETE("", s.destroyUser, s.requirePolicy(authz.Users, authz.ActDelete))
}

// Handlers

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	claims, err := s.authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := s.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	err := s.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		s.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := s.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *Server) refreshTokenHandler(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}

	// organization admins add players to their own organization
	if !sess.isCINAdmin() {
		if role := core.CleanString(data.Role, true /* lower */); role != "" && role != string(capability.RolePlayer) {
			return core.NewFieldError("role", errNoPermsToSetRole)
		}
		if orgID := core.CleanString(data.OrganizationID); orgID != "" && orgID != sess.orgID() {
			return core.NewFieldError("organization_id", errNoPermsToSetOrg)
		}
		if sess.orgID() == "" {
			return errNoOrganization
		}
		data.Role = string(capability.RolePlayer)
		data.OrganizationID = sess.orgID()
	}

	usr, err := s.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *Server) retrieveUser(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) updateUser(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	if !sess.isCINAdmin() {
		// status, role, membership & login names can only be changed by network admins
		if data.IsActive != nil || data.Role != "" || data.OrganizationID != "" || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	// the caller cannot set a role above their own
	if role := capability.Role(core.CleanString(data.Role, true /* lower */)); role.IsValid() && role.Priority() > sess.Role.Priority() {
		return core.NewFieldError("role", errNoPermsToSetRole)
	}

	usr, err = s.UserSvc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) destroyUser(ctx echo.Context) error {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := s.UserSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) destroyUsers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range query.IDs {
		if id == ctxUsr.ID {
			return errHttpForbidden
		}
	}

	if err := s.UserSvc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryRoles(ctx echo.Context) error {
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}
	roles := make([]capability.Role, 0, len(capability.AllRoles))
	for _, role := range capability.AllRoles {
		if sess.isCINAdmin() || role == capability.RolePlayer {
			roles = append(roles, role)
		}
	}
	return ctx.JSON(http.StatusOK, roles)
}

// userObjectMiddleware puts the User of the path in the context, if the caller may see it:
// themselves, a member of the organization they administer, or anyone for network admins.
func (s *Server) userObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := s.getSession(ctx)
		if err != nil {
			return err
		}

		id := ctx.Param("id")
		usr := sess.User
		if id != sess.User.ID {
			if sess.Role == capability.RolePlayer {
				return errHttpNotFound
			}
			if usr, err = s.UserSvc.GetByID(ctx.Request().Context(), id); err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !sess.isCINAdmin() && !usr.BelongsTo(sess.orgID()) {
				return errHttpNotFound
			}
		}
		ctx.Set(contextObjectKey, usr)
		return next(ctx)
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
