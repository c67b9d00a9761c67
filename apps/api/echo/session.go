package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/user"
	"github.com/cinetwork/cin/backend/services/authz"
)

// SessionResponse is everything a client needs to decide what to render for the caller.
type SessionResponse struct {
	User         user.User                    `json:"user"`
	Role         capability.Role              `json:"role"`
	Organization *capability.Organization     `json:"organization"`
	Features     capability.VisibleFeatureSet `json:"features"`
	Navigation   []capability.NavGroup        `json:"navigation"`
}

func (s *Server) registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	g.GET("/session", s.retrieveSession, jwt, s.activeUserMiddleware, s.requirePolicy(authz.Session, authz.ActRead))
}

// retrieveSession returns the caller's features & navigation.
// ?visible=true drops hidden navigation groups & items.
func (s *Server) retrieveSession(ctx echo.Context) error {
	sess, err := s.getSession(ctx)
	if err != nil {
		return err
	}

	nav := capability.Project(sess.Role, sess.Features)
	if ctx.QueryParam("visible") == "true" {
		nav = capability.Visible(nav)
	}
	return ctx.JSON(http.StatusOK, SessionResponse{
		User:         sess.User,
		Role:         sess.Role,
		Organization: sess.Organization,
		Features:     sess.Features,
		Navigation:   nav,
	})
}
