package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/service/auth"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

const ContextUser = "user"

type AuthMiddleware struct {
	authSvc    *auth.Service
	authorizer *privilege.Authorizer
}

func NewAuthMiddleware(authSvc *auth.Service, authorizer *privilege.Authorizer) *AuthMiddleware {
	return &AuthMiddleware{
		authSvc:    authSvc,
		authorizer: authorizer,
	}
}

// Authenticate resolves the bearer token to a live user and stores it in the
// request context. Resolution re-reads the user on every request so a
// password change or deactivation takes effect immediately.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized("missing authorization header", nil))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, errors.Unauthorized("invalid authorization format", nil))
			c.Abort()
			return
		}

		user, err := m.authSvc.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			httputil.RespondWithError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequirePrivilege gates the route on one capability pair. It runs after
// Authenticate.
func (m *AuthMiddleware) RequirePrivilege(module privilege.Module, op privilege.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
			c.Abort()
			return
		}

		if err := m.authorizer.Authorize(user.Principal(), module, op); err != nil {
			httputil.RespondWithError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by Authenticate.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
