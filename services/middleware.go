package services

import (
	"net/http"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"

	"github.com/worldplex-live/worldplex_api/shared"
)

type AuthMiddleware struct {
	context.DefaultService

	jwtSvc *JWTService
}

const AUTH_MIDDLEWARE_SVC = "auth_middleware"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.jwtSvc = ctx.Service(JWT_SVC).(*JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	return nil
}

// RequiredAuth verifies the bearer token and stashes the user identity in
// request locals.
func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token, err := svc.jwtSvc.ExtractTokenFromHeader(authHeader)
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		}

		userID, role, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", "Invalid JWT token")
		}
		if userID == "" {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", "Invalid user ID in token")
		}

		c.Locals(shared.UserID, userID)
		c.Locals("role", role)
		return c.Next()
	}
}

// RequireRole gates a route group to one role. Must run after RequiredAuth.
func (svc *AuthMiddleware) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _ := c.Locals("role").(string)
		if current != role {
			return shared.ResponseJSON(c, http.StatusForbidden, "Forbidden", "Insufficient role")
		}
		return c.Next()
	}
}
