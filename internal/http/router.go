package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/config"
	"github.com/smallbiznis/valora-accounts/internal/http/handler"
	"github.com/smallbiznis/valora-accounts/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, logger *zap.Logger, authHandler *handler.AuthHandler, userHandler *handler.UserHandler, orgHandler *handler.OrganizationHandler, authMiddleware *middleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/signin", authHandler.Signin)
		auth.POST("/refresh-token", authHandler.RefreshToken)
	}

	users := r.Group("/users")
	{
		users.POST("", userHandler.Create)
		users.GET("", authMiddleware.RequireUser, userHandler.List)
		users.GET("/profile", authMiddleware.RequireUser, userHandler.Profile)
		users.PUT("/profile", authMiddleware.RequireUser, userHandler.UpdateProfile)
		users.DELETE("/profile", authMiddleware.RequireUser, userHandler.Deactivate)
		users.PATCH("/password", authMiddleware.RequireUser, userHandler.UpdatePassword)
		users.POST("/password-reset-request", userHandler.RequestPasswordReset)
		users.POST("/password-reset", userHandler.ResetPassword)
		users.POST("/verify-email/:token", userHandler.VerifyEmail)
		users.PUT("/preferences", authMiddleware.RequireUser, userHandler.UpdatePreferences)
	}

	organizations := r.Group("/organization", authMiddleware.RequireUser)
	{
		organizations.POST("", orgHandler.Create)
		organizations.GET("", orgHandler.List)
		organizations.GET("/:id", orgHandler.GetByID)
		organizations.PUT("/:id", orgHandler.Update)
		organizations.DELETE("/:id", orgHandler.Remove)
		organizations.POST("/:id/invite", orgHandler.InviteUser)
	}

	return r
}
