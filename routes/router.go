package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/disciplineos/disciplineos/config"
	"github.com/disciplineos/disciplineos/controllers"
	"github.com/disciplineos/disciplineos/middleware"
	"github.com/disciplineos/disciplineos/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.GinLogger(), utils.GinRecovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Record page views after each request
	r.Use(middleware.ActivityRecorder(db))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	streakController := controllers.NewStreakController(db)
	subController := controllers.NewSubscriptionController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/send-register-code", authController.SendRegisterCode)
	authGroup.POST("/forgot-password", authController.ForgotPassword)
	authGroup.POST("/reset-password", authController.ResetPassword)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public endpoints
	api.GET("/tracks", streakController.ListTracks)
	api.GET("/stats", statsController.Overview)

	// Subscription status for the signed-in user; admin grant/revoke
	subGroup := api.Group("/subscription")
	subGroup.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	subGroup.GET("", subController.GetStatus)
	subGroup.POST("/grant", subController.Grant)
	subGroup.POST("/revoke", subController.Revoke)

	api.GET("/stats/pageviews", middleware.AuthRequired(), statsController.PageViews)

	// Track pages sit behind the subscription gate. Mutations additionally
	// run one at a time per user.
	tracks := api.Group("/tracks/:track")
	tracks.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(), middleware.SubscriptionRequired(db))
	tracks.GET("/state", streakController.GetState)

	mutating := tracks.Group("")
	mutating.Use(middleware.SingleFlight())
	mutating.POST("/checkin", streakController.CheckIn)
	mutating.PUT("/commitment", streakController.SaveCommitment)
	mutating.POST("/reset", streakController.Reset)
	mutating.PUT("/starting-day", streakController.SetStartingDay)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
