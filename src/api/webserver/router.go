package webserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/votesnap/votesnap/src/api/config"
	"gorm.io/gorm"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, db, rdb)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	secret := []byte(cfg.JWTSecret)
	authH := NewAuth(db, rdb, secret)
	pollH := NewPolls(db, rdb, cfg.CodeAttemptMax)

	authLimiter := NewRateLimiter(20, time.Minute)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(RateLimitMiddleware(authLimiter))
		{
			auth.POST("/register", authH.Register)
			auth.POST("/login", authH.Login)
			auth.POST("/forgot-password", authH.ForgotPassword)
			auth.POST("/reset-password", authH.ResetPassword)
			auth.GET("/me", JWTMiddleware(secret), authH.Me)
			auth.POST("/register-admin", JWTMiddleware(secret), AdminMiddleware(db), authH.RegisterAdmin)
		}

		pollsGrp := api.Group("/polls")
		{
			pollsGrp.GET("/public", OptionalJWT(secret), pollH.Public)
			pollsGrp.GET("/user", JWTMiddleware(secret), pollH.Mine)
			pollsGrp.GET("/admin/dashboard", JWTMiddleware(secret), AdminMiddleware(db), pollH.AdminDashboard)
			pollsGrp.POST("", JWTMiddleware(secret), pollH.Create)
			pollsGrp.GET("/:id", OptionalJWT(secret), pollH.Get)
			pollsGrp.POST("/:id/vote", JWTMiddleware(secret), pollH.Vote)
			pollsGrp.PATCH("/:id/declare-results", JWTMiddleware(secret), pollH.DeclareResults)
			pollsGrp.DELETE("/:id", JWTMiddleware(secret), pollH.Delete)
		}
	}
}
