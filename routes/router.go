package routes

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nbrandt/newsboard/config"
	"github.com/nbrandt/newsboard/controllers"
	"github.com/nbrandt/newsboard/middleware"
	"github.com/nbrandt/newsboard/utils"
)

// TemplatesGlob locates the page templates. Tests point it at the repo root.
var TemplatesGlob = "templates/*.html"

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

	r.Use(middleware.RequestID())
	r.Use(middleware.SessionContext())

	// Access log and panic recovery go through zap, separate from the
	// application log.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
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

	r.SetFuncMap(template.FuncMap{
		// selected reports whether the form's category choice matches the
		// option being rendered.
		"selected": func(sel *uint, id uint) bool {
			return sel != nil && *sel == id
		},
	})
	r.LoadHTMLGlob(TemplatesGlob)
	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		redisStatus := "down"
		if utils.RedisHealthy(ctx.Request.Context()) {
			redisStatus = "up"
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "redis": redisStatus})
	})

	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	authController := controllers.NewAuthController(db)

	authRequired := middleware.AuthRequired()
	rateLimited := middleware.RateLimitMiddleware()

	// Public reads
	r.GET("/", postController.List)
	r.GET("/category/:id/", postController.ListByCategory)
	r.GET("/post/:id/", postController.Detail)

	// Post mutations
	r.GET("/post/new/", authRequired, postController.NewForm)
	r.POST("/post/new/", authRequired, postController.Create)
	r.GET("/post/:id/edit/", authRequired, postController.EditForm)
	r.POST("/post/:id/edit/", authRequired, postController.Update)
	r.GET("/post/:id/delete/", authRequired, postController.DeleteConfirm)
	r.POST("/post/:id/delete/", authRequired, postController.Delete)

	// Comments
	r.GET("/post/:id/comment/", authRequired, commentController.AddForm)
	r.POST("/post/:id/comment/", authRequired, commentController.Add)
	r.GET("/comment/:id/edit/", authRequired, commentController.EditForm)
	r.POST("/comment/:id/edit/", authRequired, commentController.Edit)
	r.GET("/comment/:id/delete/", authRequired, commentController.DeleteConfirm)
	r.POST("/comment/:id/delete/", authRequired, commentController.Delete)

	// Accounts
	r.GET("/signup/", authController.SignupForm)
	r.POST("/signup/", rateLimited, authController.Signup)
	r.GET("/login/", authController.LoginForm)
	r.POST("/login/", rateLimited, authController.Login)
	r.POST("/logout/", authRequired, authController.Logout)
	r.GET("/account/settings/", authRequired, authController.Settings)
	r.GET("/account/delete/", authRequired, authController.DeleteAccountConfirm)
	r.POST("/account/delete/", authRequired, authController.DeleteAccount)

	// Password reset
	r.GET("/password/reset/", authController.PasswordResetForm)
	r.POST("/password/reset/", rateLimited, authController.PasswordReset)
	r.GET("/password/reset/confirm/", authController.PasswordResetConfirmForm)
	r.POST("/password/reset/confirm/", rateLimited, authController.PasswordResetConfirm)

	r.NoRoute(func(ctx *gin.Context) {
		ctx.HTML(http.StatusNotFound, "not_found.html", gin.H{})
	})

	return r
}
