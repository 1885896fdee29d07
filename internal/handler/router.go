package handler

import (
	"time"

	"issue-service/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Health     *HealthHandler
	Issues     *IssueHandler
	Categories *CategoryHandler
	Authority  *AuthorityHandler
	Officials  *OfficialHandler
	Locations  *LocationHandler
}

type RouterConfig struct {
	Env         string
	CORSOrigins []string
	Auth        *Authenticator
	// IssueLimiter caps issue creation per identity; nil disables it.
	IssueLimiter *ratelimit.Limiter
}

func NewRouter(log zerolog.Logger, cfg RouterConfig, h Handlers) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", h.Health.Health)

	api := r.Group("/", cfg.Auth.Identify())
	auth := RequireAuth()

	issues := api.Group("/issues")
	{
		issues.GET("", h.Issues.ListIssues)
		issues.POST("", auth, RateLimit(log, cfg.IssueLimiter), h.Issues.CreateIssue)
		issues.GET("/mine", auth, h.Issues.MyIssues)
		issues.GET("/:id", h.Issues.GetIssue)
		issues.PUT("/:id", auth, h.Issues.UpdateIssue)
		issues.PATCH("/:id/status", auth, h.Issues.UpdateStatus)
		issues.POST("/:id/escalate", auth, h.Issues.Escalate)
		issues.POST("/:id/comments", auth, h.Issues.AddComment)
		issues.POST("/:id/upvote", h.Issues.Upvote)
		issues.GET("/:id/upvote", h.Issues.UpvoteStatus)
		issues.POST("/:id/upvotes/recount", auth, h.Issues.RecountUpvotes)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", h.Categories.ListCategories)
		categories.GET("/:id", h.Categories.GetCategory)
		categories.POST("", auth, h.Categories.CreateCategory)
		categories.PUT("/:id", auth, h.Categories.UpdateCategory)
		categories.DELETE("/:id", auth, h.Categories.DeactivateCategory)
		categories.POST("/:id/subcategories", auth, h.Categories.CreateSubcategory)
	}

	subcategories := api.Group("/subcategories")
	{
		subcategories.GET("/:id/authority-types", h.Categories.AuthorityTypes)
		subcategories.PUT("/:id", auth, h.Categories.UpdateSubcategory)
		subcategories.DELETE("/:id", auth, h.Categories.DeactivateSubcategory)
	}

	authorities := api.Group("/authorities")
	{
		authorities.GET("", h.Authority.ListAuthorities)
		authorities.GET("/:id", h.Authority.GetAuthority)
		authorities.POST("", auth, h.Authority.CreateAuthority)
		authorities.PUT("/:id", auth, h.Authority.UpdateAuthority)
		authorities.DELETE("/:id", auth, h.Authority.DeleteAuthority)
	}

	officials := api.Group("/officials")
	{
		officials.GET("", h.Officials.ListOfficials)
		officials.GET("/suggest", h.Officials.SuggestOfficials)
		officials.GET("/:id", h.Officials.GetOfficial)
		officials.POST("", auth, h.Officials.CreateOfficial)
		officials.PUT("/:id", auth, h.Officials.UpdateOfficial)
		officials.DELETE("/:id", auth, h.Officials.DeactivateOfficial)
	}

	locations := api.Group("/locations")
	{
		locations.POST("/resolve", h.Locations.Resolve)
		locations.GET("/search", h.Locations.Search)
		locations.GET("/constituencies", h.Locations.Constituencies)
	}

	return r
}
