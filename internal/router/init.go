package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-registry/config"
	"github.com/oksasatya/go-user-registry/internal/container"
	handlers "github.com/oksasatya/go-user-registry/internal/interface/http"
	"github.com/oksasatya/go-user-registry/internal/interface/middleware"
	"github.com/oksasatya/go-user-registry/internal/router/modules"
	"github.com/oksasatya/go-user-registry/pkg/validation"
)

// InitModules builds the handlers from c and registers their modules.
func InitModules(r *Registry, c *container.Container) {
	users := handlers.NewUserHandler(c.Users, c.Logger, r.BasePath()+modules.UserGroup)
	r.Add(modules.NewUserModule(users, modules.RateLimit{
		Redis:         c.Redis,
		PerMinute:     c.Config.RateLimitPerMinute,
		BypassPrivate: c.Config.RateLimitBypassPrivate,
	}))
	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(c.Store)))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}

// NewEngine returns the gin engine with global middleware and every module
// registered.
func NewEngine(c *container.Container) *gin.Engine {
	validation.Init()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(corsConfig(c.Config)))
	if c.Config.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	reg := NewRegistry(r, c.Config.APIPrefix)
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

// corsConfig allows any origin when none are configured, in which case
// credentials are not allowed.
func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Location", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.CORSOrigins()
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}
