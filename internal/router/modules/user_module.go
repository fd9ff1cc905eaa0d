package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-user-registry/internal/interface/http"
	"github.com/oksasatya/go-user-registry/internal/interface/middleware"
)

// UserGroup is the route group every user endpoint lives under.
const UserGroup = "/usuarios"

// RateLimit configures the per-IP limiter in front of the user routes. A nil
// Redis client disables it.
type RateLimit struct {
	Redis         *redis.Client
	PerMinute     int
	BypassPrivate bool
}

// UserModule wires the user CRUD handlers:
//
//	GET    /usuarios
//	GET    /usuarios/email?value=
//	GET    /usuarios/search?q=&size=
//	GET    /usuarios/:id
//	POST   /usuarios
//	PUT    /usuarios/:id
//	DELETE /usuarios/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Limit   RateLimit
}

func NewUserModule(h *handlers.UserHandler, limit RateLimit) *UserModule {
	return &UserModule{Handler: h, Limit: limit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	var allow middleware.AllowFunc
	if m.Limit.BypassPrivate {
		allow = middleware.AllowPrivateIP()
	}
	limiter := middleware.RateLimit(m.Limit.Redis, m.Limit.PerMinute, time.Minute, middleware.KeyByIP("users"), allow)

	users := rg.Group(UserGroup, limiter)
	{
		users.GET("", m.Handler.List)
		users.POST("", m.Handler.Create)
		users.GET("/email", m.Handler.EmailTaken)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
