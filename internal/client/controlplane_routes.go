package client

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/bucketsync/internal/client/handlers"
	"github.com/openmined/bucketsync/internal/client/middleware"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/history"
	"github.com/openmined/bucketsync/internal/version"
)

type RouteConfig struct {
	AuthToken string
	RateLimit string
	Logger    *slog.Logger
}

// RouteDeps are the services the control plane exposes.
type RouteDeps struct {
	// Ctx bounds pulls started through the API.
	Ctx     context.Context
	Engine  *sync.SyncEngine
	History *history.Store
}

func SetupRoutes(deps *RouteDeps, routeConfig *RouteConfig) (http.Handler, error) {
	r := gin.New()

	rate := routeConfig.RateLimit
	if rate == "" {
		rate = middleware.DefaultRate
	}
	rateLimiter, err := middleware.RateLimiter(rate)
	if err != nil {
		return nil, err
	}

	ctx := deps.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	statusH := handlers.NewStatusHandler(deps.Engine)
	syncH := handlers.NewSyncHandler(ctx, deps.Engine)
	historyH := handlers.NewHistoryHandler(deps.History)

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(routeConfig.Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	r.Use(rateLimiter)

	r.GET("/", IndexHandler)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(middleware.TokenAuthConfig{Token: routeConfig.AuthToken}))
	{
		v1.GET("/status", statusH.Status)

		v1Sync := v1.Group("/sync")
		{
			v1Sync.POST("/pull", syncH.StartPull)
			v1Sync.POST("/pull/wait", syncH.WaitPull)
			v1Sync.POST("/push", syncH.Push)
			v1Sync.GET("/events", syncH.Events)
			v1Sync.GET("/history", historyH.List)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})
	r.HandleMethodNotAllowed = true

	return r.Handler(), nil
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func IndexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
