package app

import (
	"github.com/gin-gonic/gin"
	"github.com/scanledger/waitlist/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{"Hello": "World", "Service": a.cfg.ServiceName})
	})

	a.waitlist.RegisterRoutes(r)
	a.health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
}
