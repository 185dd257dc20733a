package relay

import (
	"net/http"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Store *Store
	Clock quartz.Clock
	Log   slog.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	health := func(c *gin.Context) {
		c.Status(http.StatusOK)
	}
	r.GET("/health", health)
	r.HEAD("/health", health)

	h := &syncHandler{Store: deps.Store, Clock: deps.Clock, Log: deps.Log}
	v1 := r.Group("/api/v1")
	v1.POST("/devices", h.RegisterDevice)
	v1.POST("/sync/push", h.Push)
	v1.GET("/sync/pull", h.Pull)

	return r
}
