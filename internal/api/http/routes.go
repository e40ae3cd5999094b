package http

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches the scene API to r
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Sessions
	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/connect", h.ConnectSession)
	r.POST("/sessions/:id/activate", h.ActivateSession)
	r.POST("/sessions/:id/foreground", h.ForegroundSession)
	r.POST("/sessions/:id/background", h.BackgroundSession)
	r.POST("/sessions/:id/deactivate", h.DeactivateSession)
	r.POST("/sessions/:id/disconnect", h.DisconnectSession)
	r.POST("/sessions/:id/rect", h.LayoutSession)
	r.GET("/sessions/:id/rotation", h.SessionRotation)
	r.DELETE("/sessions/:id", h.DeleteSession)

	// Screens
	r.GET("/screens", h.ListScreens)
	r.POST("/screens/:id/position", h.SetScreenPosition)
	r.POST("/screens/:id/rotation", h.SetScreenRotation)

	// Fold engine
	r.GET("/fold", h.GetFold)
	r.POST("/fold/sensor", h.InjectSensor)

	// Diagnostics
	r.GET("/dump", h.Dump)

	// Key/value store
	r.GET("/storage/:type", h.ListStorageKeys)
	r.GET("/storage/:type/:key", h.GetStorageValue)
	r.PUT("/storage/:type/:key", h.PutStorageValue)
	r.DELETE("/storage/:type/:key", h.DeleteStorageValue)
}
