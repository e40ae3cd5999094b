package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/directory"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/storage"
)

const (
	serviceName = "SceneOS Session Manager"
	version     = "0.3.0"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	dir     *directory.Manager
	fold    *fold.Controller
	plugins *fold.PluginLoader
	dumper  *directory.Dumper
	store   *storage.Store
	metrics *HandlerMetrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. controller, plugins, store and
// metrics may be nil on devices without the matching capability.
func NewHandlers(
	dir *directory.Manager,
	controller *fold.Controller,
	plugins *fold.PluginLoader,
	dumper *directory.Dumper,
	store *storage.Store,
	metrics *HandlerMetrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dir:     dir,
		fold:    controller,
		plugins: plugins,
		dumper:  dumper,
		store:   store,
		metrics: metrics,
		logger:  logger.Named("http"),
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": version,
	})
}

// Health reports the state of each subsystem
func (h *Handlers) Health(c *gin.Context) {
	foldHealth := gin.H{"available": h.fold != nil}
	if h.fold != nil {
		foldHealth["status"] = h.fold.CurrentStatus().String()
		foldHealth["policy"] = h.fold.Policy().Name()
	}
	if h.plugins != nil {
		foldHealth["plugin"] = gin.H{
			"state": h.plugins.State().String(),
			"path":  h.plugins.Path(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"directory": gin.H{
			"sessions":   h.dir.SessionCount(),
			"screens":    len(h.dir.Screens()),
			"background": len(h.dir.BackgroundSessions()),
		},
		"fold":    foldHealth,
		"storage": gin.H{"available": h.store != nil},
	})
}
