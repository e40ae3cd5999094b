package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/storage"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// ListStorageKeys lists the keys stored under a type
func (h *Handlers) ListStorageKeys(c *gin.Context) {
	if !h.storeReady(c) {
		return
	}
	t := storage.Type(c.Param("type"))
	c.JSON(http.StatusOK, gin.H{
		"type": t,
		"keys": h.store.Keys(t),
	})
}

// GetStorageValue returns one stored value
func (h *Handlers) GetStorageValue(c *gin.Context) {
	if !h.storeReady(c) {
		return
	}
	t, key := storage.Type(c.Param("type")), c.Param("key")

	var value any
	done := h.metrics.TrackStorageOperation("get")
	err := h.store.Get(t, key, &value)
	done(err)

	if err != nil {
		h.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// PutStorageValue stores the JSON body under key
func (h *Handlers) PutStorageValue(c *gin.Context) {
	if !h.storeReady(c) {
		return
	}
	t, key := storage.Type(c.Param("type")), c.Param("key")

	var value any
	if err := c.ShouldBindJSON(&value); err != nil {
		badRequest(c, err.Error())
		return
	}

	done := h.metrics.TrackStorageOperation("insert")
	err := h.store.Insert(t, key, value)
	done(err)

	if err != nil {
		h.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "key": key})
}

// DeleteStorageValue removes key. Removing an absent key succeeds.
func (h *Handlers) DeleteStorageValue(c *gin.Context) {
	if !h.storeReady(c) {
		return
	}
	t, key := storage.Type(c.Param("type")), c.Param("key")

	done := h.metrics.TrackStorageOperation("delete")
	err := h.store.Delete(t, key)
	done(err)

	if err != nil {
		h.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "key": key})
}

func (h *Handlers) storeReady(c *gin.Context) bool {
	if h.store == nil {
		respondError(c, errors.Join(types.WSErrorUnavailable, errors.New("storage disabled")))
		return false
	}
	return true
}

func (h *Handlers) storageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, storage.ErrUnknownType):
		badRequest(c, err.Error())
	default:
		respondError(c, err)
	}
}
