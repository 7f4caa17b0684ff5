package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cratehub/cratehub/internal/registry"
)

// CrateHandler serves the crate browse API.
type CrateHandler struct {
	reg *registry.Registry
}

// NewCrateHandler creates a new crate handler.
func NewCrateHandler(reg *registry.Registry) *CrateHandler {
	return &CrateHandler{reg: reg}
}

// GetCrates returns all indexed crate names.
func (h *CrateHandler) GetCrates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"crates": h.reg.Crates(),
	})
}

// GetVersions returns every release of a crate, newest first.
func (h *CrateHandler) GetVersions(c *gin.Context) {
	name := c.Param("name")

	versions, err := h.reg.Versions(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     name,
		"versions": versions,
	})
}

// GetHealth reports index counts for monitoring.
func (h *CrateHandler) GetHealth(c *gin.Context) {
	crates, releases := h.reg.Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"crates":   crates,
		"releases": releases,
	})
}
