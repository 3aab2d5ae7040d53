package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/munidigital/arbolado-api/services/api/db"
	"github.com/munidigital/arbolado-api/services/api/importer"
)

// handleListTrees returns the stored inventory ordered by creation time.
// GET /api/v1/trees
func (s *Server) handleListTrees(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	trees, err := s.store.ListTrees(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": trees,
		"meta": gin.H{
			"count": len(trees),
		},
	})
}

// handleCreateTree inserts a single manually-entered tree. Species, street
// name and street number are required after normalization; an unrecognized
// status defaults to Sano on this path.
// POST /api/v1/trees
func (s *Server) handleCreateTree(c *gin.Context) {
	var in db.NewTree
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body", "error": err.Error()})
		return
	}

	if importer.CleanText(in.Species) == "" ||
		importer.CleanText(in.StreetName) == "" ||
		importer.DigitsOnly(in.StreetNumber) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "species, streetName and streetNumber are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	id, err := s.store.CreateTree(ctx, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "create failed", "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id})
}

// handleDeleteAllTrees removes every stored tree row unconditionally.
// DELETE /api/v1/trees
func (s *Server) handleDeleteAllTrees(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := s.store.DeleteAllTrees(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "delete failed", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleDedupeSweep deletes later occurrences of repeated natural keys,
// keeping the oldest row of each group.
// POST /api/v1/trees/dedupe
func (s *Server) handleDedupeSweep(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	deleted, err := s.store.SweepExactDuplicates(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "dedupe sweep failed", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
}
