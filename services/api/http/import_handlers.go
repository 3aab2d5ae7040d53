package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/munidigital/arbolado-api/services/api/importer"
)

// handleImportPreview parses an uploaded workbook and reports what an import
// would do, without writing anything: normalized rows, street-name
// unification suggestions, duplicate groups and invalid rows.
// POST /api/v1/trees/import/preview
func (s *Server) handleImportPreview(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "multipart field 'file' with an .xlsx workbook is required",
			"error":   err.Error(),
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "could not open uploaded file", "error": err.Error()})
		return
	}
	defer f.Close()

	rows, err := importer.ParseWorkbook(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "uploaded file is not a readable spreadsheet", "error": err.Error()})
		return
	}

	records, invalids := importer.NormalizeRows(rows)

	c.JSON(http.StatusOK, gin.H{
		"rows":        records,
		"suggestions": importer.ClusterStreetNames(records),
		"duplicates":  importer.DuplicateGroups(records),
		"invalids":    invalids,
	})
}

// handleImport commits an import. Two request shapes: a JSON body with an
// already-normalized rows array (the edited preview set), or a multipart
// workbook upload with an optional replaceAll="1" flag.
// POST /api/v1/trees/import
func (s *Server) handleImport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	if c.ContentType() == "multipart/form-data" {
		s.importFromWorkbook(ctx, c)
		return
	}

	var body struct {
		Rows []importer.Record `json:"rows"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Rows == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "expected a multipart workbook upload or a JSON body with a 'rows' array",
		})
		return
	}

	records := make([]importer.Record, 0, len(body.Rows))
	for _, rec := range body.Rows {
		if clean, ok := importer.CleanRecord(rec); ok {
			records = append(records, clean)
		}
	}
	deduped, dropped := importer.DedupeFirstSeen(records)

	created, err := importer.Load(ctx, s.store, deduped, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "import failed", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"created":  created,
		"mode":     "json",
		"received": len(body.Rows),
		"deduped":  dropped,
	})
}

func (s *Server) importFromWorkbook(ctx context.Context, c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "multipart field 'file' with an .xlsx workbook is required",
			"error":   err.Error(),
		})
		return
	}
	replaceAll := c.PostForm("replaceAll") == "1"

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "could not open uploaded file", "error": err.Error()})
		return
	}
	defer f.Close()

	rows, err := importer.ParseWorkbook(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "uploaded file is not a readable spreadsheet", "error": err.Error()})
		return
	}

	result, err := importer.RunImport(ctx, s.store, rows, replaceAll)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "import failed", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"created":          result.Created,
		"skipped":          result.Skipped,
		"duplicateSkipped": result.DuplicateSkipped,
		"errors":           result.Invalids,
		"mode":             "excel",
	})
}
