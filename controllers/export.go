package controllers

import (
	"net/http"
	"path/filepath"
	"time"

	"secrettime-backend/services"

	"github.com/gin-gonic/gin"
)

type ExportController struct {
	svc *services.Services
	dir string
}

func NewExportController(svc *services.Services, dir string) *ExportController {
	return &ExportController{svc: svc, dir: dir}
}

// CreateExport writes a workbook to the export directory.
// With ?download=true the file is sent back as an attachment.
func (ec *ExportController) CreateExport(c *gin.Context) {
	ctx := c.Request.Context()
	path, err := ec.svc.Exports.ExportAsync(ctx, ec.dir, time.Now()).Wait(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if c.Query("download") == "true" {
		c.FileAttachment(path, filepath.Base(path))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}
