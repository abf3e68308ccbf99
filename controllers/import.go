package controllers

import (
	"io"
	"net/http"
	"strings"

	"secrettime-backend/services"
	"secrettime-backend/utils"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 4 << 20

type ImportController struct {
	svc *services.Services
}

func NewImportController(svc *services.Services) *ImportController {
	return &ImportController{svc: svc}
}

// CreateImport accepts the import text as a multipart "file" field or as a plain-text body
func (ic *ImportController) CreateImport(c *gin.Context) {
	var body io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Missing import file")
			return
		}
		f, err := header.Open()
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Unreadable import file")
			return
		}
		defer f.Close()
		body = f
	} else {
		body = c.Request.Body
	}

	result, err := ic.svc.Imports.Import(c.Request.Context(), io.LimitReader(body, maxImportBytes))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetImports lists import batches, newest first
func (ic *ImportController) GetImports(c *gin.Context) {
	records, err := ic.svc.Imports.ListImports(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// DeleteImport rolls back a whole batch
func (ic *ImportController) DeleteImport(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	removed, err := ic.svc.Imports.DeleteImport(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Import deleted successfully", "rowsRemoved": removed})
}
