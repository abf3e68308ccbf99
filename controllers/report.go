// controllers/report.go
package controllers

import (
	"net/http"

	"secrettime-backend/services"

	"github.com/gin-gonic/gin"
)

// ReportController handles all reporting functions
type ReportController struct {
	svc *services.Services
}

func NewReportController(svc *services.Services) *ReportController {
	return &ReportController{svc: svc}
}

// GetMonths returns every month with a treatment or expense, newest first
func (rc *ReportController) GetMonths(c *gin.Context) {
	months, err := rc.svc.Rules.AvailableMonths(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, months)
}

// GetSnapshot returns the dashboard for ?month=, defaulting to the latest month
func (rc *ReportController) GetSnapshot(c *gin.Context) {
	ctx := c.Request.Context()
	task := rc.svc.Reports.SnapshotAsync(ctx, c.Query("month"))

	snapshot, err := task.Wait(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
