package controllers

import (
	"net/http"
	"time"

	"secrettime-backend/services"
	"secrettime-backend/utils"

	"github.com/gin-gonic/gin"
)

type TreatmentController struct {
	svc *services.Services
}

func NewTreatmentController(svc *services.Services) *TreatmentController {
	return &TreatmentController{svc: svc}
}

// GetTreatments returns the catalog in display order
func (tc *TreatmentController) GetTreatments(c *gin.Context) {
	treatments, err := tc.svc.Rules.Treatments(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, treatments)
}

// MatchTreatment finds the treatments a charged ?price= stands for
func (tc *TreatmentController) MatchTreatment(c *gin.Context) {
	price, err := utils.ParseAmount(c.Query("price"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := tc.svc.Rules.MatchTreatment(c.Request.Context(), price)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":   len(matches) > 0,
		"matches": matches,
	})
}

// GetRemainingSessions reports the customer's package for ?treatment=
func (tc *TreatmentController) GetRemainingSessions(c *gin.Context) {
	customerID, ok := queryUUID(c, "customerId")
	if !ok {
		return
	}
	treatment := c.DefaultQuery("treatment", tc.svc.Rules.Policy().PackageTreatment)

	status, err := tc.svc.Rules.RemainingSessions(c.Request.Context(), customerID, treatment)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applicable": treatment == tc.svc.Rules.Policy().PackageTreatment,
		"package":    status,
	})
}

// GetRetouchEligibility checks whether the customer may have a free retouch on ?date=
func (tc *TreatmentController) GetRetouchEligibility(c *gin.Context) {
	customerID, ok := queryUUID(c, "customerId")
	if !ok {
		return
	}
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		date = parsed
	}
	date = utils.DateOnly(date)

	grantor, err := tc.svc.Rules.CheckRetouchEligibility(c.Request.Context(), customerID, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if grantor == nil {
		c.JSON(http.StatusOK, gin.H{"eligible": false})
		return
	}
	window := tc.svc.Rules.Policy().RetouchWindowDays
	c.JSON(http.StatusOK, gin.H{
		"eligible":   true,
		"grantor":    grantor,
		"daysLeft":   window - utils.DaysBetween(grantor.TreatmentDate, date),
		"windowDays": window,
	})
}
