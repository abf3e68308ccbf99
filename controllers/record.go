package controllers

import (
	"net/http"

	"secrettime-backend/services"
	"secrettime-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateRecordInput defines the expected JSON structure for recording a visit
type CreateRecordInput struct {
	CustomerID    *string `json:"customerId"`
	Name          string  `json:"name"`
	ContactMethod string  `json:"contactMethod"`
	UniqueMark    string  `json:"uniqueMark"`

	Date  string `json:"date" binding:"required"`
	Price string `json:"price" binding:"required"`

	TreatmentName  string `json:"treatmentName"`
	IsPeak         *bool  `json:"isPeak"`
	Retouch        bool   `json:"retouch"`
	PackageSession bool   `json:"packageSession"`
}

type RecordController struct {
	svc *services.Services
}

func NewRecordController(svc *services.Services) *RecordController {
	return &RecordController{svc: svc}
}

// CreateRecord stores one visit and reports what kind of record it became
func (rc *RecordController) CreateRecord(c *gin.Context) {
	var input CreateRecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	date, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	price, err := utils.ParseAmount(input.Price)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	record := services.RecordInput{
		Name:           input.Name,
		ContactMethod:  input.ContactMethod,
		UniqueMark:     input.UniqueMark,
		TreatmentDate:  date,
		Price:          price,
		TreatmentName:  input.TreatmentName,
		IsPeak:         input.IsPeak,
		Retouch:        input.Retouch,
		PackageSession: input.PackageSession,
	}
	if input.CustomerID != nil && *input.CustomerID != "" {
		id, err := uuid.Parse(*input.CustomerID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid customerId format")
			return
		}
		record.CustomerID = &id
	}

	result, err := rc.svc.Records.Record(c.Request.Context(), record)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
