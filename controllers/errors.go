package controllers

import (
	"errors"
	"net/http"

	"secrettime-backend/config"
	"secrettime-backend/services"
	"secrettime-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// respondServiceError maps service errors onto status codes:
// rejected input 422, customer ambiguity 409, missing row 404, anything else 500.
func respondServiceError(c *gin.Context, err error) {
	var (
		dup        *services.DuplicateCustomerError
		lineErrs   services.ParseErrors
		invalidErr *services.ValidationError
	)
	switch {
	case errors.As(err, &dup):
		utils.RespondWithDetails(c, http.StatusConflict, err.Error(), gin.H{
			"name":          dup.Name,
			"contactMethod": dup.ContactMethod,
			"candidates":    dup.Candidates,
		})
	case errors.As(err, &lineErrs):
		utils.RespondWithDetails(c, http.StatusUnprocessableEntity, err.Error(), lineErrs)
	case errors.As(err, &invalidErr):
		if len(invalidErr.Candidates) > 0 {
			utils.RespondWithDetails(c, http.StatusUnprocessableEntity, err.Error(), invalidErr.Candidates)
			return
		}
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
	default:
		config.LogError(config.GetLogger(), "controllers", c.HandlerName(), c.Request.URL.Path, nil, err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal error")
	}
}

// paramUUID reads a uuid path parameter, answering 400 when it is malformed.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Query(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid or missing "+name)
		return uuid.Nil, false
	}
	return id, true
}
