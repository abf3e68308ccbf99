package controllers

import (
	"net/http"

	"secrettime-backend/services"
	"secrettime-backend/utils"

	"github.com/gin-gonic/gin"
)

// UpdateCustomerInput defines the expected JSON structure for updating a customer
type UpdateCustomerInput struct {
	Name          string `json:"name" binding:"required"`
	ContactMethod string `json:"contactMethod" binding:"required"`
	UniqueMark    string `json:"uniqueMark"`
}

type CustomerController struct {
	svc *services.Services
}

func NewCustomerController(svc *services.Services) *CustomerController {
	return &CustomerController{svc: svc}
}

// GetCustomers lists customers with visit totals, optionally filtered by ?search=
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	customers, err := cc.svc.Customers.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (cc *CustomerController) GetCustomer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	customer, err := cc.svc.Customers.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// GetCustomerHistory returns every visit of the customer, newest first
func (cc *CustomerController) GetCustomerHistory(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	history, err := cc.svc.Customers.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	customer, err := cc.svc.Customers.Update(c.Request.Context(), id, services.CustomerUpdate{
		Name:          input.Name,
		ContactMethod: input.ContactMethod,
		UniqueMark:    input.UniqueMark,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes the customer together with the treatment history
func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := cc.svc.Customers.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

// CheckDuplicates lists customers with exactly ?name= and ?contact=
func (cc *CustomerController) CheckDuplicates(c *gin.Context) {
	name := c.Query("name")
	contact, ok := cc.svc.Rules.Policy().NormalizeContactMethod(c.Query("contact"))
	if name == "" || !ok {
		utils.RespondWithError(c, http.StatusBadRequest, "name and a known contact method are required")
		return
	}
	customers, err := cc.svc.Rules.CheckDuplicate(c.Request.Context(), name, contact)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// SuggestNames autocompletes customer names from ?prefix=
func (cc *CustomerController) SuggestNames(c *gin.Context) {
	names, err := cc.svc.Rules.SuggestNames(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}
