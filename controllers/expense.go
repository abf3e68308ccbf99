package controllers

import (
	"net/http"

	"secrettime-backend/services"
	"secrettime-backend/utils"

	"github.com/gin-gonic/gin"
)

// ExpenseInput defines the expected JSON structure for creating or editing an expense
type ExpenseInput struct {
	Date        string `json:"date" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
}

type ExpenseController struct {
	svc *services.Services
}

func NewExpenseController(svc *services.Services) *ExpenseController {
	return &ExpenseController{svc: svc}
}

func (ec *ExpenseController) bind(c *gin.Context) (services.ExpenseInput, bool) {
	var input ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return services.ExpenseInput{}, false
	}
	date, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return services.ExpenseInput{}, false
	}
	return services.ExpenseInput{
		Date:        date,
		Category:    input.Category,
		Amount:      input.Amount,
		Description: input.Description,
	}, true
}

// GetExpenses lists expenses with daily net income, optionally for ?month=YYYY-MM
func (ec *ExpenseController) GetExpenses(c *gin.Context) {
	rows, err := ec.svc.Expenses.List(c.Request.Context(), c.Query("month"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (ec *ExpenseController) CreateExpense(c *gin.Context) {
	input, ok := ec.bind(c)
	if !ok {
		return
	}
	expense, err := ec.svc.Expenses.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (ec *ExpenseController) UpdateExpense(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	input, ok := ec.bind(c)
	if !ok {
		return
	}
	expense, err := ec.svc.Expenses.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (ec *ExpenseController) DeleteExpense(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := ec.svc.Expenses.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
