package routes

import (
	"secrettime-backend/config"
	"secrettime-backend/controllers"
	"secrettime-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(cfg *config.Config, svc *services.Services, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		// Customer routes
		customerController := controllers.NewCustomerController(svc)
		customers := api.Group("/customers")
		{
			customers.GET("", customerController.GetCustomers)
			customers.GET("/duplicates", customerController.CheckDuplicates)
			customers.GET("/suggest", customerController.SuggestNames)
			customers.GET("/:id", customerController.GetCustomer)
			customers.GET("/:id/history", customerController.GetCustomerHistory)
			customers.PUT("/:id", customerController.UpdateCustomer)
			customers.DELETE("/:id", customerController.DeleteCustomer)
		}

		// Treatment catalog and rule lookups
		treatmentController := controllers.NewTreatmentController(svc)
		treatments := api.Group("/treatments")
		{
			treatments.GET("", treatmentController.GetTreatments)
			treatments.GET("/match", treatmentController.MatchTreatment)
			treatments.GET("/remaining", treatmentController.GetRemainingSessions)
			treatments.GET("/retouch-eligibility", treatmentController.GetRetouchEligibility)
		}

		recordController := controllers.NewRecordController(svc)
		api.POST("/records", recordController.CreateRecord)

		// Expense routes
		expenseController := controllers.NewExpenseController(svc)
		expenses := api.Group("/expenses")
		{
			expenses.GET("", expenseController.GetExpenses)
			expenses.POST("", expenseController.CreateExpense)
			expenses.PUT("/:id", expenseController.UpdateExpense)
			expenses.DELETE("/:id", expenseController.DeleteExpense)
		}

		//Reports routes
		reportController := controllers.NewReportController(svc)
		api.GET("/reports/months", reportController.GetMonths)
		api.GET("/reports/snapshot", reportController.GetSnapshot)

		importController := controllers.NewImportController(svc)
		imports := api.Group("/imports")
		{
			imports.GET("", importController.GetImports)
			imports.POST("", importController.CreateImport)
			imports.DELETE("/:id", importController.DeleteImport)
		}

		exportController := controllers.NewExportController(svc, cfg.ExportDir)
		api.POST("/exports", exportController.CreateExport)
	}

	return r
}
