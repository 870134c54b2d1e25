package router

import (
	"log"

	"credanalyzer/config"
	"credanalyzer/controllers"
	"credanalyzer/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Initialize wires all routes and middlewares.
// Public routes + authenticated routes + "validated" routes (Authorizer).
func Initialize(r *gin.Engine, cfg config.Configuration) {
	_ = cfg

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Webhook do provedor de pagamento (assinatura validada no handler)
	api.POST("/webhook/stripe", Logger(), controllers.StripeWebhook)

	// Public (no auth)
	api.POST("/users", Logger(), controllers.CreateUser)
	api.POST("/login", Logger(), controllers.Login)
	api.GET("/plans", Logger(), controllers.GetPlans)
	api.GET("/plans/:id", Logger(), controllers.GetPlan)

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired())

	// Validated routes (token + active user)
	validated := auth.Group("")
	validated.Use(Authorizer())

	validated.GET("/me", Logger(), controllers.Me)
	validated.PUT("/me", Logger(), controllers.UpdateUser)

	// Checkout
	validated.POST("/checkout", Logger(), controllers.Checkout)
	validated.POST("/checkout/pix", Logger(), controllers.CheckoutPix)
	validated.POST("/checkout/pix/:paymentId/confirm", Logger(), controllers.ConfirmPix)

	// Subscription / créditos
	validated.GET("/subscription", Logger(), controllers.GetSubscription)
	validated.PUT("/subscription/auto-renew", Logger(), controllers.SetAutoRenew)
	validated.POST("/subscription/cancel", Logger(), controllers.CancelSubscription)
	validated.GET("/payments", Logger(), controllers.GetPayments)
	validated.GET("/plan-changes", Logger(), controllers.GetPlanChanges)

	// Cartões salvos
	validated.GET("/cards", Logger(), controllers.GetCards)
	validated.POST("/cards", Logger(), controllers.AddCard)
	validated.PUT("/cards/:id/default", Logger(), controllers.SetDefaultCard)
	validated.DELETE("/cards/:id", Logger(), controllers.DeleteCard)

	// Relatórios de análise de crédito
	validated.GET("/reports", Logger(), controllers.GetReports)
	validated.GET("/reports/:id", Logger(), controllers.GetReport)
	validated.POST("/reports", Logger(), controllers.CreateReport)

	// Admin routes
	admin := validated.Group("")
	admin.Use(Adminizer())

	admin.GET("/users", Logger(), controllers.GetUsers)

	// Plans CRUD (admin)
	admin.POST("/plans", Logger(), controllers.CreatePlan)
	admin.PUT("/plans/:id", Logger(), controllers.UpdatePlan)
	admin.DELETE("/plans/:id", Logger(), controllers.DeletePlan)

	log.Printf("Routes initialized")
}
