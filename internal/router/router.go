// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/handlers"
	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/middleware"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

// Uploads are capped per file by storage rules; this bounds what gin
// buffers in memory before spilling to disk.
const maxMultipartMemory = 32 << 20

// Services holds everything the HTTP layer calls into.
type Services struct {
	Auth          *services.AuthService
	PasswordReset *services.PasswordResetService
	User          *services.UserService
	Product       *services.ProductService
	Purchase      *services.PurchaseService
	Payment       *services.PaymentService
	Contact       *services.ContactService
	Admin         *services.AdminService
}

func Initialize(cfg *config.Config, svc *Services, limiters *middleware.RateLimiters) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.PasswordReset)
	userHandler := handlers.NewUserHandler(svc.User)
	productHandler := handlers.NewProductHandler(svc.Product)
	purchaseHandler := handlers.NewPurchaseHandler(svc.Purchase)
	paymentHandler := handlers.NewPaymentHandler(svc.Payment)
	contactHandler := handlers.NewContactHandler(svc.Contact)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	r := gin.New()
	r.MaxMultipartMemory = maxMultipartMemory

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	if cfg.Server.Metrics {
		r.Use(middleware.Metrics())
	}
	r.Use(limiters.General.Middleware())

	r.NoRoute(func(c *gin.Context) {
		utils.NotFoundResponse(c, i18n.KeyRouteNotFound)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	if cfg.Server.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if cfg.Storage.Driver == "local" {
		r.Static("/uploads", cfg.Storage.LocalRoot)
	}

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", limiters.Auth.Middleware(), authHandler.Register)
			auth.POST("/login", limiters.Auth.Middleware(), authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/verify-code", authHandler.VerifyCode)
			auth.POST("/reset-password", authHandler.ResetPassword)

			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.GET("/me", middleware.AuthRequired(), userHandler.GetProfile)
			auth.PUT("/profile", middleware.AuthRequired(), userHandler.UpdateProfile)
			auth.PUT("/password", middleware.AuthRequired(), userHandler.UpdatePassword)
		}

		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/pdf", productHandler.DownloadProductSheet)
			products.POST("/:id/purchases", middleware.AuthRequired(), limiters.Upload.Middleware(), purchaseHandler.SubmitPurchase)
		}

		v1.POST("/contacts", contactHandler.Submit)

		purchases := v1.Group("/purchases")
		purchases.Use(middleware.AuthRequired())
		{
			purchases.GET("/mine", purchaseHandler.GetMyPurchases)
			purchases.GET("/:id", purchaseHandler.GetPurchase)
			purchases.POST("/:id/pay", paymentHandler.CapturePayment)
			purchases.GET("/:id/invoice", paymentHandler.DownloadInvoice)
		}

		v1.POST("/payments/webhook", paymentHandler.Webhook)

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLogMiddleware(svc.Admin))
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			admin.GET("/products", productHandler.GetAdminProducts)
			admin.POST("/products", limiters.Upload.Middleware(), productHandler.CreateProduct)
			admin.PUT("/products/:id", limiters.Upload.Middleware(), productHandler.UpdateProduct)
			admin.PATCH("/products/:id/toggle-status", productHandler.ToggleStatus)

			admin.GET("/purchases", purchaseHandler.GetPaidPurchases)
			admin.PATCH("/purchases/:id/status", purchaseHandler.UpdateOrderStatus)

			admin.GET("/contacts", contactHandler.List)
		}
	}

	return r
}
