package routes

import (
	"time"

	"pest-tracker-api-server/config"
	"pest-tracker-api-server/internal/api/handlers"
	"pest-tracker-api-server/internal/api/middleware"
	"pest-tracker-api-server/internal/auth"
	"pest-tracker-api-server/internal/metrics"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/service"
	"pest-tracker-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the handlers for every API route.
func SetupRouter(
	cfg config.Config,
	svc *service.Services,
	tokens *auth.TokenIssuer,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics())
	router.Use(cors.New(corsConfig(cfg.Server.CORSAllowedOrigins)))

	responder := handlers.Responder{ExposeErrors: cfg.Server.ExposeErrors}
	authHandler := &handlers.AuthHandler{Responder: responder, Auth: svc.Auth}
	cropHandler := &handlers.CropHandler{Responder: responder, Crops: svc.Crops}
	pestHandler := &handlers.PestHandler{Responder: responder, Pests: svc.Pests}
	reportHandler := &handlers.ReportHandler{Responder: responder, Reports: svc.Reports}
	adminHandler := &handlers.AdminHandler{Responder: responder, Admin: svc.Admin}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub, Tokens: tokens, AllowedOrigins: cfg.Server.CORSAllowedOrigins}

	router.GET("/ping", handlers.Ping)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.NoRoute(handlers.NotFound)

	farmer := middleware.Authorize(models.RoleFarmer)
	agent := middleware.Authorize(models.RolePestControl)
	agentOrAdmin := middleware.Authorize(models.RolePestControl, models.RoleAdmin)

	api := router.Group("/api")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.GET("/ws", webSocketHandler.ServeWs)

		protected := api.Group("/")
		protected.Use(middleware.Authenticate(tokens))

		crops := protected.Group("/crops")
		{
			crops.POST("", farmer, cropHandler.RegisterCrop)
			crops.GET("/farmer", farmer, cropHandler.GetFarmerCrops)
			crops.PUT("/:cropId", farmer, cropHandler.UpdateCrop)
			crops.DELETE("/:cropId", farmer, cropHandler.DeleteCrop)
			crops.GET("", agentOrAdmin, cropHandler.GetAllCrops)
		}

		pests := protected.Group("/pests")
		{
			pests.POST("", agent, pestHandler.CreatePest)
			pests.PUT("/:pestId", agent, pestHandler.UpdatePest)
			pests.DELETE("/:pestId", agent, pestHandler.DeletePest)
			pests.GET("", pestHandler.GetAllPests)
		}

		reports := protected.Group("/reports")
		{
			reports.POST("", farmer, reportHandler.CreateReport)
			reports.GET("", reportHandler.GetReports)
			reports.GET("/summary", agentOrAdmin, reportHandler.GetReportSummary)
			reports.PUT("/:reportId", agent, reportHandler.UpdateReport)
			reports.POST("/:reportId/images", farmer, reportHandler.UploadReportImage)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.Authorize(models.RoleAdmin))
		{
			admin.GET("/stats", adminHandler.GetDashboardStats)
			admin.GET("/users/:role", adminHandler.GetUsersByRole)
			admin.GET("/reports/activity", adminHandler.GetActivityReport)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
