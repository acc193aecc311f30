package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/apiserver/handlers"
	"github.com/foshrdd/grievance/pkg/apiserver/middleware"
	"github.com/foshrdd/grievance/pkg/auth"
	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/lifecycle"
	"github.com/foshrdd/grievance/pkg/store/postgres"
)

type Server struct {
	router *gin.Engine
	db     *postgres.Store
	engine *lifecycle.Engine
	tokens *auth.TokenManager
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(db *postgres.Store, engine *lifecycle.Engine, tokens *auth.TokenManager, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		db:     db,
		engine: engine,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(s.db, s.tokens, s.logger)
	r.POST("/api/v1/auth/login", authHandler.Login)

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.tokens))

		complaintHandler := handlers.NewComplaintHandler(s.engine, s.db, s.cfg.Server.UploadDir, s.logger)
		api.POST("/complaints", complaintHandler.Create)
		api.GET("/complaints", complaintHandler.List)
		api.GET("/complaints/:ticket", complaintHandler.Get)
		api.PUT("/complaints/:ticket", complaintHandler.Submit)
		api.GET("/complaints/:ticket/attachments", complaintHandler.Attachments)
		api.GET("/complaints/:ticket/routing", complaintHandler.History)
		api.POST("/complaints/:ticket/route/email", complaintHandler.RouteViaEmail)
		api.POST("/complaints/:ticket/route/portal", complaintHandler.RouteViaPortal)
		api.POST("/complaints/:ticket/close", middleware.RequireRole("admin", "io"), complaintHandler.Close)
		api.POST("/complaints/:ticket/bounce", middleware.RequireRole("admin", "io"), complaintHandler.Bounce)
		api.GET("/io-users", complaintHandler.IOUsers)
		api.GET("/dashboard/status-counts", complaintHandler.StatusCounts)

		notificationHandler := handlers.NewNotificationHandler(s.db, s.logger)
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/read", notificationHandler.MarkAllRead)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
