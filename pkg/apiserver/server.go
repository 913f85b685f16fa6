package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/apiserver/handlers"
	"github.com/printdesk/printdesk/pkg/apiserver/middleware"
	"github.com/printdesk/printdesk/pkg/auth"
	"github.com/printdesk/printdesk/pkg/config"
	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/notify"
	"github.com/printdesk/printdesk/pkg/store/postgres"
	redisclient "github.com/printdesk/printdesk/pkg/store/redis"
	"github.com/printdesk/printdesk/pkg/workflow"
)

type Server struct {
	router     *gin.Engine
	db         *postgres.Store
	redis      *redisclient.Client
	dispatcher *notify.Dispatcher
	cfg        *config.Config
	logger     *zap.Logger
	tokens     *auth.TokenManager
}

func NewServer(db *postgres.Store, redis *redisclient.Client, cfg *config.Config, logger *zap.Logger, dispatcher *notify.Dispatcher) *Server {
	s := &Server{
		db:         db,
		redis:      redis,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		tokens:     auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
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
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var bus *eventbus.Bus
	if s.redis != nil {
		bus = eventbus.NewBus(s.redis.Client())
	}

	var engine *workflow.Engine
	if s.db != nil {
		engine = workflow.NewEngine(
			postgres.NewStatusRepository(s.db.DB()),
			postgres.NewJobRepository(s.db.DB()),
			bus,
			s.logger,
			s.cfg.Notify.CancelCutoffSequence,
		)
	}

	jobHandler := handlers.NewJobHandler(s.db, engine, bus, s.logger)

	// Tracking lookup is public: the code itself is the credential.
	r.GET("/track/:code", jobHandler.Track)

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.tokens))

		api.POST("/jobs", jobHandler.Create)
		api.GET("/jobs", jobHandler.List)
		api.GET("/jobs/:id", jobHandler.Get)
		api.POST("/jobs/:id/cancel", jobHandler.Cancel)

		statusHandler := handlers.NewStatusHandler(s.db, s.logger)
		api.GET("/workflow-statuses", statusHandler.List)

		preferenceHandler := handlers.NewPreferenceHandler(s.db, s.logger)
		api.GET("/preferences", preferenceHandler.Get)
		api.PUT("/preferences", preferenceHandler.Update)

		admin := api.Group("")
		admin.Use(middleware.RequireAdmin())

		admin.POST("/jobs/:id/advance", jobHandler.Advance)
		admin.POST("/workflow-statuses", statusHandler.Create)
		admin.PUT("/workflow-statuses/:id", statusHandler.Update)

		deliveryHandler := handlers.NewDeliveryHandler(s.db, bus, s.logger)
		admin.POST("/deliveries", deliveryHandler.Create)
		admin.PUT("/deliveries/:id/status", deliveryHandler.UpdateStatus)

		notificationHandler := handlers.NewNotificationHandler(s.db, s.dispatcher, s.logger)
		admin.POST("/notifications/dispatch", notificationHandler.Dispatch)
		admin.GET("/notifications/logs", notificationHandler.ListLogs)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Tokens() *auth.TokenManager {
	return s.tokens
}
