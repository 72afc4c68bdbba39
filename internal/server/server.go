package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/followup/internal/config"
	"github.com/smallbiznis/followup/internal/facility/registry"
	followupdomain "github.com/smallbiznis/followup/internal/followup/domain"
	"github.com/smallbiznis/followup/internal/observability"
	obslogger "github.com/smallbiznis/followup/internal/observability/logger"
	obstracing "github.com/smallbiznis/followup/internal/observability/tracing"
	recurringdomain "github.com/smallbiznis/followup/internal/recurring/domain"
	transactiondomain "github.com/smallbiznis/followup/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.server.failed", zap.Error(err))
				}
			}()
			log.Info("http.server.started", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	db             *gorm.DB
	followupSvc    followupdomain.Service
	recurringSvc   recurringdomain.Service
	transactionSvc transactiondomain.Service
	facilities     *registry.Registry
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	DB             *gorm.DB
	FollowupSvc    followupdomain.Service
	RecurringSvc   recurringdomain.Service
	TransactionSvc transactiondomain.Service
	Facilities     *registry.Registry
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		db:             p.DB,
		followupSvc:    p.FollowupSvc,
		recurringSvc:   p.RecurringSvc,
		transactionSvc: p.TransactionSvc,
		facilities:     p.Facilities,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/healthz", s.Health)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/facilities", s.ListFacilities)

	followups := api.Group("/followup_requests")
	followups.Use(ActorRequired())
	followups.POST("", s.CreateFollowupRequest)
	followups.GET("/:id", s.GetFollowupRequest)
	followups.POST("/:id/submit", s.SubmitFollowupRequest)
	followups.PATCH("/:id", s.UpdateFollowupRequest)
	followups.DELETE("/:id", s.DeleteFollowupRequest)
	followups.GET("/:id/transactions", s.ListFollowupTransactions)

	recurring := api.Group("/recurring_calls")
	recurring.Use(ActorRequired())
	recurring.POST("", s.CreateRecurringCall)
	recurring.GET("", s.ListRecurringCalls)
	recurring.GET("/:id", s.GetRecurringCall)
	recurring.DELETE("/:id", s.CancelRecurringCall)
	recurring.GET("/:id/transactions", s.ListRecurringCallTransactions)
}

func (s *Server) Health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			body = gin.H{"status": "degraded", "database": err.Error()}
		}
	}
	c.JSON(status, body)
}

func (s *Server) ListFacilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.facilities.Facilities()})
}
