// Package server exposes the HTTP surface: the identity webhook intake and
// the organization-scoped job listing API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/config"
	"github.com/hireboard/hireboard/internal/identity/webhook"
	joblistingdomain "github.com/hireboard/hireboard/internal/joblisting/domain"
	"github.com/hireboard/hireboard/internal/observability"
)

func NewEngine(reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	verifier      *webhook.Verifier
	dispatcher    *webhook.Dispatcher
	joblistingSvc joblistingdomain.Service
	tagCache      cache.TagCache
	metrics       *observability.WebhookMetrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Verifier      *webhook.Verifier
	Dispatcher    *webhook.Dispatcher
	JoblistingSvc joblistingdomain.Service
	TagCache      cache.TagCache
	Metrics       *observability.WebhookMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		verifier:      p.Verifier,
		dispatcher:    p.Dispatcher,
		joblistingSvc: p.JoblistingSvc,
		tagCache:      p.TagCache,
		metrics:       p.Metrics,
	}

	s.registerWebhookRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/api/webhooks/identity", s.HandleIdentityWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.OrgContextMiddleware())
	{
		api.GET("/job_listings", s.ListJobListings)
		api.POST("/job_listings", s.CreateJobListing)
		api.GET("/job_listings/:id", s.GetJobListing)
		api.PATCH("/job_listings/:id", s.UpdateJobListing)
		api.POST("/job_listings/:id/toggle_status", s.ToggleJobListingStatus)
		api.POST("/job_listings/:id/toggle_featured", s.ToggleJobListingFeatured)
		api.DELETE("/job_listings/:id", s.DeleteJobListing)
	}
}

// RunHTTP starts the HTTP listener on the configured address and shuts it
// down with the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Module wires the gin engine, the server and the listener.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {}),
	fx.Invoke(RunHTTP),
)
