package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/sevsync/internal/config"
	orderdomain "github.com/smallbiznis/sevsync/internal/order/domain"
	syncdomain "github.com/smallbiznis/sevsync/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewMetrics),
	fx.Invoke(NewServer),
	fx.Invoke(warnWhenDisabled),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	settings *config.SettingsHolder
	store    orderdomain.Store
	syncSvc  syncdomain.Service
	metrics  *Metrics
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Log      *zap.Logger
	Settings *config.SettingsHolder
	Store    orderdomain.Store
	SyncSvc  syncdomain.Service
	Metrics  *Metrics
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Gin,
		log:      p.Log.Named("http.server"),
		settings: p.Settings,
		store:    p.Store,
		syncSvc:  p.SyncSvc,
		metrics:  p.Metrics,
	}
	s.RegisterWebhookRoutes()
	return s
}

func (s *Server) RegisterWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks/orders")
	webhooks.POST("/created", s.HandleOrderCreated)
	webhooks.POST("/contact-sync", s.HandleContactSync)
}

// warnWhenDisabled surfaces the missing-credential state at startup. The
// integration stays a silent no-op per event until a key appears.
func warnWhenDisabled(log *zap.Logger, settings *config.SettingsHolder) {
	if settings.APIKey() == "" {
		log.Warn("sevdesk API key not configured; order sync is disabled until one is set")
	}
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
