package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sponsorbase/sponsord/internal/config"
	sponsordomain "github.com/sponsorbase/sponsord/internal/sponsor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Manager sponsordomain.Manager
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	manager sponsordomain.Manager
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:     p.Cfg,
		log:     p.Log.Named("server"),
		manager: p.Manager,
	}
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.POST("/webhooks/github", s.Webhook)

	engine.GET("/accounts/:id/emails", s.ListAccountEmails)
	engine.GET("/emails/:email/account", s.LookupAccountByEmail)
	engine.GET("/installations/:kind/:id", s.GetInstallation)
	engine.GET("/sponsorships/:sponsorable/:sponsor", s.GetSponsorship)
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
