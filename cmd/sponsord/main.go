package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sponsorbase/sponsord/internal/clock"
	"github.com/sponsorbase/sponsord/internal/config"
	"github.com/sponsorbase/sponsord/internal/events"
	"github.com/sponsorbase/sponsord/internal/migration"
	"github.com/sponsorbase/sponsord/internal/observability/logger"
	"github.com/sponsorbase/sponsord/internal/observability/tracing"
	"github.com/sponsorbase/sponsord/internal/server"
	"github.com/sponsorbase/sponsord/internal/sponsor"
	"github.com/sponsorbase/sponsord/internal/sweeper"
	"github.com/sponsorbase/sponsord/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		tracing.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB, cfg.DatabaseDriver); err != nil {
				return err
			}
			log.Info("starting sponsord", zap.String("version", version), zap.String("environment", cfg.Environment))
			return nil
		}),
		events.Module,
		sponsor.Module,
		sweeper.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
