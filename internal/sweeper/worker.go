// Package sweeper runs the scheduled reconciliation pass that expires
// time-limited sponsorships. It holds no write path of its own: each run
// invokes the same manager method a webhook-driven cancellation would.
package sweeper

import (
	"context"
	"errors"
	"time"

	sponsordomain "github.com/sponsorbase/sponsord/internal/sponsor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Manager sponsordomain.Manager
	Config  Config `optional:"true"`
}

type Worker struct {
	log     *zap.Logger
	manager sponsordomain.Manager
	cfg     Config
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		log:     p.Log.Named("sweeper"),
		manager: p.Manager,
		cfg:     cfg,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("expiration sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	if w.manager == nil {
		return errors.New("sweeper_unavailable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.RunTimeout)
	defer cancel()

	ended, err := w.manager.CheckExpirations(ctx)
	if err != nil {
		return err
	}
	if ended > 0 {
		w.log.Info("ended expired sponsorships", zap.Int("count", ended))
	}
	return nil
}
