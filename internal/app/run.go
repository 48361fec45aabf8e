package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/config"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/flow"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/scheduler"
)

// Run loads the service descriptors, creates every service and, with
// auto-resume, enables the ones marked ENABLED. With Serve set it then
// blocks until ctx is cancelled and disables everything before returning.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.BulletinURL != "" {
		fwd, err := bulletin.NewForwarder(ctx, bulletin.ForwarderConfig{
			URL:       a.config.BulletinURL,
			Namespace: a.config.BulletinNamespace,
		})
		if err != nil {
			return fmt.Errorf("failed to start bulletin forwarder: %w", err)
		}
		a.forwarder = fwd
		a.sink = bulletin.Multi(a.bulletins, a.metrics, fwd)
		a.provider.SetSink(a.sink)
		defer fwd.Close()
	}

	if a.config.HealthcheckPort > 0 {
		if err := a.startStatusServer(ctx); err != nil {
			return err
		}
		defer func() {
			if cerr := a.closeStatusServer(ctx); err == nil {
				err = cerr
			}
		}()
	}

	model, err := config.LoadAll(ctx, a.config.ServicePaths, a.loaders...)
	if err != nil {
		return fmt.Errorf("failed to load service descriptors: %w", err)
	}

	nodes, err := flow.Load(ctx, model, a.provider, a.sink, flow.Options{
		AutoResume: a.config.AutoResume,
		Scheduler: scheduler.Options{
			MaxParallelism: a.config.Workers,
			PollInterval:   a.config.PollInterval,
			WaitTimeout:    a.config.WaitTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}
	a.logSummary(nodes)

	if !a.config.Serve {
		a.logger.Debug("App.Run method finished.")
		return nil
	}

	a.logger.Info("Serving until interrupted.")
	<-ctx.Done()
	a.logger.Info("Shutting down services...")

	shutdownCtx := context.WithoutCancel(ctx)
	a.provider.Wait()
	if err := flow.Unload(shutdownCtx, a.provider); err != nil {
		return fmt.Errorf("failed to disable services: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) logSummary(nodes []*node.Node) {
	counts := make(map[node.State]int)
	for _, n := range nodes {
		counts[n.State()]++
	}
	a.logger.Info("Service activation complete.",
		"total", len(nodes),
		"enabled", counts[node.Enabled],
		"enabling", counts[node.Enabling],
		"disabled", counts[node.Disabled],
	)
}
