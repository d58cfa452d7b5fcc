// Package serve runs storagectl as a long-lived daemon that keeps the
// auto-clean schedule armed and follows external edits to the config file.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/compozy/storagectl/cli/cmd"
	"github.com/compozy/storagectl/engine/infra/monitoring"
	"github.com/compozy/storagectl/engine/storage"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/compozy/storagectl/pkg/fsutil"
	"github.com/compozy/storagectl/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	flagMetricsAddr = "metrics-addr"
	flagMetricsPath = "metrics-path"

	shutdownTimeout = 5 * time.Second
)

// Options configures a daemon run.
type Options struct {
	// ConfigFile is watched for external edits. Empty disables watching.
	ConfigFile string
	// MetricsAddr enables the metrics endpoint when set.
	MetricsAddr string
	MetricsPath string
	// Ready is called once the daemon is fully started.
	Ready func()
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the auto-clean scheduler and follow config changes",
		Long: `Run until interrupted. The daemon arms the daily auto-clean from the
stored policy, reloads the config file when it changes on disk and
optionally serves Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{JSON: handleServe}, args)
		},
	}
	command.Flags().String(flagMetricsAddr, "", "Address to serve metrics on, e.g. 127.0.0.1:9464")
	command.Flags().String(flagMetricsPath, monitoring.DefaultConfig().Path, "HTTP path for metrics")
	return command
}

func handleServe(ctx context.Context, cobraCmd *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	addr, err := cobraCmd.Flags().GetString(flagMetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to get %s flag: %w", flagMetricsAddr, err)
	}
	path, err := cobraCmd.Flags().GetString(flagMetricsPath)
	if err != nil {
		return fmt.Errorf("failed to get %s flag: %w", flagMetricsPath, err)
	}
	opts := Options{MetricsAddr: addr, MetricsPath: path}
	if store := e.Store(); store != nil {
		opts.ConfigFile = store.Path()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, e.Service(), opts)
}

// Run starts the daemon and blocks until ctx is done or the metrics server fails.
func Run(ctx context.Context, svc *storage.Service, opts Options) error {
	log := logger.FromContext(ctx)
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	cleanup = append(cleanup, func() {
		cancel()
		_ = g.Wait()
	})
	if opts.MetricsAddr != "" {
		if err := startMetrics(gctx, g, svc, opts); err != nil {
			return err
		}
	}

	if err := svc.StartAutoClean(ctx); err != nil {
		return fmt.Errorf("failed to start auto-clean: %w", err)
	}
	cleanup = append(cleanup, svc.Close)

	if opts.ConfigFile != "" {
		watcher, err := watchConfig(ctx, svc, opts.ConfigFile)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() {
			if err := watcher.Close(); err != nil {
				log.Warn("failed to close config watcher", "error", err)
			}
		})
	}

	log.Info("storage daemon started",
		"base_path", svc.Resolver().BasePath(),
		"auto_clean", svc.AutoCleanArmed(),
		"metrics", opts.MetricsAddr,
	)
	if opts.Ready != nil {
		opts.Ready()
	}
	<-gctx.Done()
	log.Info("storage daemon stopping")
	return g.Wait()
}

func watchConfig(ctx context.Context, svc *storage.Service, file string) (*config.Watcher, error) {
	if err := fsutil.EnsureDir(afero.NewOsFs(), filepath.Dir(file)); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	watcher, err := config.NewWatcher(file)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func() {
		if err := svc.ReloadConfig(ctx); err != nil {
			logger.FromContext(ctx).Error("failed to apply reloaded config", "error", err)
		}
	})
	if err := watcher.Watch(ctx); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// startMetrics serves the exporter until gctx is done. A listen failure cancels gctx.
func startMetrics(gctx context.Context, g *errgroup.Group, svc *storage.Service, opts Options) error {
	log := logger.FromContext(gctx)
	mon, err := monitoring.NewMonitoringService(gctx, &monitoring.Config{Enabled: true, Path: opts.MetricsPath})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	svc.SetMetrics(mon.Storage())
	srv := &http.Server{
		Addr:              opts.MetricsAddr,
		Handler:           mon.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	g.Go(func() error {
		log.Info("serving metrics", "address", fmt.Sprintf("http://%s%s", opts.MetricsAddr, mon.Path()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", "error", err)
		}
		svc.SetMetrics(nil)
		if err := mon.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics provider shutdown failed", "error", err)
		}
		return nil
	})
	return nil
}
