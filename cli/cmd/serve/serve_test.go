package serve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/engine/storage"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, dir string) *storage.Service {
	t.Helper()
	fsys := afero.NewOsFs()
	platform := paths.Platform{AppDataDir: dir}
	store := config.NewStore(platform.ConfigFile(), config.WithFs(fsys), config.WithEnvPrefix(""))
	store.Load(context.Background())
	return storage.NewService(fsys, store, platform, storage.WithTempDir(t.TempDir()))
}

func start(t *testing.T, svc *storage.Service, opts Options) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	opts.Ready = func() { close(ready) }
	done := make(chan error, 1)
	go func() { done <- Run(ctx, svc, opts) }()
	select {
	case <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("daemon exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("daemon did not start")
	}
	return cancel, done
}

func TestRun(t *testing.T) {
	t.Run("Should re-arm auto-clean when the config file changes", func(t *testing.T) {
		dir := t.TempDir()
		svc := newService(t, dir)
		file := paths.Platform{AppDataDir: dir}.ConfigFile()
		cancel, done := start(t, svc, Options{ConfigFile: file})
		assert.False(t, svc.AutoCleanArmed())

		require.NoError(t, os.WriteFile(file, []byte("auto_clean_enabled: true\nauto_clean_days: 2\n"), 0o600))
		assert.Eventually(t, func() bool {
			return svc.AutoCleanArmed() && svc.Config().AutoCleanDays == 2
		}, 5*time.Second, 20*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
		assert.False(t, svc.AutoCleanArmed())
	})

	t.Run("Should start and stop the metrics server", func(t *testing.T) {
		dir := t.TempDir()
		svc := newService(t, dir)
		cancel, done := start(t, svc, Options{MetricsAddr: "127.0.0.1:0", MetricsPath: "/metrics"})
		cancel()
		require.NoError(t, <-done)
	})

	t.Run("Should fail on an invalid metrics path", func(t *testing.T) {
		svc := newService(t, t.TempDir())
		err := Run(context.Background(), svc, Options{MetricsAddr: "127.0.0.1:0", MetricsPath: "metrics"})
		assert.ErrorContains(t, err, "failed to initialize metrics")
	})

	t.Run("Should create the config directory before watching", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")
		svc := newService(t, dir)
		cancel, done := start(t, svc, Options{ConfigFile: filepath.Join(dir, "storage-config.yaml")})
		assert.DirExists(t, dir)
		cancel()
		require.NoError(t, <-done)
	})
}

func TestRun_MetricsListenFailure(t *testing.T) {
	t.Run("Should stop when the metrics server cannot listen", func(t *testing.T) {
		svc := newService(t, t.TempDir())
		done := make(chan error, 1)
		go func() {
			done <- Run(context.Background(), svc, Options{MetricsAddr: "127.0.0.1:99999", MetricsPath: "/metrics"})
		}()
		select {
		case err := <-done:
			assert.ErrorContains(t, err, "metrics server failed")
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop")
		}
	})
}
