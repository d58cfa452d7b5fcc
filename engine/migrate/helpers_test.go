package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/compozy/storagectl/engine/paths"
	"github.com/compozy/storagectl/engine/validate"
	"github.com/compozy/storagectl/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const appDataDir = "/appdata"

var (
	errInjected = errors.New("injected write failure")
	fixedNow    = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
)

// failFs fails file creation under prefix for the next n attempts once armed.
type failFs struct {
	afero.Fs
	mu     sync.Mutex
	prefix string
	n      int
}

func (f *failFs) arm(prefix string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefix = prefix
	f.n = n
}

func (f *failFs) shouldFail(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 || !strings.HasPrefix(filepath.Clean(name), f.prefix) {
		return false
	}
	f.n--
	return true
}

func (f *failFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 && f.shouldFail(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: errInjected}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *failFs) Create(name string) (afero.File, error) {
	if f.shouldFail(name) {
		return nil, &os.PathError{Op: "create", Path: name, Err: errInjected}
	}
	return f.Fs.Create(name)
}

type fixture struct {
	fs       afero.Fs
	store    *config.Store
	resolver *paths.Resolver
	engine   *Engine
}

func newFixture(t *testing.T, fsys afero.Fs, base string) *fixture {
	t.Helper()
	ctx := context.Background()
	platform := paths.Platform{AppDataDir: appDataDir}
	store := config.NewStore(platform.ConfigFile(), config.WithFs(fsys), config.WithEnvPrefix(""))
	store.Load(ctx)
	if base != "" {
		_, err := store.Merge(ctx, config.LinkPatch(base))
		require.NoError(t, err)
	}
	resolver := paths.NewResolver(store, fsys, platform)
	engine := NewEngine(fsys, store, resolver, validate.New(fsys),
		WithClock(func() time.Time { return fixedNow }),
		WithTempDir("/tmp"),
		WithIDGenerator(func() string { return "test" }),
	)
	return &fixture{fs: fsys, store: store, resolver: resolver, engine: engine}
}

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
}

// tree maps every file under root to its content, keyed by relative path.
func tree(t *testing.T, fsys afero.Fs, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func exists(t *testing.T, fsys afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fsys, path)
	require.NoError(t, err)
	return ok
}
