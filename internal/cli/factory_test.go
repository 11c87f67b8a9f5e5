package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/testutils"
	redisAdapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/stages"
)

const bookmarksYAML = `groups:
  - name: Work
    default: true
    bookmarks:
      - kind: line
        path: cmd/main.go
        line: 12
      - kind: file
        path: go.mod
      - kind: line
        path: cmd/main.go
        line: 40
  - name: Reading
    bookmarks:
      - kind: url
        url: https://go.dev
`

func writeBookmarks(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "bookmarks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bookmarksYAML), 0644))
	return path
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := NewApp(cfg, logging.NewNop(), pipeline.Hooks{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func groupNames(t *testing.T, app *App) []string {
	t.Helper()
	roots, err := app.View().Roots(context.Background())
	require.NoError(t, err)
	names := make([]string, len(roots))
	for i, r := range roots {
		names[i] = r.Key()
	}
	return names
}

func TestNewApp_FileSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = writeBookmarks(t, t.TempDir())

	app := newTestApp(t, cfg)
	assert.Nil(t, app.Popup)
	assert.Same(t, app.Tree, app.View())
	assert.Equal(t, []string{"Work", "Reading"}, groupNames(t, app))

	rows, err := app.Tree.Children(context.Background(), "Work")
	require.NoError(t, err)
	require.Len(t, rows, 2, "line bookmarks are grouped under their file by default")
	assert.Equal(t, "main.go", rows[0].Node().Presentation().Text)
}

func TestNewApp_Popup(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = writeBookmarks(t, t.TempDir())
	cfg.Popup = true

	app := newTestApp(t, cfg)
	require.NotNil(t, app.Popup)
	assert.Same(t, app.Popup, app.View())
	assert.NotEqual(t, app.Tree.ID(), app.Popup.ID())

	rows, err := app.Popup.Children(context.Background(), "Reading")
	require.NoError(t, err)
	assert.Empty(t, rows, "the popup only shows line bookmarks")
}

func TestNewApp_ConfiguredStages(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = writeBookmarks(t, t.TempDir())
	cfg.Stages = []stages.Spec{
		{Name: stages.NameKinds, Options: map[string]any{"kinds": []string{"file"}}},
	}

	app := newTestApp(t, cfg)
	rows, err := app.Tree.Children(context.Background(), "Work")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "go.mod", rows[0].Node().Presentation().Text)
}

func TestNewApp_LoamSource(t *testing.T) {
	dir := t.TempDir()
	content := `---
name: Work
default: true
bookmarks:
  - kind: file
    path: go.mod
---
`
	testutils.WriteGroupDocs(t, dir, map[string]string{"work.md": content})

	cfg := config.Default()
	cfg.Source = config.SourceConfig{Type: config.SourceLoam, Path: dir}

	app := newTestApp(t, cfg)
	assert.Equal(t, []string{"Work"}, groupNames(t, app))

	rows, err := app.Tree.Children(context.Background(), "Work")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Work", rows[0].Group())
}

func TestNewApp_RedisSource(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	seed := redisAdapter.NewFromClient(client, redisAdapter.WithPrefix("test:"))
	require.NoError(t, seed.PutGroup(context.Background(), domain.Group{Name: "Work"}, []domain.Bookmark{
		{Kind: domain.KindURL, URL: "https://go.dev"},
	}))

	cfg := config.Default()
	cfg.Source = config.SourceConfig{
		Type:  config.SourceRedis,
		Redis: config.RedisConfig{Addr: mr.Addr(), Prefix: "test:", Lock: true},
	}

	app := newTestApp(t, cfg)
	assert.NotNil(t, app.locker)
	assert.Equal(t, []string{"Work"}, groupNames(t, app))

	rows, err := app.Tree.Children(context.Background(), "Work")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, mr.Exists("test:lock:Work"), "the branch lock is released after the refresh")
}

func TestNewApp_Errors(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		cfg := config.Default()
		cfg.Source.Type = "ftp"
		_, err := NewApp(cfg, logging.NewNop(), pipeline.Hooks{})
		assert.Error(t, err)
	})

	t.Run("unknown stage", func(t *testing.T) {
		cfg := config.Default()
		cfg.Source.Path = filepath.Join(t.TempDir(), "bookmarks.yaml")
		cfg.Stages = []stages.Spec{{Name: "nope"}}
		_, err := NewApp(cfg, logging.NewNop(), pipeline.Hooks{})
		assert.ErrorContains(t, err, "invalid stages")
	})
}

func TestCreateLogger(t *testing.T) {
	logger, err := createLogger(false, "warn")
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), -4))

	logger, err = createLogger(true, "error")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), -4), "debug wins over the configured level")

	_, err = createLogger(false, "loud")
	assert.Error(t, err)
}

func TestNewApp_DebugHooks(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = writeBookmarks(t, t.TempDir())
	var buf bytes.Buffer

	app, err := NewApp(cfg, logging.NewWriter(&buf, slog.LevelDebug), pipeline.Hooks{})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Tree.Children(context.Background(), "Work")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=Reconciled")
	assert.Contains(t, buf.String(), "group=Work")
}
