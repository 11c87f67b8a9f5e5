package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/stages"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbor.yaml")
	content := `
source:
  type: loam
  path: groups
popup: true
stages:
  - name: kinds
    options:
      kinds: [line, file]
  - name: sort
    priority: 10
    options:
      by: path
http:
  addr: ":9090"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceLoam, cfg.Source.Type)
	assert.Equal(t, filepath.Join(dir, "groups"), cfg.Source.Path, "relative paths follow the config file")
	assert.True(t, cfg.Popup)
	require.Len(t, cfg.Stages, 2)
	assert.Equal(t, stages.NameKinds, cfg.Stages[0].Name)
	require.NotNil(t, cfg.Stages[1].Priority)
	assert.Equal(t, 10, *cfg.Stages[1].Priority)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "localhost:6379", cfg.Source.Redis.Addr, "unset fields keep their defaults")
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.json")
	content := `{"source": {"type": "redis", "redis": {"addr": "cache:6379", "db": 2, "lock": true}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceRedis, cfg.Source.Type)
	assert.Equal(t, RedisConfig{Addr: "cache:6379", DB: 2, Lock: true}, cfg.Source.Redis)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":        "source: [",
		"unknown type":  "source:\n  type: sqlite\n",
		"unknown stage": "stages:\n  - name: shuffle\n",
		"bad options":   "stages:\n  - name: sort\n    options:\n      by: colour\n",
		"missing addr":  "source:\n  type: redis\n  redis:\n    addr: \"\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "arbor.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
