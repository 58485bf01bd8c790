package config_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gridguardian-backend/internal/config"
	apperrors "gridguardian-backend/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func envMap(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"TABLE_NAME":             "gridguardian-test",
		"POINTS_COLLECTION_PATH": "regions/latam/points",
	}
}

// TestLoad_Defaults tests that only the required variables are needed.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.NewLoader("").WithLookup(envMap(requiredEnv())).Load()

	require.NoError(t, err)
	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, "gridguardian-test", cfg.Graph.TableName)
	assert.Equal(t, "neighbors", cfg.Graph.NeighborsCollection)
	assert.Equal(t, "name", cfg.Graph.NeighborReference)
	assert.Equal(t, "latam_graph_v1", cfg.Cache.Key)
	assert.Equal(t, -15.0, cfg.Map.DefaultLat)
	assert.Equal(t, -60.0, cfg.Map.DefaultLng)
	assert.Equal(t, 4, cfg.Map.DefaultZoom)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)

	segments, err := cfg.PointsSegments()
	require.NoError(t, err)
	assert.Equal(t, []string{"regions", "latam", "points"}, segments)
}

// TestLoad_MissingRequired tests the fail-fast behavior for required strings.
func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		missing []string
	}{
		{
			name:    "nothing set",
			env:     map[string]string{},
			missing: []string{"TABLE_NAME", "POINTS_COLLECTION_PATH"},
		},
		{
			name:    "blank table name",
			env:     map[string]string{"TABLE_NAME": "   ", "POINTS_COLLECTION_PATH": "points"},
			missing: []string{"TABLE_NAME"},
		},
		{
			name: "file cache without dir",
			env: map[string]string{
				"TABLE_NAME": "t", "POINTS_COLLECTION_PATH": "points", "CACHE_BACKEND": "file",
			},
			missing: []string{"CACHE_DIR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.NewLoader("").WithLookup(envMap(tt.env)).Load()

			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
			for _, key := range tt.missing {
				assert.Contains(t, err.Error(), key)
			}
		})
	}
}

// TestLoad_StrictTypes tests that malformed typed values are rejected.
func TestLoad_StrictTypes(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ENABLE_TRACING", "sometimes"},
		{"MAP_DEFAULT_ZOOM", "four"},
		{"MAP_DEFAULT_LAT", "south"},
		{"POLL_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			env := requiredEnv()
			env[tt.key] = tt.value

			_, err := config.NewLoader("").WithLookup(envMap(env)).Load()

			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

// TestLoad_EnvOverrides tests typed overlays.
func TestLoad_EnvOverrides(t *testing.T) {
	env := requiredEnv()
	env["ENVIRONMENT"] = "Production"
	env["POLL_INTERVAL"] = "5"
	env["CACHE_TTL"] = "1h30m"
	env["NEIGHBOR_REFERENCE"] = "id"
	env["ALLOWED_ORIGINS"] = "https://a.example, https://b.example"
	env["ENABLE_AUTH"] = "true"
	env["JWT_SECRET"] = "s3cret"

	cfg, err := config.NewLoader("").WithLookup(envMap(env)).Load()

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Second, cfg.Graph.PollInterval)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "id", cfg.Graph.NeighborReference)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Security.EnableAuth)
}

// TestLoad_Validation tests rejected values.
func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown reference mode", "NEIGHBOR_REFERENCE", "slug"},
		{"unknown cache backend", "CACHE_BACKEND", "redis"},
		{"auth without secret", "ENABLE_AUTH", "true"},
		{"latitude out of range", "MAP_DEFAULT_LAT", "120"},
		{"only slashes in path", "POINTS_COLLECTION_PATH", "///"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := requiredEnv()
			env[tt.key] = tt.val

			_, err := config.NewLoader("").WithLookup(envMap(env)).Load()

			assert.True(t, apperrors.IsConfiguration(err))
		})
	}
}

// TestLoad_YAMLFile tests that the file sits between defaults and environment.
func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
graph:
  table_name: from-file
  points_collection_path: points
  poll_interval: 750ms
cache:
  backend: sqlite
  sqlite_path: /tmp/graph.db
`), 0o600))

	cfg, err := config.NewLoader(path).
		WithLookup(envMap(map[string]string{"TABLE_NAME": "from-env"})).
		Load()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.Graph.TableName)
	assert.Equal(t, 750*time.Millisecond, cfg.Graph.PollInterval)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, []string{"defaults", path, "environment"}, cfg.LoadedFrom)
}

func TestToSegments(t *testing.T) {
	segments, err := config.ToSegments("a/b//c/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, segments)

	_, err = config.ToSegments("")
	assert.Error(t, err)
}

// TestConfigWatcher_Reload tests hot reloading of the config file.
func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	write := func(level string) {
		require.NoError(t, os.WriteFile(path, []byte("log_level: "+level+"\n"), 0o600))
	}
	write("info")

	loader := config.NewLoader(path).WithLookup(envMap(requiredEnv()))
	initial, err := loader.Load()
	require.NoError(t, err)

	watcher, err := config.NewConfigWatcher(loader, initial, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	var level atomic.Value
	watcher.OnChange(func(cfg *config.Config) {
		level.Store(cfg.LogLevel)
	})

	write("debug")

	require.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "debug", watcher.GetConfig().LogLevel)
}

func TestConfigWatcher_NoFile(t *testing.T) {
	loader := config.NewLoader("").WithLookup(envMap(requiredEnv()))
	initial, err := loader.Load()
	require.NoError(t, err)

	watcher, err := config.NewConfigWatcher(loader, initial, zap.NewNop())
	require.NoError(t, err)

	assert.Same(t, initial, watcher.GetConfig())
	watcher.Stop()
	watcher.Stop()
}
