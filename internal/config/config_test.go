package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"CONFIG_FILE", "APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL",
	"STORAGE_DRIVER", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET", "CLOUDINARY_FOLDER",
	"SUPABASE_URL", "SUPABASE_SERVICE_KEY", "SUPABASE_BUCKET",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"TIMELINE_STORE", "MONGO_URI", "MONGO_DATABASE", "RECONCILE_SCHEDULE",
	"ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_NAME",
}

// clearEnv unsets every key Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lawmatch")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StorageCloudinary, cfg.StorageDriver)
	assert.Equal(t, TimelinePostgres, cfg.TimelineStore)
	assert.Equal(t, "@every 5m", cfg.ReconcileSchedule)
	assert.False(t, cfg.IsDev())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: dev
  port: "8080"
database:
  url: postgres://file/lawmatch
storage:
  driver: minio
  minio:
    endpoint: localhost:9000
    bucket: case-docs
    use_ssl: true
timeline:
  store: mongo
  mongo_uri: mongodb://localhost:27017
reconcile:
  schedule: ""
`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("MINIO_BUCKET", "override")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://file/lawmatch", cfg.DatabaseURL)
	assert.Equal(t, StorageMinIO, cfg.StorageDriver)
	assert.Equal(t, "localhost:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "override", cfg.MinIO.Bucket)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, TimelineMongo, cfg.TimelineStore)
	assert.Empty(t, cfg.ReconcileSchedule)
}

func TestLoad_EmptyScheduleEnvDisables(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lawmatch")
	t.Setenv("RECONCILE_SCHEDULE", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.ReconcileSchedule)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown storage driver": {"STORAGE_DRIVER": "ftp"},
		"unknown timeline store": {"TIMELINE_STORE": "redis"},
		"mongo without uri":      {"TIMELINE_STORE": "mongo"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost/lawmatch")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [unterminated"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoad_Admin(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lawmatch")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Admin.Email)

	t.Setenv("ADMIN_EMAIL", " Ops@LawMatch.io ")
	t.Setenv("ADMIN_PASSWORD", "short")
	_, err = Load("")
	assert.ErrorContains(t, err, "ADMIN_PASSWORD")

	t.Setenv("ADMIN_PASSWORD", "correct-horse")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "ops@lawmatch.io", cfg.Admin.Email)
	assert.Equal(t, "correct-horse", cfg.Admin.Password)
	assert.Equal(t, "Administrator", cfg.Admin.Name)
}
