package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("PREVIEW_TICKET_SECRET", "ticket-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 20, cfg.API.PDFRateLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "http://localhost:9000", cfg.MinIO.PublicEndpoint)
	assert.Equal(t, "https://api.iconify.design", cfg.Icons.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Icons.LookupTimeout)
	assert.Equal(t, 8*1024, cfg.Preview.InlineLimit)
	assert.Equal(t, 7*24*time.Hour, cfg.Exports.Retention)
	assert.Empty(t, cfg.API.AllowedOrigins)
	assert.Equal(t, "host=localhost port=5432 user=magicyan password=magicyan dbname=magicyan sslmode=disable", cfg.Database.DSN())
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,,")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_ENDPOINT", "s3.example.com")
	t.Setenv("PREVIEW_HANDSHAKE_TIMEOUT", "15s")
	t.Setenv("EXPORT_RETENTION", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "https://s3.example.com", cfg.MinIO.PublicEndpoint)
	assert.Equal(t, 15*time.Second, cfg.Preview.HandshakeTimeout)
	assert.Equal(t, 48*time.Hour, cfg.Exports.Retention)
}

func TestLoadRequiresSecrets(t *testing.T) {
	cases := map[string]string{
		"MINIO_ACCESS_KEY_ID":     "minio access key id is required",
		"MINIO_SECRET_ACCESS_KEY": "minio secret access key is required",
		"PREVIEW_TICKET_SECRET":   "preview ticket secret is required",
	}
	for env, want := range cases {
		t.Run(env, func(t *testing.T) {
			setRequired(t)
			t.Setenv(env, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a,b", " c "}))
	assert.Empty(t, splitList(nil))
}
