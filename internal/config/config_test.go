package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("ACCESS_POLICY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "catalog.db", cfg.DatabaseURL)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 5, cfg.DBConnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.DBConnectBackoff)
	assert.Empty(t, cfg.AccessPolicy)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("PUBLIC_BASE_URL", "https://files.example.com/")
	t.Setenv("ACCESS_POLICY", "share_link=true, view_by_id=1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, "https://files.example.com", cfg.PublicBaseURL)
	assert.Equal(t, map[string]bool{"share_link": true, "view_by_id": true}, cfg.AccessPolicy)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"MAX_UPLOAD_BYTES":    "lots",
		"DB_CONNECT_BACKOFF":  "soon",
		"DB_CONNECT_ATTEMPTS": "0",
		"ACCESS_POLICY":       "upload",
	}

	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_ProdRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
