package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	full := writeTempJSON(t, map[string]any{
		"endpoint_addr_http":              "www.example:8000",
		"endpoint_addr_grpc":              "www.example:9000",
		"database_dsn":                    "catalog-db",
		"secret_key":                      "my_secret_key",
		"dev_mode":                        true,
		"access_token_validity_duration":  "30m",
		"refresh_token_validity_duration": "48h",
		"password_hash_cost":              11,
		"redis_addr":                      "redis:6379",
		"photo_storage":                   "s3",
		"upload_dir":                      "/data",
		"max_photo_size":                  1024,
		"s3_root_user":                    "user",
		"s3_root_password":                "password",
		"s3_bucket":                       "bucket",
		"s3_region":                       "region",
		"s3_base_endpoint":                "base_endpoint",
		"admin_username":                  "root",
		"admin_password":                  "secret",
		"log_level":                       "warn",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-config", full}))

		assert.Equal(t, "www.example:8000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "catalog-db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.True(t, cfg.DevMode)
		assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 11, cfg.PasswordHashCost)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "s3", cfg.PhotoStorage)
		assert.Equal(t, "/data", cfg.UploadDir)
		assert.Equal(t, int64(1024), cfg.MaxPhotoSize)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "root", cfg.AdminUsername)
		assert.Equal(t, "secret", cfg.AdminPassword)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"secret_key": "only-this"})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-c", partial}))

		assert.Equal(t, "only-this", cfg.SecretKey)
		assert.Equal(t, ":8000", cfg.EndpointAddrHTTP)
		assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("no config flag, no changes", func(t *testing.T) {
		cfg := &Config{SecretKey: "key", EndpointAddrHTTP: "defaults:1234"}
		require.NoError(t, parseJson(cfg, []string{"-a", ":1"}))

		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJson(&Config{}, []string{"-c", bad})
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("missing file", func(t *testing.T) {
		err := parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		assert.ErrorContains(t, err, "read config")
	})
}
