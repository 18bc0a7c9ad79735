package config

import (
	"os"
	"strconv"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// parseEnv overlays secrets and deployment-specific values from CATALOG_*
// environment variables. Only non-empty variables are applied.
func parseEnv(config *Config) {
	vars := map[string]*string{
		"CATALOG_HTTP_ADDR":        &config.EndpointAddrHTTP,
		"CATALOG_GRPC_ADDR":        &config.EndpointAddrGRPC,
		"CATALOG_DATABASE_DSN":     &config.DatabaseDSN,
		"CATALOG_SECRET_KEY":       &config.SecretKey,
		"CATALOG_REDIS_ADDR":       &config.RedisAddr,
		"CATALOG_S3_ROOT_USER":     &config.S3RootUser,
		"CATALOG_S3_ROOT_PASSWORD": &config.S3RootPassword,
		"CATALOG_ADMIN_USERNAME":   &config.AdminUsername,
		"CATALOG_ADMIN_PASSWORD":   &config.AdminPassword,
	}

	for name, dst := range vars {
		if v, ok := lookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookupEnv("CATALOG_DEV_MODE"); ok && v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			config.DevMode = dev
		}
	}
}
