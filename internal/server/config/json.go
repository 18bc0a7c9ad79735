package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/knifecatalog/internal/flagx"
	"github.com/dmitrijs2005/knifecatalog/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// they can be written as "30m" or as integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	DevMode                      bool           `json:"dev_mode"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHashCost             int            `json:"password_hash_cost"`
	RedisAddr                    string         `json:"redis_addr"`
	PhotoStorage                 string         `json:"photo_storage"`
	UploadDir                    string         `json:"upload_dir"`
	MaxPhotoSize                 int64          `json:"max_photo_size"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	AdminUsername                string         `json:"admin_username"`
	AdminPassword                string         `json:"admin_password"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config in args.
// Keys missing from the file keep their current value. No flag means no file.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.DevMode = c.DevMode
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.PasswordHashCost = c.PasswordHashCost
	config.RedisAddr = c.RedisAddr
	config.PhotoStorage = c.PhotoStorage
	config.UploadDir = c.UploadDir
	config.MaxPhotoSize = c.MaxPhotoSize
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.AdminUsername = c.AdminUsername
	config.AdminPassword = c.AdminPassword
	config.LogLevel = c.LogLevel
	return nil
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		SecretKey:                    c.SecretKey,
		DevMode:                      c.DevMode,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		PasswordHashCost:             c.PasswordHashCost,
		RedisAddr:                    c.RedisAddr,
		PhotoStorage:                 c.PhotoStorage,
		UploadDir:                    c.UploadDir,
		MaxPhotoSize:                 c.MaxPhotoSize,
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3Bucket:                     c.S3Bucket,
		S3Region:                     c.S3Region,
		S3BaseEndpoint:               c.S3BaseEndpoint,
		AdminUsername:                c.AdminUsername,
		AdminPassword:                c.AdminPassword,
		LogLevel:                     c.LogLevel,
	}
}
