package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/flagx"
)

var serverFlags = []string{
	"-a", "-grpc", "-d", "-s", "-dev", "-t", "-r", "-cost", "-redis", "-storage",
	"-uploads", "-max-photo", "-u", "-p", "-b", "-g", "-e",
	"-admin-user", "-admin-password", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string              HTTP bind address (e.g. ":8000")
//	-grpc string           gRPC bind address (e.g. ":50051")
//	-d string              PostgreSQL DSN
//	-s string              token signing secret
//	-dev                   development mode, allows the built-in secret
//	-t int                 access token validity, minutes
//	-r int                 refresh token validity, minutes
//	-cost int              bcrypt cost
//	-redis string          Redis address for the token denylist
//	-storage string        photo storage: local or s3
//	-uploads string        directory for local photo storage
//	-max-photo int         maximum photo size, bytes
//	-u, -p string          S3 root user / password
//	-b, -g, -e string      S3 bucket / region / base endpoint
//	-admin-user string     admin account created at startup
//	-admin-password string password of that account
//	-log-level string      debug, info, warn or error
//
// Only the flags above are picked out of args, so other components may share
// the command line. Durations are whole minutes.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.BoolVar(&config.DevMode, "dev", config.DevMode, "development mode")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.IntVar(&config.PasswordHashCost, "cost", config.PasswordHashCost, "bcrypt cost")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.PhotoStorage, "storage", config.PhotoStorage, "photo storage (local|s3)")
	fs.StringVar(&config.UploadDir, "uploads", config.UploadDir, "local upload directory")
	fs.Int64Var(&config.MaxPhotoSize, "max-photo", config.MaxPhotoSize, "max photo size in bytes")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.AdminUsername, "admin-user", config.AdminUsername, "bootstrap admin username")
	fs.StringVar(&config.AdminPassword, "admin-password", config.AdminPassword, "bootstrap admin password")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return err
	}

	// Untouched duration flags must not round sub-minute values from JSON.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
