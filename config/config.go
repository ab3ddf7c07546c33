// server/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --- Sub-structs mirroring the YAML layout ---

type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	CORSAllowedOrigins []string `mapstructure:"corsAllowedOrigins"`
	ExposeErrors       bool     `mapstructure:"exposeErrors"`
}

type MongoConfig struct {
	URI          string `mapstructure:"uri"`
	DBName       string `mapstructure:"dbName"`
	Transactions bool   `mapstructure:"transactions"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// Enabled reports whether enough settings are present to build an uploader.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// --- Root config ---

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Log    LogConfig    `mapstructure:"log"`
	S3     S3Config     `mapstructure:"s3"`
	Admin  AdminConfig  `mapstructure:"admin"`
}

// TokenTTL parses JWT.Expiration, falling back to 24h.
func (c Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.Expiration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":               "PORT",
	"server.corsAllowedOrigins": "CORS_ALLOWED_ORIGINS",
	"server.exposeErrors":       "EXPOSE_ERRORS",
	"mongo.uri":                 "MONGODB_URI",
	"mongo.dbName":              "MONGODB_DB",
	"mongo.transactions":        "MONGO_TRANSACTIONS",
	"jwt.secret":                "JWT_SECRET",
	"jwt.expiration":            "JWT_EXPIRATION",
	"log.level":                 "LOG_LEVEL",
	"log.json":                  "LOG_JSON",
	"s3.bucket":                 "S3_BUCKET",
	"s3.region":                 "S3_REGION",
	"s3.accessKeyID":            "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":        "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":       "S3_CLOUDFRONT_DOMAIN",
	"admin.name":                "ADMIN_NAME",
	"admin.email":               "ADMIN_EMAIL",
	"admin.password":            "ADMIN_PASSWORD",
}

// LoadConfig reads config.yaml from path (optional), a .env file next to it
// (optional), then applies environment variable overrides.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("mongo.dbName", "pest_tracker")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("admin.name", "Administrator")

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return config, err
		}
	}

	// A missing config.yaml is fine, env vars alone are enough.
	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}

	// Comma separated list when it comes from the environment.
	if len(config.Server.CORSAllowedOrigins) == 1 && strings.Contains(config.Server.CORSAllowedOrigins[0], ",") {
		config.Server.CORSAllowedOrigins = strings.Split(config.Server.CORSAllowedOrigins[0], ",")
	}

	return config, nil
}

// Validate fails fast when a setting the server cannot start without is missing.
// requireMongo is false when the server runs on the in-memory store.
func (c Config) Validate(requireMongo bool) error {
	var missing []string
	if requireMongo && c.Mongo.URI == "" {
		missing = append(missing, "MONGODB_URI")
	}
	if c.Server.Port == "" {
		missing = append(missing, "PORT")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
