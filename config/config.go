package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable holding an optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "foodgram-dev-secret"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  string `koanf:"server_port"`
	ServerHost  string `koanf:"server_host"`
	CORSOrigins string `koanf:"cors_origins"`

	// Database configuration
	DBDriver      string `koanf:"db_driver"`
	DBHost        string `koanf:"db_host"`
	DBPort        string `koanf:"db_port"`
	DBUser        string `koanf:"db_user"`
	DBPassword    string `koanf:"db_password"`
	DBName        string `koanf:"db_name"`
	DBSSLMode     string `koanf:"db_ssl_mode"`
	SQLitePath    string `koanf:"sqlite_path"`
	AutoMigrate   bool   `koanf:"auto_migrate"`
	MigrationsDir string `koanf:"migrations_dir"`

	// Redis configuration
	RedisURL      string `koanf:"redis_url"`
	RedisHost     string `koanf:"redis_host"`
	RedisPort     string `koanf:"redis_port"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// JWT configuration
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// Recipe image storage
	StorageBackend string `koanf:"storage_backend"`
	MediaRoot      string `koanf:"media_root"`
	MediaURL       string `koanf:"media_url"`
	S3BucketName   string `koanf:"s3_bucket_name"`
	AWSRegion      string `koanf:"aws_region"`

	// API behaviour
	PageSize          int    `koanf:"page_size"`
	RecipeCreateLimit int    `koanf:"recipe_create_limit"`
	PDFFontPath       string `koanf:"pdf_font_path"`

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

func defaultConfig() Config {
	return Config{
		ServerPort:        "8080",
		ServerHost:        "0.0.0.0",
		CORSOrigins:       "http://localhost:3000",
		DBDriver:          "postgres",
		DBHost:            "localhost",
		DBPort:            "5432",
		DBUser:            "postgres",
		DBPassword:        "postgres",
		DBName:            "foodgram",
		DBSSLMode:         "disable",
		SQLitePath:        "foodgram.db",
		AutoMigrate:       true,
		MigrationsDir:     "migrations",
		RedisDB:           0,
		JWTSecret:         DefaultJWTSecret,
		TokenTTL:          24 * time.Hour,
		StorageBackend:    "local",
		MediaRoot:         "media",
		MediaURL:          "/media/",
		AWSRegion:         "us-east-1",
		PageSize:          6,
		RecipeCreateLimit: 30,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// environment variables and finally Docker secrets.
func LoadConfig() (*Config, error) {
	envName := GetEnvironment()
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// CI passes secrets as plain environment variables
	if envName != CI {
		applySecrets(cfg)
	}

	if err := ValidateConfig(cfg, envName); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps DB_HOST style variables to koanf keys and drops
// everything that is not a known configuration key.
func envTransform(key string) string {
	key = strings.ToLower(key)
	if _, ok := knownKeys[key]; ok {
		return key
	}
	return ""
}

var knownKeys = func() map[string]struct{} {
	keys := make(map[string]struct{})
	k := koanf.New(".")
	_ = k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	for _, key := range k.Keys() {
		keys[key] = struct{}{}
	}
	return keys
}()

// applySecrets overrides sensitive values with Docker secrets when present
func applySecrets(cfg *Config) {
	if v := readSecret("db_password"); v != "" {
		cfg.DBPassword = v
	}
	if v := readSecret("db_user"); v != "" {
		cfg.DBUser = v
	}
	if v := readSecret("jwt_secret"); v != "" {
		cfg.JWTSecret = v
	}
	if v := readSecret("redis_password"); v != "" {
		cfg.RedisPassword = v
	}
	if v := readSecret("redis_url"); v != "" {
		cfg.RedisURL = v
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// AllowedOrigins splits the comma separated CORS origin list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
