package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a configuration
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks if the configuration meets the requirements for the given environment
func ValidateConfig(cfg *Config, env Environment) error {
	var errs ValidationErrors

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			errs = append(errs, ValidationError{"db_host", "is required for postgres"})
		}
		if cfg.DBName == "" {
			errs = append(errs, ValidationError{"db_name", "is required for postgres"})
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, ValidationError{"sqlite_path", "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"db_driver", fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}

	switch cfg.StorageBackend {
	case "local":
		if cfg.MediaRoot == "" {
			errs = append(errs, ValidationError{"media_root", "is required for local storage"})
		}
	case "s3":
		if cfg.S3BucketName == "" {
			errs = append(errs, ValidationError{"s3_bucket_name", "is required for s3 storage"})
		}
	default:
		errs = append(errs, ValidationError{"storage_backend", fmt.Sprintf("unsupported backend %q", cfg.StorageBackend)})
	}

	if cfg.PageSize <= 0 {
		errs = append(errs, ValidationError{"page_size", "must be positive"})
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"token_ttl", "must be positive"})
	}

	switch env {
	case Production:
		if cfg.JWTSecret == "" || cfg.JWTSecret == DefaultJWTSecret {
			errs = append(errs, ValidationError{"jwt_secret", "secret is required in production"})
		}
		if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
			errs = append(errs, ValidationError{"db_password", "secret is required in production"})
		}
	case CI:
		if cfg.JWTSecret == "" {
			errs = append(errs, ValidationError{"jwt_secret", "JWT_SECRET environment variable is required in CI environment"})
		}
	default:
		if cfg.JWTSecret == "" {
			errs = append(errs, ValidationError{"jwt_secret", "must not be empty"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
