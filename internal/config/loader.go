package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "chronotrack.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CHRONOTRACK_PORT")
	setString(&cfg.Server.CORSOrigin, "CHRONOTRACK_CORS_ORIGIN")

	setString(&cfg.Registry.DSN, "CHRONOTRACK_REGISTRY_URL")
	setInt32(&cfg.Registry.MaxConns, "CHRONOTRACK_REGISTRY_MAX_CONNS")
	setInt32(&cfg.Registry.MinConns, "CHRONOTRACK_REGISTRY_MIN_CONNS")
	setDuration(&cfg.Registry.MaxConnLifetime, "CHRONOTRACK_REGISTRY_MAX_CONN_LIFETIME")
	setDuration(&cfg.Registry.MaxConnIdleTime, "CHRONOTRACK_REGISTRY_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Registry.HealthCheck, "CHRONOTRACK_REGISTRY_HEALTH_CHECK")

	setString(&cfg.Demo.DSN, "CHRONOTRACK_DEMO_URL")
	setInt32(&cfg.Demo.MaxConns, "CHRONOTRACK_DEMO_MAX_CONNS")
	setInt32(&cfg.Demo.MinConns, "CHRONOTRACK_DEMO_MIN_CONNS")

	setString(&cfg.TenantAdmin.DSN, "CHRONOTRACK_ADMIN_URL")
	setInt32(&cfg.TenantAdmin.TenantMaxConns, "CHRONOTRACK_TENANT_MAX_CONNS")

	setInt(&cfg.Provision.AllocateRetries, "CHRONOTRACK_PROVISION_ALLOCATE_RETRIES")
	setInt(&cfg.Provision.CodeRetries, "CHRONOTRACK_PROVISION_CODE_RETRIES")
	setInt(&cfg.Provision.PrincipalWriteRetries, "CHRONOTRACK_PROVISION_PRINCIPAL_RETRIES")
	setDuration(&cfg.Provision.CreateTimeout, "CHRONOTRACK_PROVISION_CREATE_TIMEOUT")
	setDuration(&cfg.Provision.SchemaTimeout, "CHRONOTRACK_PROVISION_SCHEMA_TIMEOUT")
	setDuration(&cfg.Provision.BootstrapTimeout, "CHRONOTRACK_PROVISION_BOOTSTRAP_TIMEOUT")

	setString(&cfg.Auth.JWTSecret, "CHRONOTRACK_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "CHRONOTRACK_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "CHRONOTRACK_BCRYPT_COST")

	setString(&cfg.NATS.URL, "NATS_URL")

	setInt64(&cfg.Cache.L1MaxSizeMB, "CHRONOTRACK_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "CHRONOTRACK_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "CHRONOTRACK_CACHE_L2_TTL")
	setDuration(&cfg.Cache.IdentityTTL, "CHRONOTRACK_CACHE_IDENTITY_TTL")

	setString(&cfg.Logging.Level, "CHRONOTRACK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CHRONOTRACK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CHRONOTRACK_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "CHRONOTRACK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CHRONOTRACK_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "CHRONOTRACK_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CHRONOTRACK_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CHRONOTRACK_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CHRONOTRACK_RATE_MAX_IDLE_TIME")

	setBool(&cfg.Telemetry.Enabled, "CHRONOTRACK_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Registry.DSN == "" {
		return errors.New("registry.dsn is required")
	}
	if cfg.Demo.DSN == "" {
		return errors.New("demo.dsn is required")
	}
	if cfg.TenantAdmin.DSN == "" {
		return errors.New("tenant_admin.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Registry.MaxConns < 1 {
		return errors.New("registry.max_conns must be >= 1")
	}
	if cfg.Provision.AllocateRetries < 1 {
		return errors.New("provision.allocate_retries must be >= 1")
	}
	if cfg.Provision.CodeRetries < 1 {
		return errors.New("provision.code_retries must be >= 1")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
