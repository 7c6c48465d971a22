package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" validate:"required,numeric"`
		Env  string `yaml:"env" validate:"oneof=local dev prod"`
		// AllowedOrigins для CORS
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Feed struct {
		PageSize int           `yaml:"page_size" validate:"min=1,max=100"`
		CacheTTL time.Duration `yaml:"cache_ttl" validate:"min=0"`
	} `yaml:"feed"`

	Storage struct {
		Driver   string `yaml:"driver" validate:"oneof=memory postgres sqlite"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"storage"`

	Relationships struct {
		// store - связи берутся из того же хранилища, что и контент
		Driver string `yaml:"driver" validate:"oneof=store neo4j"`
		Neo4j  struct {
			URI      string `yaml:"uri"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"neo4j"`
	} `yaml:"relationships"`

	Cache struct {
		Driver string `yaml:"driver" validate:"oneof=none memory redis"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Auth struct {
		Secret   string        `yaml:"secret" validate:"required,min=16"`
		Issuer   string        `yaml:"issuer"`
		TokenTTL time.Duration `yaml:"token_ttl" validate:"min=0"`
	} `yaml:"auth"`

	Telemetry struct {
		// Endpoint OTLP gRPC; пусто - трассировка выключена
		Endpoint    string `yaml:"endpoint"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"telemetry"`
}

// Default возвращает конфигурацию для локального запуска
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.Env = "local"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Feed.PageSize = 12
	cfg.Feed.CacheTTL = 30 * time.Second
	cfg.Storage.Driver = "memory"
	cfg.Storage.SQLite.Path = "feed.db"
	cfg.Relationships.Driver = "store"
	cfg.Cache.Driver = "memory"
	cfg.Cache.Redis.Addr = "localhost:6379"
	cfg.Auth.Secret = "local-development-secret"
	cfg.Auth.Issuer = "eng.com"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Telemetry.ServiceName = "feed-service"
	return cfg
}

// Load читает YAML поверх значений по умолчанию, затем переменные ENGCOM_*.
// Отсутствующий файл не ошибка: остаются значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Driver == "postgres" && cfg.Storage.Postgres.DSN == "" {
		return nil, errors.New("invalid config: storage.postgres.dsn is required")
	}
	if cfg.Relationships.Driver == "neo4j" && cfg.Relationships.Neo4j.URI == "" {
		return nil, errors.New("invalid config: relationships.neo4j.uri is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ENGCOM_PORT":                 &cfg.Server.Port,
		"ENGCOM_ENV":                  &cfg.Server.Env,
		"ENGCOM_STORAGE":              &cfg.Storage.Driver,
		"ENGCOM_POSTGRES_DSN":         &cfg.Storage.Postgres.DSN,
		"ENGCOM_SQLITE_PATH":          &cfg.Storage.SQLite.Path,
		"ENGCOM_RELATIONSHIPS":        &cfg.Relationships.Driver,
		"ENGCOM_NEO4J_URI":            &cfg.Relationships.Neo4j.URI,
		"ENGCOM_NEO4J_USERNAME":       &cfg.Relationships.Neo4j.Username,
		"ENGCOM_NEO4J_PASSWORD":       &cfg.Relationships.Neo4j.Password,
		"ENGCOM_CACHE":                &cfg.Cache.Driver,
		"ENGCOM_REDIS_ADDR":           &cfg.Cache.Redis.Addr,
		"ENGCOM_REDIS_PASSWORD":       &cfg.Cache.Redis.Password,
		"ENGCOM_JWT_SECRET":           &cfg.Auth.Secret,
		"OTEL_EXPORTER_OTLP_ENDPOINT": &cfg.Telemetry.Endpoint,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("ENGCOM_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ENGCOM_PAGE_SIZE: %w", err)
		}
		cfg.Feed.PageSize = n
	}
	if v, ok := os.LookupEnv("ENGCOM_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ENGCOM_CACHE_TTL: %w", err)
		}
		cfg.Feed.CacheTTL = d
	}
	return nil
}
