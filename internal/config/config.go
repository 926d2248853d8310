package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Matching MatchingConfig `yaml:"matching"`
	Vision   VisionConfig   `yaml:"vision"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"api_key"`
	Timezone string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// MatchingConfig holds the identity-matching thresholds. Distances at or below
// LowThreshold are confident matches, distances in (LowThreshold, HighThreshold]
// are soft matches, anything above HighThreshold is unmatched. Captures whose
// frame dispersion exceeds VarianceCeiling are rejected before any comparison.
type MatchingConfig struct {
	LowThreshold      float64 `yaml:"low_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	VarianceCeiling   float64 `yaml:"variance_ceiling"`
	FallbackModelPath string  `yaml:"fallback_model_path"`
}

type VisionConfig struct {
	ModelsDir string `yaml:"models_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "Local"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Matching.LowThreshold == 0 {
		cfg.Matching.LowThreshold = 0.42
	}
	if cfg.Matching.HighThreshold == 0 {
		cfg.Matching.HighThreshold = 0.6
	}
	if cfg.Matching.VarianceCeiling == 0 {
		cfg.Matching.VarianceCeiling = 0.15
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLOCKD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CLOCKD_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("CLOCKD_TIMEZONE"); v != "" {
		cfg.Server.Timezone = v
	}
	if v := os.Getenv("CLOCKD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("CLOCKD_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("CLOCKD_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("CLOCKD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("CLOCKD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("CLOCKD_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("CLOCKD_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("CLOCKD_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("CLOCKD_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("CLOCKD_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("CLOCKD_MATCH_LOW_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.LowThreshold = f
		}
	}
	if v := os.Getenv("CLOCKD_MATCH_HIGH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.HighThreshold = f
		}
	}
	if v := os.Getenv("CLOCKD_MATCH_VARIANCE_CEILING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.VarianceCeiling = f
		}
	}
	if v := os.Getenv("CLOCKD_FALLBACK_MODEL"); v != "" {
		cfg.Matching.FallbackModelPath = v
	}
	if v := os.Getenv("CLOCKD_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
}
