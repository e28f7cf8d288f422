package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all configuration
type Config struct {
	MySQL              MySQLConfig
	Redis              RedisConfig
	Migrate            bool
	HTTPAddr           string
	Predictor          PredictorConfig
	HealthProbe        HealthProbeConfig
	Deploy             DeployConfig
	AutoRollbackWorker AutoRollbackWorkerConfig
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PredictorConfig holds inference backend configuration
type PredictorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// HealthProbeConfig holds health probe configuration
type HealthProbeConfig struct {
	TimeoutSec    int
	MaxLatencySec float64
	ProbeRequests int
	MaxErrors     int
}

// DeployConfig holds deployment orchestration configuration
type DeployConfig struct {
	ObserveIntervalSec int
	CanaryStages       []int
}

// AutoRollbackWorkerConfig holds automatic rollback worker configuration
type AutoRollbackWorkerConfig struct {
	Enabled        bool
	IntervalSec    int
	ErrorThreshold float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Migrate:  getEnv("MIGRATE", "0") == "1",
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Predictor: PredictorConfig{
			APIKey:  getEnv("PREDICTOR_API_KEY", ""),
			BaseURL: getEnv("PREDICTOR_BASE_URL", ""),
			Model:   getEnv("PREDICTOR_MODEL", "gpt-4o-mini"),
		},
		HealthProbe: HealthProbeConfig{
			TimeoutSec:    getEnvInt("HEALTH_PROBE_TIMEOUT_SEC", 5),
			MaxLatencySec: getEnvFloat("HEALTH_PROBE_MAX_LATENCY_SEC", 2.0),
			ProbeRequests: getEnvInt("HEALTH_PROBE_REQUESTS", 5),
			MaxErrors:     getEnvInt("HEALTH_PROBE_MAX_ERRORS", 1),
		},
		Deploy: DeployConfig{
			ObserveIntervalSec: getEnvInt("DEPLOY_OBSERVE_INTERVAL_SEC", 1),
			CanaryStages:       parseStages(getEnv("DEPLOY_CANARY_STAGES", "")),
		},
		AutoRollbackWorker: AutoRollbackWorkerConfig{
			Enabled:        getEnv("AUTO_ROLLBACK_WORKER_ENABLED", "0") == "1",
			IntervalSec:    getEnvInt("AUTO_ROLLBACK_WORKER_INTERVAL_SEC", 60),
			ErrorThreshold: getEnvFloat("AUTO_ROLLBACK_ERROR_THRESHOLD", 0.1),
		},
	}

	// Validate required fields
	if cfg.MySQL.DSN == "" {
		return nil, fmt.Errorf("MYSQL_DSN is required")
	}

	return cfg, nil
}

// parseStages parses a comma-separated percentage list like
// "10,50,100". Invalid or empty input falls back to the default
// canary stages.
func parseStages(value string) []int {
	defaults := []int{10, 50, 100}
	if value == "" {
		return defaults
	}

	var stages []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 100 {
			return defaults
		}
		stages = append(stages, n)
	}
	return stages
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Helper function: get value with priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueFloat := func(envKey, iniSection, iniKey string, defaultValue float64) float64 {
		if value := os.Getenv(envKey); value != "" {
			if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
				return floatValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Float64(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getValue("MYSQL_DSN", "mysql", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		Migrate:  getValueBool("MIGRATE", "app", "migrate", false),
		HTTPAddr: getValue("HTTP_ADDR", "http", "addr", ":8080"),
		Predictor: PredictorConfig{
			APIKey:  getValue("PREDICTOR_API_KEY", "predictor", "api_key", ""),
			BaseURL: getValue("PREDICTOR_BASE_URL", "predictor", "base_url", ""),
			Model:   getValue("PREDICTOR_MODEL", "predictor", "model", "gpt-4o-mini"),
		},
		HealthProbe: HealthProbeConfig{
			TimeoutSec:    getValueInt("HEALTH_PROBE_TIMEOUT_SEC", "health_probe", "timeout_sec", 5),
			MaxLatencySec: getValueFloat("HEALTH_PROBE_MAX_LATENCY_SEC", "health_probe", "max_latency_sec", 2.0),
			ProbeRequests: getValueInt("HEALTH_PROBE_REQUESTS", "health_probe", "requests", 5),
			MaxErrors:     getValueInt("HEALTH_PROBE_MAX_ERRORS", "health_probe", "max_errors", 1),
		},
		Deploy: DeployConfig{
			ObserveIntervalSec: getValueInt("DEPLOY_OBSERVE_INTERVAL_SEC", "deploy", "observe_interval_sec", 1),
			CanaryStages:       parseStages(getValue("DEPLOY_CANARY_STAGES", "deploy", "canary_stages", "")),
		},
		AutoRollbackWorker: AutoRollbackWorkerConfig{
			Enabled:        getValueBool("AUTO_ROLLBACK_WORKER_ENABLED", "auto_rollback", "enabled", false),
			IntervalSec:    getValueInt("AUTO_ROLLBACK_WORKER_INTERVAL_SEC", "auto_rollback", "interval_sec", 60),
			ErrorThreshold: getValueFloat("AUTO_ROLLBACK_ERROR_THRESHOLD", "auto_rollback", "error_threshold", 0.1),
		},
	}

	if cfg.MySQL.DSN == "" {
		return nil, fmt.Errorf("MYSQL_DSN is required")
	}

	return cfg, nil
}
