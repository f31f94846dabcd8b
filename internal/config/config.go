package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	AppName   string

	Log       LogConfig
	FluentBit FluentBitConfig
	Cache     CacheConfig
	Animation AnimationConfig
	RateLimit RateLimitConfig
}

// LogConfig 控制台日志
type LogConfig struct {
	Level string
	JSON  bool
	Color bool
}

// FluentBitConfig 远程日志
type FluentBitConfig struct {
	Enabled bool
	Host    string
	Port    int
	Level   string
}

// CacheConfig 序列缓存
type CacheConfig struct {
	TTL           time.Duration
	MaxEntries    int
	EvictFraction float64
}

// AnimationConfig 动画默认值
type AnimationConfig struct {
	FPS        float64
	StartFrame int
}

// RateLimitConfig 每个 IP 的请求限制
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load 加载配置。.env 文件可选，不存在时只读取环境变量。
func Load(envPath ...string) *Config {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath...)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		slog.Debug("no .env file loaded", "path", envPath, "error", err)
	}

	cfg := &Config{
		Port:      getEnvAsString("PORT", ":8080"),
		DBPath:    getEnvAsString("DB_PATH", "./data/sequence.db"),
		JWTSecret: getEnvAsString("JWT_SECRET", "your-secret-key-change-in-production"),
		AppName:   getEnvAsString("APP_NAME", "bim4d-backend"),
		Log: LogConfig{
			Level: getEnvAsString("LOG_LEVEL", "info"),
			JSON:  getEnvAsBool("LOG_JSON", false),
			Color: getEnvAsBool("LOG_COLOR", true),
		},
		Cache: CacheConfig{
			TTL:           getEnvAsDuration("CACHE_TTL", 300*time.Second),
			MaxEntries:    getEnvAsInt("CACHE_MAX_ENTRIES", 100),
			EvictFraction: getEnvAsFloat("CACHE_EVICT_FRACTION", 0.25),
		},
		Animation: AnimationConfig{
			FPS:        getEnvAsFloat("ANIMATION_FPS", 24),
			StartFrame: getEnvAsInt("ANIMATION_START_FRAME", 1),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			slog.Warn("FLUENTBIT_ENABLED is true but FLUENTBIT_HOST is not set, disabling fluent bit")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	return cfg
}

func getEnvAsString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 解析失败时记录警告并返回默认值
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid int env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid bool env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("invalid float env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration 接受 Go 时长 ("90s") 或纯秒数 ("300")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}
