package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App            AppConfig       `mapstructure:"app"`
	Server         ServerConfig    `mapstructure:"server"`
	LLM            LLMConfig       `mapstructure:"llm"`
	Vision         VisionConfig    `mapstructure:"vision"`
	Cache          CacheConfig     `mapstructure:"cache"`
	Redis          RedisConfig     `mapstructure:"redis"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Image          ImageConfig     `mapstructure:"image"`
	Storage        StorageConfig   `mapstructure:"storage"`
	Archive        ArchiveConfig   `mapstructure:"archive"`
	I18n           I18nConfig      `mapstructure:"i18n"`
	DedupWindow    time.Duration   `mapstructure:"dedup_window"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	LogLevel       string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// LLMConfig 對話模型設定
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // openai | gemini
	APIKey            string        `mapstructure:"api_key"`
	APIKeyFile        string        `mapstructure:"api_key_file"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	StreamTimeout     time.Duration `mapstructure:"stream_timeout"`
	FilterModel       string        `mapstructure:"filter_model"`
	FilterMaxTokens   int           `mapstructure:"filter_max_tokens"`
	FilterTemperature float64       `mapstructure:"filter_temperature"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model"`
}

// VisionConfig 影像標籤服務設定
type VisionConfig struct {
	Credentials     string        `mapstructure:"credentials"` // 檔案路徑、JSON 或 base64 JSON
	CredentialsFile string        `mapstructure:"credentials_file"`
	Endpoint        string        `mapstructure:"endpoint"`
	MinScore        float64       `mapstructure:"min_score"`
	MediumScore     float64       `mapstructure:"medium_score"`
	MaxResults      int64         `mapstructure:"max_results"`
	Concurrency     int           `mapstructure:"concurrency"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxFiles     int   `mapstructure:"max_files"`
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// StorageConfig 偏好與收藏儲存設定
type StorageConfig struct {
	Backend    string        `mapstructure:"backend"` // memory | redis
	QuotaBytes int64         `mapstructure:"quota_bytes"`
	WarnRatio  float64       `mapstructure:"warn_ratio"`
	Retention  time.Duration `mapstructure:"retention"`
}

// ArchiveConfig 上傳圖片封存（S3）設定
type ArchiveConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
	Endpoint string `mapstructure:"endpoint"`
}

// I18nConfig 語系設定
type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.LLM.APIKey == "" && config.LLM.APIKeyFile != "" {
		key, err := os.ReadFile(config.LLM.APIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read api key file: %w", err)
		}
		config.LLM.APIKey = strings.TrimSpace(string(key))
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"llm_provider:", config.LLM.Provider,
		"llm_api_key:", maskAPIKey(config.LLM.APIKey),
		"llm_model:", config.LLM.Model,
	)

	return &config, nil
}

// bindEnv 綁定不帶前綴的環境變數
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("llm.provider", "LLM_PROVIDER")
	_ = v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.api_key_file", "OPENAI_API_KEY_FILE")
	_ = v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("llm.model", "OPENAI_MODEL")
	_ = v.BindEnv("llm.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("llm.gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("vision.credentials", "GOOGLE_APPLICATION_CREDENTIALS", "VISION_CREDENTIALS")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("i18n.default_language", "DEFAULT_LANGUAGE")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("archive.bucket", "S3_BUCKET")
	_ = v.BindEnv("archive.region", "AWS_REGION")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "fridge-to-feast")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// 對話模型設定
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key_file", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.stream_timeout", "120s")
	v.SetDefault("llm.filter_model", "gpt-4o")
	v.SetDefault("llm.filter_max_tokens", 200)
	v.SetDefault("llm.filter_temperature", 0.1)
	v.SetDefault("llm.gemini_model", "gemini-1.5-flash")

	// 影像標籤設定
	v.SetDefault("vision.credentials_file", "./vision-service-account.json")
	v.SetDefault("vision.endpoint", "")
	v.SetDefault("vision.min_score", 0.6)
	v.SetDefault("vision.medium_score", 0.5)
	v.SetDefault("vision.max_results", 20)
	v.SetDefault("vision.concurrency", 3)
	v.SetDefault("vision.timeout", "20s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_files", 5)
	v.SetDefault("image.max_file_bytes", 25*1024*1024)
	v.SetDefault("image.max_body_bytes", 130*1024*1024)

	// 儲存設定
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.quota_bytes", 25*1024*1024)
	v.SetDefault("storage.warn_ratio", 0.8)
	v.SetDefault("storage.retention", "720h")

	// 封存設定
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "uploads/")
	v.SetDefault("archive.endpoint", "")

	v.SetDefault("i18n.default_language", "English")
	v.SetDefault("dedup_window", "1s")
	v.SetDefault("request_timeout", "150s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported llm provider %q", config.LLM.Provider)
	}
	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("invalid llm timeout")
	}

	if config.Vision.MinScore < 0 || config.Vision.MinScore > 1 {
		return fmt.Errorf("vision min score must be within [0,1]")
	}
	if config.Vision.Concurrency <= 0 {
		return fmt.Errorf("invalid vision concurrency")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Image.MaxFiles <= 0 || config.Image.MaxFileBytes <= 0 {
		return fmt.Errorf("invalid image limits")
	}

	if config.Storage.QuotaBytes <= 0 {
		return fmt.Errorf("invalid storage quota")
	}

	if config.Archive.Enabled && config.Archive.Bucket == "" {
		return fmt.Errorf("archive bucket is required when archive is enabled")
	}

	return nil
}
