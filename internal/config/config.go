package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	// Sessions
	JWTSecret   string
	AuthJWKSURL string // Optional external identity provider; empty disables it
	// LLM Configuration
	KimiAPIKey      string
	KimiBaseURL     string
	QwenAPIKey      string
	QwenBaseURL     string
	DefaultProvider string
	DefaultModel    string
	// Image generation
	DashScopeAPIKey  string
	DashScopeBaseURL string
	ImageModel       string
	// Logging
	LogDir      string
	LogMaxFiles int
	// Export archive (MinIO / S3 compatible), disabled when endpoint is empty
	ExportArchive ExportArchiveConfig
	// Debug flags
	Debug bool // Enables DEBUG features like verbose logs and chat debug events
}

// ExportArchiveConfig points at the bucket that keeps generated workbooks
type ExportArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether the archive is configured
func (c ExportArchiveConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: tablePrefix,
		// Sessions
		JWTSecret:   getEnv("JWT_SECRET", ""),
		AuthJWKSURL: getEnv("AUTH_JWKS_URL", ""),
		// LLM Configuration
		KimiAPIKey:      getEnv("KIMI_API_KEY", ""),
		KimiBaseURL:     getEnv("KIMI_BASE_URL", "https://api.moonshot.cn/v1"),
		QwenAPIKey:      getEnv("QWEN_API_KEY", ""),
		QwenBaseURL:     getEnv("QWEN_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "kimi"),
		DefaultModel:    getEnv("DEFAULT_MODEL", "kimi-k2-0905-preview"),
		// Image generation shares the Qwen key unless a dedicated one is set
		DashScopeAPIKey:  getEnv("DASHSCOPE_API_KEY", getEnv("QWEN_API_KEY", "")),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com"),
		ImageModel:       getEnv("IMAGE_MODEL", "wanx-v1"),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
		ExportArchive: ExportArchiveConfig{
			Endpoint:  getEnv("EXPORT_ARCHIVE_ENDPOINT", ""),
			AccessKey: getEnv("EXPORT_ARCHIVE_ACCESS_KEY", ""),
			SecretKey: getEnv("EXPORT_ARCHIVE_SECRET_KEY", ""),
			Bucket:    getEnv("EXPORT_ARCHIVE_BUCKET", ""),
			Region:    getEnv("EXPORT_ARCHIVE_REGION", "us-east-1"),
			UseSSL:    getEnv("EXPORT_ARCHIVE_USE_SSL", "false") == "true",
		},
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// IsProduction reports whether cookies must be marked Secure
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}

// CORSOriginList splits the comma separated CORS_ORIGINS value
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
