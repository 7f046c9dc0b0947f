package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Runtime
	AppEnv        string
	Debug         bool
	Port          string
	CORSOrigins   string
	PublicBaseURL string

	// Operational database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeout  time.Duration

	// Analytics warehouse (hot/cold fact tables)
	AnalyticsDriver      string
	AnalyticsDSN         string
	AnalyticsHotTable    string
	AnalyticsColdTable   string
	AnalyticsExportLimit int

	// JWT
	JWTSecret           string
	JWTAccessExpiry     time.Duration
	JWTRefreshExpiry    time.Duration
	PasswordResetExpiry time.Duration

	// Blob storage
	BlobBackend        string
	BlobContainer      string
	BlobLocalDir       string
	FTPHost            string
	FTPPort            string
	FTPUser            string
	FTPPassword        string
	BlobTimeout        time.Duration
	DownloadURLTTL     time.Duration
	DownloadSigningKey string
	MaxUploadBytes     int64
	MaxParallelUploads int

	// Login throttling
	LoginMaxAttempts int
	LoginLockout     time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Organizations
	TenantsConfigPath string

	LogRetentionDays int
	SentryDSN        string
}

func Load() *Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Debug:         parseBool(getEnv("DEBUG", "false")),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "incident_ops"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimeout:  parseDuration(getEnv("DB_TIMEOUT", "10s"), 10*time.Second),

		AnalyticsDriver:      getEnv("ANALYTICS_DB_DRIVER", "postgres"),
		AnalyticsDSN:         getEnv("ANALYTICS_DB_DSN", ""),
		AnalyticsHotTable:    getEnv("ANALYTICS_HOT_TABLE", "hot.fact_reports"),
		AnalyticsColdTable:   getEnv("ANALYTICS_COLD_TABLE", "cold.fact_reports"),
		AnalyticsExportLimit: parseInt(getEnv("ANALYTICS_EXPORT_LIMIT", "10000"), 10000),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:     parseDuration(getEnv("JWT_ACCESS_EXPIRY", "30m"), 30*time.Minute),
		JWTRefreshExpiry:    parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),
		PasswordResetExpiry: parseDuration(getEnv("PASSWORD_RESET_EXPIRY", "30m"), 30*time.Minute),

		BlobBackend:        getEnv("BLOB_BACKEND", "local"),
		BlobContainer:      getEnv("BLOB_CONTAINER", "report-attachments"),
		BlobLocalDir:       getEnv("BLOB_LOCAL_DIR", "./data/blobs"),
		FTPHost:            getEnv("FTP_HOST", "localhost"),
		FTPPort:            getEnv("FTP_PORT", "21"),
		FTPUser:            getEnv("FTP_USER", "anonymous"),
		FTPPassword:        getEnv("FTP_PASSWORD", ""),
		BlobTimeout:        parseDuration(getEnv("BLOB_TIMEOUT", "30s"), 30*time.Second),
		DownloadURLTTL:     parseDuration(getEnv("DOWNLOAD_URL_TTL", "1h"), time.Hour),
		DownloadSigningKey: getEnv("DOWNLOAD_SIGNING_KEY", ""),
		MaxUploadBytes:     int64(parseInt(getEnv("MAX_UPLOAD_BYTES", "52428800"), 52428800)),
		MaxParallelUploads: parseInt(getEnv("MAX_PARALLEL_UPLOADS", "4"), 4),

		LoginMaxAttempts: parseInt(getEnv("LOGIN_MAX_ATTEMPTS", "5"), 5),
		LoginLockout:     parseDuration(getEnv("LOGIN_LOCKOUT", "15m"), 15*time.Minute),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          parseInt(getEnv("REDIS_DB", "0"), 0),

		TenantsConfigPath: getEnv("TENANTS_CONFIG_PATH", ""),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
	}

	if cfg.DownloadSigningKey == "" {
		cfg.DownloadSigningKey = cfg.JWTSecret
	}
	return cfg
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
