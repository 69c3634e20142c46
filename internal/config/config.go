package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Icons    IconsConfig    `mapstructure:"icons"`
	Preview  PreviewConfig  `mapstructure:"preview"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Exports  ExportsConfig  `mapstructure:"exports"`
}

// AppConfig 写入 .magicyan 文件 metadata.appVersion。
type AppConfig struct {
	Version string `mapstructure:"version"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	PublicBaseURL  string   `mapstructure:"public_base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// PDFRateLimit 是每个客户端 IP 每分钟允许的同步 PDF 渲染次数。
	PDFRateLimit int   `mapstructure:"pdf_rate_limit"`
	MaxUploadMB  int64 `mapstructure:"max_upload_mb"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// Addr 返回 host:port。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// ClamdConfig 为空地址时跳过上传文件的病毒扫描。
type ClamdConfig struct {
	Address string `mapstructure:"address"`
}

// IconsConfig 控制外部图标服务。
type IconsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	LookupTimeout     time.Duration `mapstructure:"lookup_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// PreviewConfig 控制跨窗口预览通道。
type PreviewConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	InlineLimit      int           `mapstructure:"inline_limit"`
	TicketSecret     string        `mapstructure:"ticket_secret"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// PDFConfig 控制无头浏览器。
type PDFConfig struct {
	BrowserBin    string        `mapstructure:"browser_bin"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
}

// ExportsConfig 控制异步导出产物的保留时间。
type ExportsConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.AllowedOrigins = splitList(cfg.API.AllowedOrigins)
	if cfg.MinIO.PublicEndpoint == "" {
		scheme := "http"
		if cfg.MinIO.UseSSL {
			scheme = "https"
		}
		cfg.MinIO.PublicEndpoint = scheme + "://" + cfg.MinIO.Endpoint
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.public_base_url", "")
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("api.pdf_rate_limit", 20)
	v.SetDefault("api.max_upload_mb", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "magicyan")
	v.SetDefault("database.user", "magicyan")
	v.SetDefault("database.password", "magicyan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "magicyan-exports")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("clamd.address", "")
	v.SetDefault("icons.base_url", "https://api.iconify.design")
	v.SetDefault("icons.lookup_timeout", 3*time.Second)
	v.SetDefault("icons.requests_per_second", 10.0)
	v.SetDefault("icons.cache_ttl", 7*24*time.Hour)
	v.SetDefault("preview.handshake_timeout", 10*time.Second)
	v.SetDefault("preview.inline_limit", 8*1024)
	v.SetDefault("preview.ticket_secret", "")
	v.SetDefault("preview.cache_ttl", 24*time.Hour)
	v.SetDefault("pdf.browser_bin", "")
	v.SetDefault("pdf.render_timeout", 30*time.Second)
	v.SetDefault("exports.retention", 7*24*time.Hour)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"app.version":                "APP_VERSION",
		"api.port":                   "API_PORT",
		"api.public_base_url":        "API_PUBLIC_BASE_URL",
		"api.allowed_origins":        "API_ALLOWED_ORIGINS",
		"api.pdf_rate_limit":         "API_PDF_RATE_LIMIT",
		"api.max_upload_mb":          "API_MAX_UPLOAD_MB",
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.name":              "POSTGRES_DB",
		"database.user":              "POSTGRES_USER",
		"database.password":          "POSTGRES_PASSWORD",
		"database.sslmode":           "DATABASE_SSLMODE",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"redis.password":             "REDIS_PASSWORD",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.public_endpoint":      "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":        "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":    "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"minio.bucket":               "MINIO_BUCKET",
		"minio.region":               "MINIO_REGION",
		"minio.bucket_lookup":        "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":   "MINIO_AUTO_CREATE_BUCKET",
		"clamd.address":              "CLAMD_ADDRESS",
		"icons.base_url":             "ICONS_BASE_URL",
		"icons.lookup_timeout":       "ICONS_LOOKUP_TIMEOUT",
		"icons.requests_per_second":  "ICONS_REQUESTS_PER_SECOND",
		"icons.cache_ttl":            "ICONS_CACHE_TTL",
		"preview.handshake_timeout":  "PREVIEW_HANDSHAKE_TIMEOUT",
		"preview.inline_limit":       "PREVIEW_INLINE_LIMIT",
		"preview.ticket_secret":      "PREVIEW_TICKET_SECRET",
		"preview.cache_ttl":          "PREVIEW_CACHE_TTL",
		"pdf.browser_bin":            "ROD_BROWSER_BIN",
		"pdf.render_timeout":         "PDF_RENDER_TIMEOUT",
		"exports.retention":          "EXPORT_RETENTION",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// splitList 兼容环境变量里以逗号分隔的列表。
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.PDFRateLimit < 0 {
		return errors.New("api pdf rate limit must not be negative")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Preview.TicketSecret == "" {
		return errors.New("preview ticket secret is required")
	}
	if cfg.Preview.InlineLimit < 0 {
		return errors.New("preview inline limit must not be negative")
	}
	if cfg.Exports.Retention <= 0 {
		return errors.New("exports retention must be positive")
	}
	if cfg.Icons.LookupTimeout <= 0 {
		return errors.New("icons lookup timeout must be positive")
	}
	return nil
}
