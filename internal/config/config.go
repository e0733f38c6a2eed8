// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Prerender     PrerenderConfig     `yaml:"prerender" mapstructure:"prerender"`
	Publish       PublishConfig       `yaml:"publish" mapstructure:"publish"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Worker        WorkerConfig        `yaml:"worker" mapstructure:"worker"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	S3 S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config S3 兼容对象存储配置（Supabase Storage S3 网关 / Cloudflare R2 / MinIO）
type S3Config struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	Region          string `yaml:"region" mapstructure:"region"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL          bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	// PublicURL 桶的公开访问基址（CDN 域名）
	PublicURL string `yaml:"public_url" mapstructure:"public_url"`
}

// PrerenderConfig 预渲染生成配置
type PrerenderConfig struct {
	// MediaBaseURL 相对媒体路径的前缀基址，空值表示保持相对路径
	MediaBaseURL string `yaml:"media_base_url" mapstructure:"media_base_url"`
	// Roles 语义角色到候选 slug 列表的映射，按顺序匹配
	Roles map[string][]string `yaml:"roles" mapstructure:"roles"`
	// HTMLSectionSlugs posts.html 渲染所使用栏目的候选 slug
	HTMLSectionSlugs []string `yaml:"html_section_slugs" mapstructure:"html_section_slugs"`
	// MinifyHTML 是否压缩 posts.html 产物
	MinifyHTML bool `yaml:"minify_html" mapstructure:"minify_html"`
	// MinTopN 精简版 bootstrap 保留的 liveProjects 数量
	MinTopN int `yaml:"min_top_n" mapstructure:"min_top_n"`
	// MinDescriptionLimit 精简版描述截断长度
	MinDescriptionLimit int `yaml:"min_description_limit" mapstructure:"min_description_limit"`
}

// PublishConfig 发布编排配置
type PublishConfig struct {
	// LockTTL 发布互斥锁的过期时间。锁只在崩溃场景下靠 TTL 过期，
	// TTL 过短会让慢发布与新发布重叠，过长会在崩溃后阻塞该站点的发布
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
	// LockFailOpen 协调器不可用时是否放行发布（无互斥保护）。
	// 默认 false：协调器故障时发布失败而不是并发写入 CDN 状态
	LockFailOpen bool `yaml:"lock_fail_open" mapstructure:"lock_fail_open"`
	// UploadConcurrency 单次发布内并行上传的最大产物数
	UploadConcurrency int `yaml:"upload_concurrency" mapstructure:"upload_concurrency"`
	// LatestVersionTTL 去规范化版本键的过期时间
	LatestVersionTTL time.Duration `yaml:"latest_version_ttl" mapstructure:"latest_version_ttl"`
	// ManifestMaxAge manifest.json 的缓存秒数
	ManifestMaxAge int `yaml:"manifest_max_age" mapstructure:"manifest_max_age"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen       int64              `yaml:"max_len" mapstructure:"max_len"`
	BlockTimeout time.Duration      `yaml:"block_timeout" mapstructure:"block_timeout"`
	RetryLimit   int                `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff RetryBackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// RetryBackoffConfig 重试退避配置
type RetryBackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// WorkerConfig 发布执行器配置
type WorkerConfig struct {
	Cron CronConfig `yaml:"cron" mapstructure:"cron"`
}

// CronConfig 定时重发布配置
type CronConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
	SiteIDs  []int  `yaml:"site_ids" mapstructure:"site_ids"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Secret     string        `yaml:"secret" mapstructure:"secret"`
	Issuer     string        `yaml:"issuer" mapstructure:"issuer"`
	Expiration time.Duration `yaml:"expiration" mapstructure:"expiration"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}
