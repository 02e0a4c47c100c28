package config

import (
	"errors"
	"strings"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr      = ":3000"
	DefaultRateLimitWindow = 15 * time.Minute
)

const (
	MailBackendLog  = "log"
	MailBackendSMTP = "smtp"
)

const (
	RateLimitBackendMemory   = "memory"
	RateLimitBackendRedis    = "redis"
	RateLimitBackendDatabase = "database"
)

type MySQLConfig struct {
	Dsn             string   `mapstructure:"dsn"`
	Replicas        []string `mapstructure:"replicas"`
	MaxIdleConns    int      `mapstructure:"maxIdleConns"`
	MaxOpenConns    int      `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int      `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int      `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

type MailConfig struct {
	Backend         string     `mapstructure:"backend"`
	From            string     `mapstructure:"from"`
	AlertRecipients []string   `mapstructure:"alertRecipients"`
	SMTP            SMTPConfig `mapstructure:"smtp"`
}

type GeolocationConfig struct {
	Provider string        `mapstructure:"provider"` // "ipapi" or empty for the offline fallback
	BaseURL  string        `mapstructure:"baseURL"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type RateLimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Backend  string        `mapstructure:"backend"`
	Login    RateLimitRule `mapstructure:"login"`
	Register RateLimitRule `mapstructure:"register"`
	API      RateLimitRule `mapstructure:"api"`
}

type RetentionConfig struct {
	Disabled bool   `mapstructure:"disabled"`
	Schedule string `mapstructure:"schedule"`
}

type Config struct {
	Debug        bool              `mapstructure:"debug"`
	SiteName     string            `mapstructure:"siteName"`
	ListenAddr   string            `mapstructure:"listenAddr"`
	HealthAddr   string            `mapstructure:"healthAddr"`
	JWTSecret    string            `mapstructure:"jwtSecret"`
	TokenExpiry  time.Duration     `mapstructure:"tokenExpiry"`
	AllowOrigins []string          `mapstructure:"allowOrigins"`
	MySQL        MySQLConfig       `mapstructure:"mysql"`
	Redis        RedisConfig       `mapstructure:"redis"`
	Mail         MailConfig        `mapstructure:"mail"`
	Geolocation  GeolocationConfig `mapstructure:"geolocation"`
	RateLimit    RateLimitConfig   `mapstructure:"rateLimit"`
	Retention    RetentionConfig   `mapstructure:"retention"`
}

func sanitizeRule(rule *RateLimitRule, limit int) {
	if rule.Limit <= 0 {
		rule.Limit = limit
	}
	if rule.Window <= 0 {
		rule.Window = DefaultRateLimitWindow
	}
}

func (c *Config) Sanitize() error {
	if c.JWTSecret == "" {
		return errors.New("jwtSecret is required")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.HealthAddr == "" {
		c.HealthAddr = params.HealthCheckServerAddr
	}
	if c.TokenExpiry <= 0 {
		c.TokenExpiry = params.AccessTokenExpiration
	}
	switch c.Mail.Backend {
	case "":
		c.Mail.Backend = MailBackendLog
	case MailBackendLog, MailBackendSMTP:
	default:
		return errors.New("unsupported mail backend " + c.Mail.Backend)
	}
	if c.SiteName == "" {
		c.SiteName = "Tuning Portal"
	}
	switch c.RateLimit.Backend {
	case "":
		c.RateLimit.Backend = RateLimitBackendMemory
	case RateLimitBackendMemory, RateLimitBackendRedis, RateLimitBackendDatabase:
	default:
		return errors.New("unsupported rate limit backend " + c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == RateLimitBackendRedis && c.Redis.URL == "" {
		return errors.New("redis rate limit backend requires redis.url")
	}
	sanitizeRule(&c.RateLimit.Login, 5)
	sanitizeRule(&c.RateLimit.Register, 3)
	sanitizeRule(&c.RateLimit.API, 300)
	if c.Geolocation.Provider != "" && c.Geolocation.BaseURL == "" {
		c.Geolocation.BaseURL = params.DefaultGeoAPIBaseURL
	}
	if c.Geolocation.Timeout <= 0 {
		c.Geolocation.Timeout = params.GeoLookupTimeout
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = params.DefaultRetentionSchedule
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
