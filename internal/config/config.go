package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MaxUploadMB int `yaml:"maxUploadMB"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`  // debug | info | warn | error
		Format string `yaml:"format"` // json | text
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"` // sqlite file

		MaxOpenConns    int           `yaml:"maxOpenConns"`
		MaxIdleConns    int           `yaml:"maxIdleConns"`
		ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	} `yaml:"database"`

	Engine struct {
		Provider     string        `yaml:"provider"` // http | openai
		URL          string        `yaml:"url"`
		APIKey       string        `yaml:"apiKey"`
		Model        string        `yaml:"model"`
		Timeout      time.Duration `yaml:"timeout"`
		Retries      int           `yaml:"retries"`
		RetryWait    time.Duration `yaml:"retryWait"`
		RetryMaxWait time.Duration `yaml:"retryMaxWait"`
	} `yaml:"engine"`

	Auth struct {
		// APIKeys maps owner id -> key
		APIKeys   map[string]string `yaml:"apiKeys"`
		JWTSecret string            `yaml:"jwtSecret"`
		JWTIssuer string            `yaml:"jwtIssuer"`
	} `yaml:"auth"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		// Timeout caps one dataset upload; archiving is skipped past it.
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"minio"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`
		RedisAddr         string  `yaml:"redisAddr"`
		RedisPassword     string  `yaml:"redisPassword"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
}

// Load baca file config.yaml, isi default, lalu override secret dari env
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config bytes and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envs := []struct {
		name string
		dst  *string
	}{
		{"DB_PASSWORD", &c.Database.Password},
		{"ENGINE_URL", &c.Engine.URL},
		{"ENGINE_API_KEY", &c.Engine.APIKey},
		{"AUTH_JWT_SECRET", &c.Auth.JWTSecret},
		{"MINIO_SECRET_KEY", &c.Minio.SecretKey},
		{"REDIS_PASSWORD", &c.RateLimit.RedisPassword},
	}
	for _, e := range envs {
		if v := os.Getenv(e.name); v != "" {
			*e.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "insight-bridge.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Engine.Provider == "" {
		c.Engine.Provider = "http"
	}
	if c.Engine.Timeout <= 0 {
		c.Engine.Timeout = 30 * time.Second
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "insight-datasets"
	}
	if c.Minio.Timeout <= 0 {
		c.Minio.Timeout = 5 * time.Second
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RequestsPerSecond) + 1
	}
}

// Validate checks the fields main needs to wire the service.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver %q not supported (mysql, postgres, sqlite, memory)", c.Database.Driver)
	}
	switch c.Engine.Provider {
	case "http":
		if c.Engine.URL == "" {
			return fmt.Errorf("engine.url is required for provider http")
		}
		if _, err := url.ParseRequestURI(c.Engine.URL); err != nil {
			return fmt.Errorf("engine.url: %w", err)
		}
	case "openai":
		if c.Engine.APIKey == "" {
			return fmt.Errorf("engine.apiKey is required for provider openai")
		}
	default:
		return fmt.Errorf("engine.provider %q not supported (http, openai)", c.Engine.Provider)
	}
	if c.Engine.Retries < 0 {
		return fmt.Errorf("engine.retries must be >= 0")
	}
	if len(c.Auth.APIKeys) == 0 && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: configure apiKeys or jwtSecret")
	}
	for owner, key := range c.Auth.APIKeys {
		if strings.TrimSpace(owner) == "" || strings.TrimSpace(key) == "" {
			return fmt.Errorf("auth.apiKeys: empty owner or key")
		}
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

func (c *Config) MinioEnabled() bool { return c.Minio.Endpoint != "" }
