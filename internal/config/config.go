package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendLocal    = "local"
	BackendPGVector = "pgvector"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port         int               `yaml:"port"`
		ReadTimeout  time.Duration     `yaml:"readTimeout"`
		WriteTimeout time.Duration     `yaml:"writeTimeout"`
		IdleTimeout  time.Duration     `yaml:"idleTimeout"`
		APIKeys      map[string]string `yaml:"apiKeys"`      // client name -> key; empty disables auth on /api
		CORSOrigins  []string          `yaml:"corsOrigins"`
		RateLimit    int               `yaml:"rateLimit"`    // requests per minute per client, 0 disables
		SessionTTL   time.Duration     `yaml:"sessionTTL"`
	} `yaml:"server"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups int    `yaml:"maxBackups"`
		MaxAgeDays int    `yaml:"maxAgeDays"`
	} `yaml:"log"`

	YouTube struct {
		APIKey         string `yaml:"apiKey"`
		MaxComments    int    `yaml:"maxComments"`
		IncludeReplies bool   `yaml:"includeReplies"`
		Order          string `yaml:"order"`
	} `yaml:"youtube"`

	OpenAI struct {
		APIKey         string `yaml:"apiKey"`
		BaseURL        string `yaml:"baseURL"`
		ChatModel      string `yaml:"chatModel"`
		EmbeddingModel string `yaml:"embeddingModel"`
		EmbedBatchSize int    `yaml:"embedBatchSize"`
		EmbedWorkers   int    `yaml:"embedWorkers"`
	} `yaml:"openai"`

	Index struct {
		Backend  string `yaml:"backend"`
		Dir      string `yaml:"dir"`
		DefaultK int    `yaml:"defaultK"`
		MaxK     int    `yaml:"maxK"`
	} `yaml:"index"`

	Analysis struct {
		Summarize     bool `yaml:"summarize"`
		SummarySample int  `yaml:"summarySample"`
		TopComments   int  `yaml:"topComments"`
	} `yaml:"analysis"`

	// Postgres is the pgvector database used by the pgvector index backend.
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"postgres"`

	// Database holds analysis history; an empty driver keeps it in memory.
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load baca file config.yaml. File yang tidak ada bukan error, default dipakai.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// secrets dari environment menimpa isi file
func (c *Config) applyEnv() error {
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Database.Password, "DATABASE_PASSWORD")
	setString(&c.Postgres.Password, "POSTGRES_PASSWORD")
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	// analisa video besar bisa lama
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 2 * time.Hour
	}
	if c.YouTube.MaxComments == 0 {
		c.YouTube.MaxComments = 500
	}
	if c.YouTube.Order == "" {
		c.YouTube.Order = "relevance"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = BackendLocal
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "comment_index"
	}
	if c.Index.DefaultK == 0 {
		c.Index.DefaultK = 10
	}
	if c.Index.MaxK == 0 {
		c.Index.MaxK = 50
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case DriverMySQL:
			c.Database.Port = 3306
		case DriverPostgres:
			c.Database.Port = 5432
		}
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "comment-snapshots"
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai api key is required (OPENAI_API_KEY)"))
	}
	if c.YouTube.APIKey == "" {
		errs = append(errs, errors.New("youtube api key is required (YOUTUBE_API_KEY)"))
	}
	if c.YouTube.Order != "relevance" && c.YouTube.Order != "time" {
		errs = append(errs, fmt.Errorf("youtube order must be relevance or time, got %q", c.YouTube.Order))
	}
	switch c.Index.Backend {
	case BackendLocal:
	case BackendPGVector:
		if c.Postgres.Host == "" {
			errs = append(errs, errors.New("index backend pgvector needs postgres.host"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown index backend %q", c.Index.Backend))
	}
	if c.Index.DefaultK < 1 || c.Index.MaxK < 1 || c.Index.DefaultK > c.Index.MaxK {
		errs = append(errs, fmt.Errorf("index k bounds invalid: defaultK=%d maxK=%d", c.Index.DefaultK, c.Index.MaxK))
	}
	switch c.Database.Driver {
	case "", DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.Driver != "" && c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required when a driver is set"))
	}
	if c.Minio.Enabled && c.Minio.Endpoint == "" {
		errs = append(errs, errors.New("minio.endpoint is required when minio is enabled"))
	}
	return errors.Join(errs...)
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

// PostgresDSN is the history database URL for lib/pq.
func (c *Config) PostgresDSN() string {
	return pgURL(c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, "disable")
}

// VectorDSN is the pgvector database URL for pgx.
func (c *Config) VectorDSN() string {
	return pgURL(c.Postgres.User, c.Postgres.Password, c.Postgres.Host, c.Postgres.Port, c.Postgres.Name, c.Postgres.SSLMode)
}

func pgURL(user, password, host string, port int, name, sslMode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + strings.TrimPrefix(name, "/"),
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
