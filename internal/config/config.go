package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type DatabaseConfig struct {
	// Driver is "postgres" or "mysql".
	Driver string
	URL    string
	// RDS IAM settings, used by the mysql driver when URL is empty.
	Endpoint string
	Port     int
	User     string
	Region   string
	Name     string
}

// UsesIAM reports whether connections authenticate with short lived RDS
// tokens instead of a password in the URL.
func (d DatabaseConfig) UsesIAM() bool {
	return d.URL == "" && d.Endpoint != "" && d.User != ""
}

type BucketConfig struct {
	Name            string
	Region          string
	Endpoint        string
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
	// SignedURLTTL > 0 makes the API hand out presigned links.
	SignedURLTTL time.Duration
}

func (b BucketConfig) Enabled() bool { return b.Name != "" }

type CompositeConfig struct {
	Quality   int
	Format    string
	Padding   int
	QRScale   int
	MaxPixels int
}

type QueueConfig struct {
	Concurrency int
	Delay       time.Duration
}

type Config struct {
	Port            string
	LogEnv          string
	LogLevel        string
	UploadsDir      string
	JWTSecret       string
	CORSOrigins     string
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxUploadSize   int
	ShutdownTimeout time.Duration

	Database  DatabaseConfig
	Bucket    BucketConfig
	Composite CompositeConfig
	Queue     QueueConfig
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		LogEnv:          getEnv("LOG_ENV", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		UploadsDir:      getEnv("UPLOADS_DIR", "uploads"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		MaxUploadSize:   getEnvInt("MAX_UPLOAD_SIZE", 20<<20),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Database
	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.Endpoint = os.Getenv("RDS_ENDPOINT")
	cfg.Database.Port = getEnvInt("RDS_PORT", 3306)
	cfg.Database.User = os.Getenv("RDS_IAM_USER")
	cfg.Database.Region = getEnv("RDS_REGION", "us-east-1")
	cfg.Database.Name = os.Getenv("DATABASE_NAME")

	// Bucket
	cfg.Bucket.Name = os.Getenv("BUCKET_NAME")
	cfg.Bucket.Region = getEnv("BUCKET_REGION", "us-east-1")
	cfg.Bucket.Endpoint = os.Getenv("BUCKET_ENDPOINT")
	cfg.Bucket.PublicURL = os.Getenv("BUCKET_PUBLIC_URL")
	cfg.Bucket.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Bucket.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	cfg.Bucket.SignedURLTTL = getEnvDuration("SIGNED_URL_TTL", 0)

	// Compositing
	cfg.Composite.Quality = getEnvInt("COMPOSITE_QUALITY", 75)
	cfg.Composite.Format = getEnv("COMPOSITE_FORMAT", "jpeg")
	cfg.Composite.Padding = getEnvInt("COMPOSITE_PADDING", 30)
	cfg.Composite.QRScale = getEnvInt("QR_SCALE", 10)
	cfg.Composite.MaxPixels = getEnvInt("COMPOSITE_MAX_PIXELS", 50_000_000)

	// Queue
	cfg.Queue.Concurrency = getEnvInt("QUEUE_CONCURRENCY", 1)
	cfg.Queue.Delay = getEnvDuration("QUEUE_DELAY", time.Second)

	return cfg
}

// Validate reports every problem at once so a bad deploy shows all of them.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case "mysql":
		if c.Database.URL == "" && !c.Database.UsesIAM() {
			errs = append(errs, errors.New("set DATABASE_URL or RDS_ENDPOINT and RDS_IAM_USER"))
		}
		if c.Database.UsesIAM() && c.Database.Name == "" {
			errs = append(errs, errors.New("DATABASE_NAME is required with RDS IAM auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.Database.Driver))
	}
	if c.Composite.Quality < 1 || c.Composite.Quality > 100 {
		errs = append(errs, fmt.Errorf("COMPOSITE_QUALITY must be between 1 and 100, got %d", c.Composite.Quality))
	}
	switch strings.ToLower(c.Composite.Format) {
	case "jpeg", "jpg", "png":
	default:
		errs = append(errs, fmt.Errorf("COMPOSITE_FORMAT %q is not supported", c.Composite.Format))
	}
	if c.Composite.MaxPixels < 1 {
		errs = append(errs, errors.New("COMPOSITE_MAX_PIXELS must be positive"))
	}
	if c.Queue.Concurrency < 1 {
		errs = append(errs, errors.New("QUEUE_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt falls back on unset or unparsable values. Zero and negatives are
// kept because padding and delays use them to switch features off.
func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("1500ms") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
