package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// HDFSConfig holds settings for the HDFS namenode connection.
type HDFSConfig struct {
	// Namenode addresses, comma-separated host:port pairs.
	Namenode string
	// User is the HDFS principal used for all operations.
	User string
	// DialTimeoutSec bounds namenode/datanode connection attempts so an
	// unreachable cluster fails fast instead of hanging the request.
	DialTimeoutSec int
}

// S3Config holds object storage settings for the S3-compatible backend (MinIO, AWS S3).
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects and parameterizes the distributed store backend.
type StorageConfig struct {
	// Backend is either "hdfs" (default) or "s3".
	Backend string
	// UploadsRoot is the directory in the distributed store under which all
	// record files are placed.
	UploadsRoot string
	HDFS        HDFSConfig
	S3          S3Config
}

// CacheConfig holds settings for the local fallback cache.
type CacheConfig struct {
	// Dir is the local durable directory holding files that could not reach
	// the distributed store.
	Dir string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Defaults target a local/dev
// deployment (local postgres, local namenode, ./uploads cache).
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	Storage  StorageConfig
	Cache    CacheConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", ""),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", "postgres"),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", "wastemap"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "hdfs"),
			UploadsRoot: getEnv("UPLOADS_ROOT", "/waste_files"),
			HDFS: HDFSConfig{
				Namenode:       getEnv("HDFS_NAMENODE", "localhost:9000"),
				User:           getEnv("HDFS_USER", "root"),
				DialTimeoutSec: getEnvInt("HDFS_DIAL_TIMEOUT_SEC", 5),
			},
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Bucket:    getEnv("S3_BUCKET", "waste-files"),
				UseSSL:    getEnvBool("S3_USE_SSL", false),
			},
		},
		Cache: CacheConfig{
			Dir: getEnv("UPLOAD_CACHE_DIR", "./uploads"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
