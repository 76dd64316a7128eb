package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DatabaseConfig holds PostgreSQL settings for the optional postgres
// metadata backend.
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

// MinIOConfig holds object storage settings for the optional S3-compatible
// blob backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StoreConfig controls the locked JSON collection store.
type StoreConfig struct {
	// DataDir is where the per-collection JSON files live.
	DataDir string `validate:"required"`
	// LockTimeout bounds how long a writer waits for the file lock before
	// failing with ErrLockTimeout.
	LockTimeout time.Duration `validate:"gt=0"`
	// BackupRetentionDays is how long daily backups are kept.
	BackupRetentionDays int `validate:"gte=1"`
}

// UploadConfig holds the document upload policy knobs.
type UploadConfig struct {
	// MaxSizeBytes caps a single uploaded file.
	MaxSizeBytes int64 `validate:"gt=0"`
	// ExpiryWarningDays is the expiring_soon window.
	ExpiryWarningDays int `validate:"gte=1"`
	// RatePerMinute limits upload requests per client.
	RatePerMinute int `validate:"gte=1"`
}

// SweepConfig controls the cleanup sweeper.
type SweepConfig struct {
	// Schedule is a cron expression; empty disables the scheduled sweep.
	Schedule string
	// OrphanGrace protects in-flight uploads from the orphan-file sweep.
	OrphanGrace time.Duration `validate:"gt=0"`
	// TempMaxAge is how old a staging file may get before it is swept.
	TempMaxAge time.Duration `validate:"gt=0"`
}

// AppConfig is the centralized configuration struct for the service.
// It is populated from environment variables and passed explicitly into each
// component's constructor; nothing reads ambient globals.
type AppConfig struct {
	AppHost   string
	Port      string `validate:"required"`
	LogFormat string `validate:"oneof=auto json text"`

	// DocsBackend selects the metadata repository: jsonfile, badger or postgres.
	DocsBackend string `validate:"oneof=jsonfile badger postgres"`
	// BlobBackend selects where file bytes live: local or minio.
	BlobBackend string `validate:"oneof=local minio"`

	// StorageRoot is the base directory of the local blob tree.
	StorageRoot string `validate:"required"`
	// BadgerDir is the embedded store directory (badger backend only).
	BadgerDir string

	// BulkDownloadMax caps the number of documents per bulk ZIP request.
	BulkDownloadMax int `validate:"gte=1"`

	Store    StoreConfig
	Upload   UploadConfig
	Sweep    SweepConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the .env file.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		AppHost:   getEnv("APP_HOST", "localhost:8080"),
		Port:      getEnv("PORT", "8080"),
		LogFormat: getEnv("LOG_FORMAT", "auto"),

		DocsBackend: getEnv("DOCS_BACKEND", "jsonfile"),
		BlobBackend: getEnv("BLOB_BACKEND", "local"),

		StorageRoot: getEnv("STORAGE_ROOT", "uploads/documents"),
		BadgerDir:   getEnv("BADGER_DIR", "data/badger"),

		BulkDownloadMax: getEnvInt("BULK_DOWNLOAD_MAX", 50),

		Store: StoreConfig{
			DataDir:             getEnv("DATA_DIR", "data"),
			LockTimeout:         getEnvDuration("STORE_LOCK_TIMEOUT", 5*time.Second),
			BackupRetentionDays: getEnvInt("STORE_BACKUP_RETENTION_DAYS", 30),
		},
		Upload: UploadConfig{
			MaxSizeBytes:      getEnvInt64("UPLOAD_MAX_SIZE_BYTES", 15<<20),
			ExpiryWarningDays: getEnvInt("EXPIRY_WARNING_DAYS", 30),
			RatePerMinute:     getEnvInt("UPLOAD_RATE_PER_MINUTE", 10),
		},
		Sweep: SweepConfig{
			Schedule:    getEnv("SWEEP_SCHEDULE", "0 3 * * *"),
			OrphanGrace: getEnvDuration("SWEEP_ORPHAN_GRACE", time.Hour),
			TempMaxAge:  getEnvDuration("SWEEP_TEMP_MAX_AGE", time.Hour),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
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

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
