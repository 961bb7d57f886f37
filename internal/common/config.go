package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Queue    QueueConfig
}

type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	UploadMaxBytes int64
	CORSOrigins    []string
}

type OCRConfig struct {
	TesseractBin     string
	PdftoppmBin      string
	Lang             string
	DPI              int
	PSM              int
	OEM              int
	MaxPages         int
	HeicConverter    string
	TessdataDir      string
	ArtifactCacheDir string
}

type QueueConfig struct {
	Workers    int
	JobTimeout time.Duration
}

// LoadDotEnv reads .env from the working directory when present.
func LoadDotEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:persian-ocr.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			UploadMaxBytes: getEnvAsInt64("UPLOAD_MAX_BYTES", 50<<20),
			CORSOrigins:    getEnvAsList("CORS_ORIGINS"),
		},
		OCR: OCRConfig{
			TesseractBin:     getEnv("TESSERACT_BIN", "tesseract"),
			PdftoppmBin:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Lang:             getEnv("TESSERACT_LANG", "fas+eng"),
			DPI:              getEnvAsInt("OCR_DPI", 300),
			PSM:              getEnvAsInt("OCR_PSM", 6),
			OEM:              getEnvAsInt("OCR_OEM", 3),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 0),
			HeicConverter:    getEnv("HEIC_CONVERTER", ""),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("OCR_WORKERS", 4),
			JobTimeout: getEnvAsDuration("OCR_JOB_TIMEOUT", 5*time.Minute),
		},
	}
}

// Extractor converts the environment settings into an ocr.Config.
func (c OCRConfig) Extractor() ocr.Config {
	cfg := ocr.DefaultConfig()
	cfg.Tesseract = c.TesseractBin
	cfg.Pdftoppm = c.PdftoppmBin
	cfg.TesseractLang = c.Lang
	cfg.DPI = c.DPI
	cfg.PSM = c.PSM
	cfg.OEM = c.OEM
	cfg.MaxPages = c.MaxPages
	cfg.HeicConverter = c.HeicConverter
	cfg.TessdataDir = c.TessdataDir
	cfg.ArtifactCacheDir = c.ArtifactCacheDir
	return cfg
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	return NewValidator().
		Field("DB_URL", c.Database.DSN, Required).
		Field("HTTP_ADDR", c.Server.HTTPAddr, Required).
		Field("UPLOAD_MAX_BYTES", c.Server.UploadMaxBytes, Positive).
		Field("TESSERACT_LANG", c.OCR.Lang, Required).
		Field("OCR_DPI", c.OCR.DPI, Positive).
		Field("HEIC_CONVERTER", c.OCR.HeicConverter, OneOf("heif-convert", "magick", "sips")).
		Field("OCR_WORKERS", c.Queue.Workers, Positive).
		Field("OCR_JOB_TIMEOUT", c.Queue.JobTimeout, Positive).
		Err()
}
