package config

import (
	"os"
	"strings"
)

// Config holds all runtime settings. It is built once in main and passed
// into each component at construction time; nothing reads the environment
// after startup.
type Config struct {
	ListenAddr     string
	DBPath         string
	StorageBackend string // "fs" or "s3"
	StoragePath    string
	S3Bucket       string
	AWSRegion      string
	BaseURL        string

	UploadFolder      string
	MaxFileSize       int64
	AllowedExtensions []string
	AllowedMIMETypes  []string

	CORSOrigins []string
	Version     string
}

func Load() *Config {
	return &Config{
		ListenAddr:     getEnv("DG_LISTEN_ADDR", ":8080"),
		DBPath:         getEnv("DG_DB_PATH", "/data/db/doorguardian.db"),
		StorageBackend: getEnv("DG_STORAGE_BACKEND", "fs"),
		StoragePath:    getEnv("DG_STORAGE_PATH", "/data/blobs"),
		S3Bucket:       getEnv("DG_S3_BUCKET", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		BaseURL:        getEnv("DG_BASE_URL", "http://localhost:8080"),

		UploadFolder:      getEnv("DG_UPLOAD_FOLDER", "access_images"),
		MaxFileSize:       getEnvInt64("DG_MAX_FILE_SIZE", 10<<20),
		AllowedExtensions: getEnvList("DG_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "webp"}),
		AllowedMIMETypes:  getEnvList("DG_ALLOWED_FILE_TYPES", []string{"image/jpeg", "image/png", "image/gif", "image/webp"}),

		CORSOrigins: getEnvList("DG_CORS_ORIGINS", []string{"*"}),
		Version:     getEnv("DG_VERSION", "1.0.0"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var result int64
	for _, c := range v {
		if c < '0' || c > '9' {
			return defaultValue
		}
		result = result*10 + int64(c-'0')
	}
	return result
}

// getEnvList parses a comma-separated environment value, trimming blanks.
func getEnvList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
