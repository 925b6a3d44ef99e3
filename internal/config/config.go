// Package config loads settings from the environment (and an optional .env
// file), grounded on the teacher's internal/config package: godotenv.Load
// plus getEnv/getEnvInt helpers, generalized from the teacher's
// project-generation settings to this pipeline's stage tunables.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config bundles every environment-derived tunable the pipeline, HTTP
// server, and job store need.
type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // empty disables auth (development mode)
	CorsAllowedOrigins string // comma-separated; empty allows "*"

	// Job store
	DatabaseURL  string // Postgres DSN; empty selects the file-based store
	JobStorePath string

	// Job queue; empty RedisURL runs every job inline instead of queuing it
	RedisURL string

	// AI agent (best-effort across schema normalization, keyword
	// extraction, and phrase segmentation — never a hard gate)
	OpenAIKey   string
	OpenAIModel string

	// Forced alignment
	ForcedAlignerURL string

	// Image search substitution
	ImageSearchAPIKey     string
	MinImageWidth         int
	MinImageHeight        int
	MaxSubstituteKeywords int

	// Object storage
	S3Bucket       string
	S3Region       string
	S3AccessKeyID  string
	S3SecretKey    string
	S3Endpoint     string // optional, for S3-compatible stores
	PublicBaseURL  string
	LocalOutputDir string

	// Concurrency
	FetchConcurrency  int
	RenderConcurrency int
	MaxConcurrentJobs int

	// Timeouts
	FetchTimeoutSeconds int

	// Render output
	OutputWidth  int
	OutputHeight int
	OutputFPS    int
	FontFile     string

	// Cleanup
	TempDirRoot       string
	TempDirStaleHours int
}

// Load reads configuration from the environment, first loading a .env file
// if one is present (ignored if absent — expected in production).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		JobStorePath: getEnv("JOB_STORE_PATH", "data/job_store.json"),

		RedisURL: getEnv("REDIS_URL", ""),

		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ForcedAlignerURL: getEnv("FORCED_ALIGNER_URL", ""),

		ImageSearchAPIKey:     getEnv("IMAGE_SEARCH_API_KEY", ""),
		MinImageWidth:         getEnvInt("MIN_IMAGE_WIDTH", 720),
		MinImageHeight:        getEnvInt("MIN_IMAGE_HEIGHT", 1280),
		MaxSubstituteKeywords: getEnvInt("MAX_SUBSTITUTE_KEYWORDS", 5),

		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", ""),
		S3AccessKeyID:  getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:    getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
		LocalOutputDir: getEnv("LOCAL_OUTPUT_DIR", "data/output"),

		FetchConcurrency:  getEnvInt("FETCH_CONCURRENCY", 10),
		RenderConcurrency: getEnvInt("RENDER_CONCURRENCY", 1),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 5),

		FetchTimeoutSeconds: getEnvInt("FETCH_TIMEOUT_SECONDS", 300),

		OutputWidth:  getEnvInt("OUTPUT_WIDTH", 1080),
		OutputHeight: getEnvInt("OUTPUT_HEIGHT", 1920),
		OutputFPS:    getEnvInt("OUTPUT_FPS", 30),
		FontFile:     getEnv("FONT_FILE", "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"),

		TempDirRoot:       getEnv("TEMP_DIR_ROOT", "data/tmp"),
		TempDirStaleHours: getEnvInt("TEMP_DIR_STALE_HOURS", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
