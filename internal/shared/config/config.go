package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	JWTSecret       string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	TranscriptionProvider string
	TranscribeLanguage    string
	GroqAPIKey            string
	GroqBaseURL           string
	GroqModel             string
	MaxUploadBytes        int64
	PollInterval          time.Duration
	MaxPolls              int
	FFmpegPath            string
	RunTimeout            time.Duration

	InferenceProvider string
	BedrockModelID    string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	MaxTokens         int
	Temperature       float64
	IdentifyClient    bool

	QuestionStore string
	SQLitePath    string
	DatabaseURL   string

	SQSQueueURL string
}

const defaultMaxUploadBytes = 100 * 1024 * 1024

// Load reads configuration from an optional YAML file and environment variables.
// Environment variables win over the file.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	file := fileConfig{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			log.Printf("config file %s ignored: %v", path, err)
		} else {
			file = loaded
		}
	}

	env := normalizeEnv(getEnv("ENV", or(file.Env, "dev")))
	dbURL := getEnv("DATABASE_URL", file.Questions.DatabaseURL)

	cfg := Config{
		Port:            getEnv("PORT", or(file.Server.Port, "8080")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", or(strings.Join(file.Server.CORSAllowOrigins, ","), "http://localhost:5173"))),
		Env:             env,
		JWTSecret:       getEnv("JWT_SECRET", file.Server.JWTSecret),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", or(file.Storage.Type, "local"))),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", or(file.Storage.LocalDir, "./data")),
		AWSRegion:       getEnv("AWS_REGION", file.AWS.Region),
		S3Bucket:        getEnv("S3_BUCKET", file.Storage.S3Bucket),
		S3Prefix:        getEnv("S3_PREFIX", file.Storage.S3Prefix),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", file.Storage.SSEKMSKeyID),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", file.Storage.Minio.Endpoint),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", file.Storage.Minio.AccessKey),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", file.Storage.Minio.SecretKey),
		MinioBucket:     getEnv("MINIO_BUCKET", file.Storage.Minio.Bucket),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", file.Storage.Minio.UseSSL),

		TranscriptionProvider: normalizeTranscriptionProvider(getEnv("TRANSCRIPTION_PROVIDER", or(file.Transcription.Provider, "aws"))),
		TranscribeLanguage:    getEnv("TRANSCRIBE_LANGUAGE", or(file.Transcription.Language, "en-US")),
		GroqAPIKey:            getEnv("GROQ_API_KEY", file.Transcription.GroqAPIKey),
		GroqBaseURL:           getEnv("GROQ_BASE_URL", or(file.Transcription.GroqBaseURL, "https://api.groq.com/openai/v1")),
		GroqModel:             getEnv("GROQ_MODEL", or(file.Transcription.GroqModel, "whisper-large-v3-turbo")),
		MaxUploadBytes:        getEnvInt64("MAX_UPLOAD_BYTES", orInt64(file.Transcription.MaxUploadBytes, defaultMaxUploadBytes)),
		PollInterval:          getEnvDuration("TRANSCRIBE_POLL_INTERVAL", orDuration(file.Transcription.PollInterval, 5*time.Second)),
		MaxPolls:              int(getEnvInt64("TRANSCRIBE_MAX_POLLS", orInt64(int64(file.Transcription.MaxPolls), 360))),
		FFmpegPath:            getEnv("FFMPEG_PATH", file.Transcription.FFmpegPath),
		RunTimeout:            getEnvDuration("RUN_TIMEOUT", orDuration(file.Transcription.RunTimeout, 0)),

		InferenceProvider: normalizeInferenceProvider(getEnv("INFERENCE_PROVIDER", or(file.Inference.Provider, "bedrock"))),
		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", or(file.Inference.BedrockModelID, "us.anthropic.claude-3-5-haiku-20241022-v1:0")),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", file.Inference.OpenAIAPIKey),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", file.Inference.OpenAIBaseURL),
		OpenAIModel:       getEnv("OPENAI_MODEL", or(file.Inference.OpenAIModel, "gpt-4o-mini")),
		MaxTokens:         int(getEnvInt64("ANALYSIS_MAX_TOKENS", orInt64(int64(file.Inference.MaxTokens), 2048))),
		Temperature:       getEnvFloat("ANALYSIS_TEMPERATURE", orFloat(file.Inference.Temperature, 0.7)),
		IdentifyClient:    getEnvBool("ANALYSIS_IDENTIFY_CLIENT", file.Inference.IdentifyClient),

		QuestionStore: normalizeQuestionStore(getEnv("QUESTION_STORE", file.Questions.Store), dbURL),
		SQLitePath:    getEnv("SQLITE_PATH", or(file.Questions.SQLitePath, "./data/questions.db")),
		DatabaseURL:   dbURL,

		SQSQueueURL: getEnv("SQS_QUEUE_URL", file.Queue.URL),
	}

	if env == "production" && cfg.QuestionStore == "memory" {
		log.Printf("QUESTION_STORE=memory in production; question sets will not survive restarts")
	}
	return cfg
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func or(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orInt64(val, def int64) int64 {
	if val > 0 {
		return val
	}
	return def
}

func orFloat(val *float64, def float64) float64 {
	if val != nil {
		return *val
	}
	return def
}

func orDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeTranscriptionProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "groq", "whisper":
		return "groq"
	default:
		return "aws"
	}
}

func normalizeInferenceProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "placeholder", "none":
		return "placeholder"
	default:
		return "bedrock"
	}
}

func normalizeQuestionStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "sqlite":
		return "sqlite"
	case "memory":
		return "memory"
	}
	if dbURL != "" {
		return "postgres"
	}
	return "memory"
}
