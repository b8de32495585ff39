package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Env    string `yaml:"env"`
	Server struct {
		Port             string   `yaml:"port"`
		CORSAllowOrigins []string `yaml:"cors_allow_origins"`
		JWTSecret        string   `yaml:"jwt_secret"`
	} `yaml:"server"`
	AWS struct {
		Region string `yaml:"region"`
	} `yaml:"aws"`
	Storage struct {
		Type        string `yaml:"type"`
		LocalDir    string `yaml:"local_dir"`
		S3Bucket    string `yaml:"s3_bucket"`
		S3Prefix    string `yaml:"s3_prefix"`
		SSEKMSKeyID string `yaml:"sse_kms_key_id"`
		Minio       struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			UseSSL    bool   `yaml:"use_ssl"`
		} `yaml:"minio"`
	} `yaml:"storage"`
	Transcription struct {
		Provider       string `yaml:"provider"`
		Language       string `yaml:"language"`
		GroqAPIKey     string `yaml:"groq_api_key"`
		GroqBaseURL    string `yaml:"groq_base_url"`
		GroqModel      string `yaml:"groq_model"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
		PollInterval   string `yaml:"poll_interval"`
		MaxPolls       int    `yaml:"max_polls"`
		FFmpegPath     string `yaml:"ffmpeg_path"`
		RunTimeout     string `yaml:"run_timeout"`
	} `yaml:"transcription"`
	Inference struct {
		Provider       string   `yaml:"provider"`
		BedrockModelID string   `yaml:"bedrock_model_id"`
		OpenAIAPIKey   string   `yaml:"openai_api_key"`
		OpenAIBaseURL  string   `yaml:"openai_base_url"`
		OpenAIModel    string   `yaml:"openai_model"`
		MaxTokens      int      `yaml:"max_tokens"`
		Temperature    *float64 `yaml:"temperature"`
		IdentifyClient bool     `yaml:"identify_client"`
	} `yaml:"inference"`
	Questions struct {
		Store       string `yaml:"store"`
		SQLitePath  string `yaml:"sqlite_path"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"questions"`
	Queue struct {
		URL string `yaml:"url"`
	} `yaml:"queue"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}
