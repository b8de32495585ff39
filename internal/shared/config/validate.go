package config

import (
	"errors"
	"strings"
)

// ErrConfigurationMissing is matched by every MissingError.
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError names every required key that was not set.
type MissingError struct {
	Component string
	Keys      []string
}

func (e *MissingError) Error() string {
	if e.Component == "" {
		return "configuration missing: " + strings.Join(e.Keys, ", ")
	}
	return e.Component + ": configuration missing: " + strings.Join(e.Keys, ", ")
}

func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// Require returns a MissingError listing the keys whose values are blank, or nil.
// Pairs are key, value, key, value...
func Require(component string, pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingError{Component: component, Keys: missing}
}

// Validate checks that every key needed by the selected providers is present.
// All missing keys are reported together.
func (c Config) Validate() error {
	var pairs []string

	switch c.ObjectStoreType {
	case "s3":
		pairs = append(pairs, "AWS_REGION", c.AWSRegion, "S3_BUCKET", c.S3Bucket)
	case "minio":
		pairs = append(pairs,
			"MINIO_ENDPOINT", c.MinioEndpoint,
			"MINIO_ACCESS_KEY", c.MinioAccessKey,
			"MINIO_SECRET_KEY", c.MinioSecretKey,
			"MINIO_BUCKET", c.MinioBucket,
		)
	}

	switch c.TranscriptionProvider {
	case "aws":
		if c.ObjectStoreType != "s3" {
			// Transcribe reads media from S3, so the staging store must be S3.
			pairs = append(pairs, "OBJECT_STORE=s3", onlyIf(c.ObjectStoreType == "s3"))
		}
		pairs = append(pairs, "AWS_REGION", c.AWSRegion)
	case "groq":
		pairs = append(pairs, "GROQ_API_KEY", c.GroqAPIKey)
	}

	switch c.InferenceProvider {
	case "bedrock":
		pairs = append(pairs, "AWS_REGION", c.AWSRegion, "BEDROCK_MODEL_ID", c.BedrockModelID)
	case "openai":
		pairs = append(pairs, "OPENAI_API_KEY", c.OpenAIAPIKey)
	}

	switch c.QuestionStore {
	case "postgres":
		pairs = append(pairs, "DATABASE_URL", c.DatabaseURL)
	case "sqlite":
		pairs = append(pairs, "SQLITE_PATH", c.SQLitePath)
	}

	if c.Env == "production" {
		pairs = append(pairs, "JWT_SECRET", c.JWTSecret)
	}

	return Require("", dedupe(pairs)...)
}

func onlyIf(ok bool) string {
	if ok {
		return "set"
	}
	return ""
}

func dedupe(pairs []string) []string {
	seen := make(map[string]bool, len(pairs)/2)
	out := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		if seen[pairs[i]] {
			continue
		}
		seen[pairs[i]] = true
		out = append(out, pairs[i], pairs[i+1])
	}
	return out
}
