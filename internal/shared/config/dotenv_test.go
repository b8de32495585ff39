package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	cases := []struct {
		line, key, val string
		ok             bool
	}{
		{"GROQ_API_KEY=abc", "GROQ_API_KEY", "abc", true},
		{"export AWS_REGION = eu-west-1", "AWS_REGION", "eu-west-1", true},
		{`OPENAI_MODEL="gpt 4o" `, "OPENAI_MODEL", "gpt 4o", true},
		{"S3_BUCKET='uploads #1'", "S3_BUCKET", "uploads #1", true},
		{"LOG_LEVEL=debug # local only", "LOG_LEVEL", "debug", true},
		{"# comment", "", "", false},
		{"NOEQUALS", "", "", false},
		{"=value", "", "", false},
	}
	for _, tc := range cases {
		key, val, ok := parseEnvLine(tc.line)
		if ok != tc.ok || key != tc.key || val != tc.val {
			t.Fatalf("%q: got (%q, %q, %v)", tc.line, key, val, ok)
		}
	}
}

func TestLoadEnvFilesKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CA_TEST_SET=fromfile\nCA_TEST_NEW=fromfile\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CA_TEST_SET", "exported")
	t.Setenv("CA_TEST_NEW", "")
	os.Unsetenv("CA_TEST_NEW")

	loadEnvFiles(filepath.Join(t.TempDir(), "missing.env"), path)

	if got := os.Getenv("CA_TEST_SET"); got != "exported" {
		t.Fatalf("expected exported value to win, got %q", got)
	}
	if got := os.Getenv("CA_TEST_NEW"); got != "fromfile" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
