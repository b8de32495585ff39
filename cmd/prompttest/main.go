package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/extract"
	"content-analyzer/internal/llm"
	"content-analyzer/internal/llm/bedrock"
	openai "content-analyzer/internal/llm/openai"
	"content-analyzer/internal/shared/config"
)

// Sends one question about a document to the configured model and prints
// the prompt and the raw answer.
func main() {
	cfg := config.Load()

	docPath := flag.String("doc", "", "Path to the source document (txt, pdf or docx)")
	question := flag.String("question", "", "Question to ask")
	instruction := flag.String("instruction", "", "Optional answer instruction")
	provider := flag.String("provider", cfg.InferenceProvider, "Inference provider (bedrock or openai)")
	showPrompt := flag.Bool("show-prompt", false, "Print the rendered prompt before the answer")
	flag.Parse()

	if strings.TrimSpace(*docPath) == "" || strings.TrimSpace(*question) == "" {
		exitErr("doc and question are required")
	}

	data, err := os.ReadFile(*docPath)
	if err != nil {
		exitErr(fmt.Sprintf("read document: %v", err))
	}
	ctx := context.Background()
	text, err := extract.Text(ctx, data, "", filepath.Base(*docPath))
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}

	client, err := buildClient(ctx, cfg, *provider)
	if err != nil {
		exitErr(err.Error())
	}

	prompt := analysis.BuildPrompt(text, catalog.Question{Text: *question, Instruction: *instruction})
	if *showPrompt {
		fmt.Println(prompt)
		fmt.Println("---")
	}

	answer, err := client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		exitErr(fmt.Sprintf("complete: %v", err))
	}
	fmt.Println(strings.TrimSpace(answer))
}

func buildClient(ctx context.Context, cfg config.Config, provider string) (llm.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case "", "bedrock":
		return bedrock.New(ctx, cfg.AWSRegion, cfg.BedrockModelID)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
