package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
)

// Summarizer produces enrichment data (summary, category, language) for
// persisted articles via an OpenAI-compatible endpoint. It runs after the
// ingestion write path and never participates in the upsert transaction.
type Summarizer struct {
	client    *openai.Client
	config    Config
	systemMsg string
}

// Config holds LLM settings for article enrichment
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"system_prompt"`
	Categories   []string      `yaml:"categories"`
}

// default system prompt for article enrichment
const defaultSystemPrompt = `You are an AI assistant that enriches harvested articles.
For each article produce:
- summary: 2-4 sentences capturing the key points. Write directly about the content itself,
  never phrases like "The article discusses". Use the same language as the article.
- category: one category name that best fits the content. Use a category from the provided
  list when applicable.
- language: ISO 639-1 code of the article's main language.

Respond with a single JSON object: {"summary": "...", "category": "...", "language": "..."}`

// Enrichment is the summarizer's output for one article
type Enrichment struct {
	Summary  string `json:"summary"`
	Category string `json:"category"`
	Language string `json:"language"`
}

// NewSummarizer creates an LLM summarizer
func NewSummarizer(cfg Config) *Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Summarizer{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// Summarize enriches one article. Retries up to 3 times on malformed JSON
// responses; other failures are returned immediately.
func (s *Summarizer) Summarize(ctx context.Context, article *domain.Article) (*Enrichment, error) {
	prompt := s.buildPrompt(article)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req := openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: float32(s.config.Temperature),
			MaxTokens:   s.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: s.systemMsg},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		}

		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("llm request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no response from llm")
		}

		enrichment, err := parseResponse(resp.Choices[0].Message.Content)
		if err == nil {
			return enrichment, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed after 3 attempts: %w", lastErr)
}

// buildPrompt creates the prompt for one article
func (s *Summarizer) buildPrompt(article *domain.Article) string {
	var sb strings.Builder

	if len(s.config.Categories) > 0 {
		sb.WriteString("Available categories (use one of these when applicable):\n")
		sb.WriteString(strings.Join(s.config.Categories, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Enrich this article:\n\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", article.Title))
	sb.WriteString(fmt.Sprintf("Author: @%s\n", article.AuthorHandle))
	if article.Excerpt != "" {
		sb.WriteString(fmt.Sprintf("Excerpt: %s\n", article.Excerpt))
	}
	if article.Content != "" {
		content := article.Content
		if len(content) > 4000 {
			content = content[:4000] + "..."
		}
		sb.WriteString(fmt.Sprintf("Content: %s\n", content))
	}

	return sb.String()
}

// parseResponse extracts the enrichment object from the LLM response,
// tolerating surrounding prose and code fences
func parseResponse(content string) (*Enrichment, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object found in response")
	}

	var enrichment Enrichment
	if err := json.Unmarshal([]byte(content[start:end+1]), &enrichment); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	if enrichment.Summary == "" {
		return nil, fmt.Errorf("empty summary in response")
	}
	return &enrichment, nil
}
