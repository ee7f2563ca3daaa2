// Package llm wraps the Gemini API behind a small prompt-in, text-out interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Generator produces text for a prompt. jsonMode asks for a bare JSON document.
type Generator interface {
	Generate(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("llm disabled")

type GeminiConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Attempts    int
	Temperature float32
}

// GeminiClient calls generateContent with per-call timeout and retry.
type GeminiClient struct {
	client  *genai.Client
	cfg     GeminiConfig
	backoff time.Duration
}

// NewGeminiClient returns a client, or ErrDisabled when cfg has no API key.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg, backoff: 200 * time.Millisecond}, nil
}

// Generate sends prompt as a single user turn, retrying up to the configured attempts.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	conf := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}
	if jsonMode {
		conf.ResponseMIMEType = "application/json"
	}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	}}

	var lastErr error
	for i := 1; i <= g.cfg.Attempts; i++ {
		text, err := g.once(ctx, contents, conf)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if i == g.cfg.Attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * g.backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("generate (%s, %d attempts): %w", g.cfg.Model, g.cfg.Attempts, lastErr)
}

func (g *GeminiClient) once(ctx context.Context, contents []*genai.Content, conf *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, conf)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

var fence = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```\\s*$")

// CleanJSON strips markdown fences and any prose around the outermost JSON object.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if m := fence.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
