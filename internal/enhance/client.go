// Package enhance rewrites image prompts through a local Ollama model.
// Enhancement is strictly best-effort: every failure path hands back the
// original prompt so generation is never blocked by the text model.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kestrel/internal/log"
)

// CLIP tokenizers cap out around 77 tokens, which in practice is about
// 50 comma-separated words. The system prompt asks for that budget and
// truncatePrompt enforces it when the model overruns anyway.
const (
	MaxPromptChars = 250
	// Truncation prefers a comma or space at or after this index so a cut
	// near the budget never lands mid-word.
	breakThreshold = 150
)

const enhanceSystemPrompt = `Enhance this prompt for Stable Diffusion.

STRICT LIMIT: Maximum 50 words. Use comma-separated phrases only.

Add: style, lighting, mood, quality keywords (8k, detailed, cinematic).
Output ONLY the enhanced prompt - no explanations.`

// Timeouts per call kind. The probe stays short so the orchestrator can
// check reachability without paying the full enhancement latency.
const (
	probeTimeout   = 5 * time.Second
	listTimeout    = 10 * time.Second
	enhanceTimeout = 60 * time.Second
	ideateTimeout  = 120 * time.Second
)

// Client talks to an Ollama server.
type Client struct {
	host   string
	model  string
	client *http.Client
}

// New creates a client for the given Ollama host and default model.
func New(host, model string) *Client {
	return &Client{
		host:  strings.TrimRight(host, "/"),
		model: model,
		// Per-call deadlines come from request contexts.
		client: &http.Client{},
	}
}

// Model returns the configured enhancement model.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Available reports whether the Ollama server is reachable. Uses a short
// timeout so callers can probe on every generation without stalling.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("ollama not available: %v", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the model names the Ollama server has pulled.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Enhance rewrites prompt for image generation and reports whether the
// result differs from the input. On any failure the original prompt comes
// back unchanged with enhanced=false; enhancement must never abort a
// generation.
func (c *Client) Enhance(ctx context.Context, prompt string, styleHint string) (string, bool) {
	userMessage := "Enhance this image generation prompt: " + prompt
	if styleHint != "" {
		userMessage += "\n\nDesired style: " + styleHint
	}

	content, err := c.chat(ctx, enhanceTimeout, []chatMessage{
		{Role: "system", Content: enhanceSystemPrompt},
		{Role: "user", Content: userMessage},
	})
	if err != nil {
		log.Error("ollama enhancement failed: %v", err)
		return prompt, false
	}

	enhanced := strings.TrimSpace(content)
	if enhanced == "" {
		log.Warn("ollama returned empty enhancement")
		return prompt, false
	}

	if len(enhanced) > MaxPromptChars {
		enhanced = truncatePrompt(enhanced)
		log.Warn("enhanced prompt truncated to %d chars (max %d)", len(enhanced), MaxPromptChars)
	}

	log.Info("ollama enhanced prompt (%d -> %d chars)", len(prompt), len(enhanced))
	return enhanced, enhanced != prompt
}

// GeneratePrompts asks the text model for count prompt ideas about topic.
// Returns an empty slice on failure.
func (c *Client) GeneratePrompts(ctx context.Context, topic string, count int, style string) []string {
	system := `You are an expert at creating diverse, creative prompts for AI image generation.
Generate prompts that are visually descriptive and varied in composition, lighting, and mood.
Return each prompt on a new line, numbered 1-N. No other text.`

	userMessage := fmt.Sprintf("Generate %d diverse image prompts about: %s", count, topic)
	if style != "" {
		userMessage += "\nStyle: " + style
	}

	content, err := c.chat(ctx, ideateTimeout, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: userMessage},
	})
	if err != nil {
		log.Error("ollama prompt ideation failed: %v", err)
		return nil
	}

	prompts := parseNumberedList(content)
	if len(prompts) > count {
		prompts = prompts[:count]
	}
	return prompts
}

func (c *Client) chat(ctx context.Context, timeout time.Duration, messages []chatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return chat.Message.Content, nil
}

// truncatePrompt cuts s to MaxPromptChars, preferring the last comma or
// space in the tail region so the result never ends mid-word when a safe
// break point exists.
func truncatePrompt(s string) string {
	truncated := s[:MaxPromptChars]
	lastBreak := strings.LastIndexAny(truncated, ", ")
	if lastBreak > breakThreshold {
		return strings.TrimSpace(strings.TrimRight(truncated[:lastBreak], ","))
	}
	return strings.TrimSpace(truncated)
}

// parseNumberedList extracts entries from model output shaped like
// "1. first" / "2) second", tolerating stray prose lines.
func parseNumberedList(content string) []string {
	var prompts []string
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		if _, rest, ok := strings.Cut(line, ". "); ok {
			prompts = append(prompts, strings.TrimSpace(rest))
		} else if _, rest, ok := strings.Cut(line, ") "); ok {
			prompts = append(prompts, strings.TrimSpace(rest))
		} else {
			prompts = append(prompts, line)
		}
	}
	return prompts
}
