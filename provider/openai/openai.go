package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client implements the LLM gateway against OpenAI's chat completions API.
// Prompt templates are registered once by name and rendered per call with
// simple {{var}} substitution.
type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	temperature  float64
	maxTokens    int
	httpClient   *http.Client

	mu        sync.RWMutex
	templates map[string]string
}

// Message represents a message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the chat completions API.
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a chat completions response.
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates an OpenAI gateway client.
func NewClient(apiKey, baseURL, defaultModel string, temperature float64, maxTokens int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		temperature:  temperature,
		maxTokens:    maxTokens,
		httpClient:   &http.Client{Timeout: timeout},
		templates:    make(map[string]string),
	}
}

// Available reports whether the gateway has credentials to issue calls.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != ""
}

// RegisterTemplate stores a named prompt template. Re-registering the same
// name overwrites the previous template.
func (c *Client) RegisterTemplate(name, template string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("template name is required")
	}
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("template %q is empty", name)
	}
	c.mu.Lock()
	c.templates[name] = template
	c.mu.Unlock()
	return nil
}

// Generate renders the named template with vars and returns the raw model
// output. Callers must treat the result as untrusted text.
func (c *Client) Generate(ctx context.Context, templateName string, vars map[string]string, model string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("openai api key not configured")
	}

	c.mu.RLock()
	template, ok := c.templates[templateName]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", templateName)
	}

	prompt := template
	for key, value := range vars {
		prompt = strings.ReplaceAll(prompt, "{{"+key+"}}", value)
	}

	if model == "" {
		model = c.defaultModel
	}

	return c.sendRequest(ctx, model, []Message{{Role: "user", Content: prompt}})
}

// sendRequest posts a chat completions request and returns the first
// choice's content.
func (c *Client) sendRequest(ctx context.Context, model string, messages []Message) (string, error) {
	requestBody := request{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var openaiResp response
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return openaiResp.Choices[0].Message.Content, nil
}
