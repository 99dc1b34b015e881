package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/logging"
)

// openaiClient speaks the OpenAI chat-completions wire format. It serves the
// openai, groq, openrouter, and local providers, which differ only in base
// URL and credential.
type openaiClient struct {
	config     Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewOpenAIClient constructs an HTTP client for an OpenAI-compatible endpoint.
func NewOpenAIClient(config Config) Client {
	if config.BaseURL == "" {
		config.BaseURL = baseURLFor(config.Provider, "")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &openaiClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger("llm-" + config.Provider),
	}
}

func (c *openaiClient) Model() string { return c.config.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *openaiClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", sderrors.CapabilityUnavailable("llm", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", sderrors.CapabilityUnavailable("llm",
			fmt.Errorf("%s returned status %d: %s", c.config.Provider, resp.StatusCode, truncate(string(body), 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", sderrors.CapabilityUnavailable("llm", fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		return "", sderrors.CapabilityUnavailable("llm", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", sderrors.CapabilityUnavailable("llm", fmt.Errorf("empty choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *openaiClient) CompleteStream(ctx context.Context, req Request) (<-chan StreamDelta, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, sderrors.CapabilityUnavailable("llm",
			fmt.Errorf("%s returned status %d: %s", c.config.Provider, resp.StatusCode, truncate(string(body), 200)))
	}

	out := make(chan StreamDelta, 16)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				out <- StreamDelta{Done: true}
				return
			}
			var chunk chatResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case out <- StreamDelta{Content: content}:
				case <-ctx.Done():
					out <- StreamDelta{Err: ctx.Err()}
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			out <- StreamDelta{Err: sderrors.CapabilityUnavailable("llm", err)}
			return
		}
		out <- StreamDelta{Done: true}
	}()
	return out, nil
}

func (c *openaiClient) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:       c.config.Model,
		Temperature: 0,
		Stream:      stream,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("llm", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("llm", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("llm", err)
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
