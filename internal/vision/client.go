package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/sightline/internal/shared"
	"golang.org/x/time/rate"
)

// Images shorter than this cannot hold a usable JPEG.
const minImageBytes = 75

type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 2
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.OllamaURL, "/"),
		model:      cfg.Model,
		limiter:    limiter,
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Images  []string      `json:"images,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *Client) Describe(ctx context.Context, img Image, tagNames []string) (string, error) {
	return c.Generate(ctx, img, NavigationPrompt(tagNames))
}

func (c *Client) Answer(ctx context.Context, img Image, question string) (string, error) {
	return c.Generate(ctx, img, QuestionPrompt(question))
}

// Generate makes exactly one request. Callers own any retry policy.
func (c *Client) Generate(ctx context.Context, img Image, prompt Prompt) (string, error) {
	if len(img.Data) < minImageBytes {
		return "", ErrInvalidImage
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return "", shared.ErrRateLimited
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		System: prompt.System,
		Prompt: prompt.User,
		Images: []string{base64.StdEncoding.EncodeToString(img.Data)},
		Stream: false,
		Options: ollamaOptions{
			Temperature: prompt.Temperature,
			NumPredict:  prompt.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: ollama request: %v", shared.ErrRemoteCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama returned status %d", shared.ErrRemoteCall, resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", shared.ErrRemoteCall, err)
	}

	return strings.TrimSpace(ollamaResp.Response), nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
