package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vagledaren/vagledaren/internal/fault"
)

// HTTPConfig configures the production generation client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type httpClient struct {
	client *http.Client
	cfg    HTTPConfig
	logger *slog.Logger
}

// NewHTTPClient creates the production client against an OpenAI-compatible
// chat-completions endpoint.
func NewHTTPClient(logger *slog.Logger, cfg HTTPConfig) Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &httpClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger.With("component", "generation_client"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *httpClient) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := c.send(ctx, prompt, false)
	if err != nil {
		requestsTotal.WithLabelValues("complete", "error").Inc()
		return "", err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		requestsTotal.WithLabelValues("complete", "error").Inc()
		return "", fault.Wrap(fault.CodeUnknown, "failed to decode generation response", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		requestsTotal.WithLabelValues("complete", "error").Inc()
		return "", fault.Retryable(fault.CodeNetwork, "empty generation response", 0)
	}

	requestsTotal.WithLabelValues("complete", "success").Inc()
	requestDuration.WithLabelValues("complete").Observe(time.Since(start).Seconds())
	tokensTotal.WithLabelValues("prompt").Add(float64(chatResp.Usage.PromptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(chatResp.Usage.CompletionTokens))

	c.logger.Debug("generation completed",
		"prompt_chars", len(prompt),
		"completion_chars", len(chatResp.Choices[0].Message.Content),
		"total_tokens", chatResp.Usage.TotalTokens,
		"duration", time.Since(start))
	return chatResp.Choices[0].Message.Content, nil
}

// CompleteStream starts a streaming generation. The returned Stream owns
// the HTTP response; closing it cancels the upstream request.
func (c *httpClient) CompleteStream(ctx context.Context, prompt string) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	resp, err := c.send(streamCtx, prompt, true)
	if err != nil {
		cancel()
		requestsTotal.WithLabelValues("stream", "error").Inc()
		return nil, err
	}

	requestsTotal.WithLabelValues("stream", "success").Inc()
	reader := bufio.NewReader(resp.Body)

	recv := func() (string, error) {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF || errors.Is(err, context.Canceled) {
					return "", io.EOF
				}
				return "", fault.ClassifyTransport(err)
			}
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				return "", io.EOF
			}
			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				c.logger.Warn("skipping malformed stream chunk", "error", err)
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			return chunk.Choices[0].Delta.Content, nil
		}
	}
	closeFn := func() error {
		cancel()
		return resp.Body.Close()
	}
	return NewStream(recv, closeFn), nil
}

func (c *httpClient) send(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat/completions")
	if err != nil {
		return nil, fault.Wrap(fault.CodeUnknown, "bad generation URL", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   stream,
	})
	if err != nil {
		return nil, fault.Wrap(fault.CodeUnknown, "failed to encode generation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fault.Wrap(fault.CodeUnknown, "failed to build generation request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fault.ClassifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		retryAfter := fault.ParseRetryAfter(resp.Header.Get("Retry-After"))
		fe := fault.ClassifyHTTP(resp.StatusCode, retryAfter)
		c.logger.Warn("generation service returned non-OK status",
			"status", resp.StatusCode,
			"body", fmt.Sprintf("%.200s", string(respBody)))
		return nil, fe
	}
	return resp, nil
}
