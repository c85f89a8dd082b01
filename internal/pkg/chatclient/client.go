package chatclient

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

	"github.com/lumichat/lumichat/internal/pkg/env"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a streaming completion request forwarded upstream.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Client streams completions from the upstream provider. The quota gate
// runs before any call; this client is plain transport.
type Client interface {
	Stream(ctx context.Context, req Request, fn func(chunk []byte) error) error
}

type httpClient struct {
	baseURL    string
	apiKey     string
	HTTPClient *http.Client
}

// NewFromEnv creates a client from OPENAI_API_BASE_URL / OPENAI_API_KEY.
func NewFromEnv() Client {
	return &httpClient{
		baseURL:    strings.TrimRight(env.GetEnv("OPENAI_API_BASE_URL", "https://api.openai.com"), "/"),
		apiKey:     env.GetEnv("OPENAI_API_KEY", ""),
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *httpClient) Stream(ctx context.Context, req Request, fn func(chunk []byte) error) error {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chatclient: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		data, ok := bytes.CutPrefix(line, []byte("data: "))
		if !ok {
			continue
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return scanner.Err()
}
