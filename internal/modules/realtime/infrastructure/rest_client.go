package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// RESTClient wraps http.Client with base URL handling and a service bearer token.
type RESTClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRESTClient(baseURL, token string, timeout time.Duration, client *http.Client) (*RESTClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("rest client: base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(timeout)}
	} else if timeout > 0 {
		client.Timeout = timeout
	}
	return &RESTClient{baseURL: trimmed, token: strings.TrimSpace(token), client: client}, nil
}

func (c *RESTClient) NewRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(endpoint, "/"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *RESTClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value <= 0 {
		return 10 * time.Second
	}
	return value
}
