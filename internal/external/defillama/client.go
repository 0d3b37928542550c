package defillama

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/httputil"
	"github.com/wonny/frontier/pkg/logger"
)

// DefaultSearchWidth 자정 스냅샷 주변 가격 탐색 폭 (초)
const DefaultSearchWidth = "600"

// Client handles communication with the DefiLlama coins API
// ⭐ SSOT: DefiLlama API 호출은 이 클라이언트에서만
type Client struct {
	httpClient  *httputil.Client
	logger      *logger.Logger
	baseURL     string
	searchWidth string
}

// NewClient creates a new DefiLlama client
func NewClient(httpClient *httputil.Client, cfg config.DefiLlamaConfig, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://coins.llama.fi"
	}

	searchWidth := cfg.SearchWidth
	if searchWidth == "" {
		searchWidth = DefaultSearchWidth
	}

	return &Client{
		httpClient:  httpClient,
		logger:      log.WithComponent("defillama"),
		baseURL:     baseURL,
		searchWidth: searchWidth,
	}
}

// fetchJSON fetches a JSON body from the coins API
func (c *Client) fetchJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
