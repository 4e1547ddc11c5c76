package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

const defaultTimeout = 10 * time.Second

// Client talks to the collector backend's data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client. A non-positive timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// History returns the raw recent records of a device tag.
func (c *Client) History(ctx context.Context, target trend.Target) ([]series.RawRecord, error) {
	body, err := c.get(ctx, c.targetPath("history", target))
	if err != nil {
		return nil, err
	}
	return DecodeHistory(body)
}

// Forecast asks the backend to predict the next values of a device tag.
func (c *Client) Forecast(ctx context.Context, target trend.Target) ([]series.RawRecord, error) {
	body, err := c.get(ctx, c.targetPath("predict", target))
	if err != nil {
		return nil, err
	}
	return DecodeForecast(body)
}

// LatestDevices returns the device snapshot list without interpreting it.
func (c *Client) LatestDevices(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, c.baseURL+"/data/api/latest")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode latest response: invalid json")
	}
	return json.RawMessage(body), nil
}

func (c *Client) targetPath(kind string, target trend.Target) string {
	return fmt.Sprintf("%s/data/api/%s/%s/%s", c.baseURL, kind, url.PathEscape(target.DeviceID), url.PathEscape(target.TagID))
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build collector request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("collector request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read collector response: %w", err)
	}
	return body, nil
}
