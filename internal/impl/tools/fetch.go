package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultUserAgent = "ResearchAgent/1.0 (+https://github.com/drujensen/researchagent)"
	defaultTimeout   = 20 * time.Second
	maxResponseBytes = 4 << 20
)

// fetcher performs the GET requests the lookup tools make.
type fetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func newFetcher(configuration map[string]string, logger *zap.Logger) *fetcher {
	return &fetcher{
		client:    &http.Client{Timeout: configDuration(configuration, "timeout", defaultTimeout)},
		userAgent: configString(configuration, "user_agent", defaultUserAgent),
		logger:    logger,
	}
}

func (f *fetcher) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("Request failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		f.logger.Error("Failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Host, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("Unexpected status",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url))
		return nil, fmt.Errorf("%s returned status %d", req.URL.Host, resp.StatusCode)
	}

	f.logger.Debug("Request completed",
		zap.Int("status", resp.StatusCode),
		zap.String("url", url),
		zap.String("size", formatSize(int64(len(body)))))
	return body, nil
}
