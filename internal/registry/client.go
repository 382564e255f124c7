// Package registry is the HTTP/JSON client for the external school-unit
// registry. Every call can fail independently; errors are classified so the
// catalog layer can decide what is worth retrying.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/vagledaren/vagledaren/internal/fault"
)

// API is the narrow registry surface consumed by the catalog.
type API interface {
	ListSummaries(ctx context.Context) ([]Summary, error)
	GetDetail(ctx context.Context, code string) (*SchoolRecord, error)
	GetPrograms(ctx context.Context) ([]ProgramRecord, error)
}

type client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a registry client for the given base URL.
func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) API {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
		logger:  logger.With("component", "registry_client"),
	}
}

func (c *client) ListSummaries(ctx context.Context) ([]Summary, error) {
	var payload struct {
		Units []Summary `json:"units"`
	}
	if err := c.getJSON(ctx, "units", &payload); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched school unit summaries", "count", len(payload.Units))
	return payload.Units, nil
}

func (c *client) GetDetail(ctx context.Context, code string) (*SchoolRecord, error) {
	var payload struct {
		Unit SchoolRecord `json:"unit"`
	}
	err := c.getJSON(ctx, "units/"+url.PathEscape(code), &payload)
	if err != nil {
		if fault.IsCode(err, fault.CodeInput) {
			// The registry answers 404 for unknown codes.
			return nil, fault.Newf(fault.CodeSchoolNotFound, "school unit %s not found", code)
		}
		return nil, err
	}
	return &payload.Unit, nil
}

func (c *client) GetPrograms(ctx context.Context) ([]ProgramRecord, error) {
	var payload struct {
		Programs []ProgramRecord `json:"programs"`
	}
	if err := c.getJSON(ctx, "programs", &payload); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched program catalog", "count", len(payload.Programs))
	return payload.Programs, nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fault.Wrap(fault.CodeUnknown, "bad registry URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fault.Wrap(fault.CodeUnknown, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		retryAfter := fault.ParseRetryAfter(resp.Header.Get("Retry-After"))
		fe := fault.ClassifyHTTP(resp.StatusCode, retryAfter)
		c.logger.Warn("registry returned non-OK status", "path", path, "status", resp.StatusCode)
		return fe
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.CodeCatalogBuild, fmt.Sprintf("failed to decode registry response for %s", path), err)
	}
	return nil
}
