package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
)

// HTTPClient implements Client against the portal REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	region     string
}

// NewHTTPClient creates a REST client. httpClient should already attach
// credentials, e.g. one built by Authenticator.Client.
func NewHTTPClient(baseURL, region string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		region:     region,
	}
}

// ListProjects implements Client.
func (c *HTTPClient) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.getJSON(ctx, "/projects", &projects); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListProcesses implements Client.
func (c *HTTPClient) ListProcesses(ctx context.Context) ([]model.Process, error) {
	var processes []model.Process
	if err := c.getJSON(ctx, "/processes", &processes); err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	return processes, nil
}

// ListDatasets implements Client.
func (c *HTTPClient) ListDatasets(ctx context.Context, projectID string) ([]model.Dataset, error) {
	var datasets []model.Dataset
	p := "/projects/" + url.PathEscape(projectID) + "/datasets"
	if err := c.getJSON(ctx, p, &datasets); err != nil {
		return nil, fmt.Errorf("failed to list datasets of %s: %w", projectID, err)
	}
	return datasets, nil
}

// ListFiles implements Client.
func (c *HTTPClient) ListFiles(ctx context.Context, projectID, datasetID string) ([]model.File, error) {
	var files []model.File
	if err := c.getJSON(ctx, datasetPath(projectID, datasetID)+"/files", &files); err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", datasetID, err)
	}
	return files, nil
}

// Open implements Client. The caller closes the returned body.
func (c *HTTPClient) Open(ctx context.Context, projectID, datasetID, file string) (io.ReadCloser, error) {
	segments := strings.Split(file, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	resp, err := c.get(ctx, datasetPath(projectID, datasetID)+"/files/"+strings.Join(segments, "/"))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func datasetPath(projectID, datasetID string) string {
	return "/projects/" + url.PathEscape(projectID) + "/datasets/" + url.PathEscape(datasetID)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// get issues a GET and maps error statuses. On success the caller owns resp.Body.
func (c *HTTPClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.region != "" {
		req.Header.Set("X-Portal-Region", c.region)
	}

	slog.Debug("Requesting portal", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", common.ErrUnauthorized, path)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
	default:
		return nil, fmt.Errorf("portal API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
