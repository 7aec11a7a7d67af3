// Package api is the HTTP client for the video backend: config resolution,
// presigned-upload requests and job status reads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-video/client/internal/models"
)

// ErrVideoNotFound is returned by GetVideo when the backend answers 404.
var ErrVideoNotFound = errors.New("video not found")

// StatusError is a non-2xx backend response, carrying the server-provided
// error message when one was present in the body.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Client calls the video backend API with bearer authentication.
type Client struct {
	base   string
	token  string
	http   *http.Client
	logger *zap.Logger
}

// New creates a backend API client. baseURL is normalized by stripping a
// trailing slash.
func New(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   strings.TrimSuffix(baseURL, "/"),
		token:  token,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string { return c.base }

// Token returns the bearer token used for backend calls.
func (c *Client) Token() string { return c.token }

// ResolveAPIBase fetches {configURL}/api/config and returns the advertised
// backend URL with any trailing slash stripped.
func ResolveAPIBase(ctx context.Context, client *http.Client, configURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimSuffix(configURL, "/") + "/api/config"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create config request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch config: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	var body struct {
		APIURL string `json:"apiUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode config: %w", err)
	}
	if body.APIURL == "" {
		return "", errors.New("config endpoint returned no apiUrl")
	}
	return strings.TrimSuffix(body.APIURL, "/"), nil
}

// PresignUpload requests a presigned upload target for the described file.
// A non-2xx response surfaces the server's error message when present.
func (c *Client) PresignUpload(ctx context.Context, preq models.PresignRequest) (*models.PresignResponse, error) {
	raw, err := json.Marshal(preq)
	if err != nil {
		return nil, fmt.Errorf("marshal presign request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/presign-upload", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("presign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: readServerError(resp.Body)}
	}
	var presign models.PresignResponse
	if err := json.NewDecoder(resp.Body).Decode(&presign); err != nil {
		return nil, fmt.Errorf("decode presign response: %w", err)
	}
	return &presign, nil
}

// GetVideo fetches one job snapshot. A JSON null body means the job is not
// known yet and returns (nil, nil); a 404 returns ErrVideoNotFound.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*models.VideoJob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/videos/"+videoID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrVideoNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: readServerError(resp.Body)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read video response: %w", err)
	}
	if isJSONNull(raw) {
		return nil, nil
	}
	var job models.VideoJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode video response: %w", err)
	}
	return &job, nil
}

// ListVideos fetches all jobs visible to the caller.
func (c *Client) ListVideos(ctx context.Context) ([]models.VideoJob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/videos", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: readServerError(resp.Body)}
	}
	var list models.VideoList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode video list: %w", err)
	}
	return list.Videos, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
	return req, nil
}

// readServerError extracts the {error} field from an error body, if any.
func readServerError(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Error
}

func isJSONNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null" || len(bytes.TrimSpace(raw)) == 0
}
