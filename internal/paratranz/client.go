package paratranz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public ParaTranz API root.
const DefaultBaseURL = "https://paratranz.cn/api"

// Client reads project files and translation entries from ParaTranz.
type Client struct {
	baseURL    string
	projectID  string
	token      string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the attempt count and the linear backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.maxRetries = attempts
		c.backoff = backoff
	}
}

// NewClient creates a ParaTranz client for one project.
func NewClient(baseURL, projectID, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		token:      token,
		maxRetries: 3,
		backoff:    2 * time.Second,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// File is a project file as listed by ParaTranz.
type File struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TranslationEntry is one string of a project file. Keys longer than
// TruncatedKeyLength are cut by the service.
type TranslationEntry struct {
	Key         string `json:"key"`
	Original    string `json:"original"`
	Translation string `json:"translation,omitempty"`
	Stage       int    `json:"stage"`
}

// TruncatedKeyLength is the ParaTranz key column width. A key of exactly this
// length may have been cut off.
const TruncatedKeyLength = 255

// TransportError is a non-success response from ParaTranz.
type TransportError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("paratranz request %s failed (status %d): %s", e.URL, e.StatusCode, e.Body)
}

func (e *TransportError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ListFiles returns every file of the project.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var files []File
	url := fmt.Sprintf("%s/projects/%s/files/", c.baseURL, c.projectID)
	if err := c.getJSON(ctx, url, &files); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	log.Debug().Int("files", len(files)).Msg("Listed project files")
	return files, nil
}

// FetchEntries returns the translation entries of one file.
func (c *Client) FetchEntries(ctx context.Context, fileID int) ([]TranslationEntry, error) {
	var entries []TranslationEntry
	url := fmt.Sprintf("%s/projects/%s/files/%d/translation", c.baseURL, c.projectID, fileID)
	if err := c.getJSON(ctx, url, &entries); err != nil {
		return nil, fmt.Errorf("fetch entries of file %d: %w", fileID, err)
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.backoff
			log.Warn().Int("attempt", attempt+1).Dur("backoff", wait).Str("url", url).Msg("Retrying ParaTranz request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		body, err := c.doRequest(ctx, url)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		var te *TransportError
		if errors.As(err, &te) && !te.retryable() {
			return err
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
