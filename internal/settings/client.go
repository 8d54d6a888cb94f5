package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/urls"
)

const (
	// DefaultAPIServiceID is the app id of the project's API service. Its keys
	// are the ones usable for a realtime connection.
	DefaultAPIServiceID = 1

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second

	// DefaultCacheDuration is the default cache validity duration
	DefaultCacheDuration = 15 * time.Second
)

// projectSettings mirrors the parts of the settings response we read.
type projectSettings struct {
	Services []struct {
		App struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"app"`
		ServiceAPIKeys []struct {
			Tags   string `json:"tags"`
			APIKey string `json:"api_key"`
			Name   string `json:"name"`
		} `json:"service_api_keys"`
	} `json:"services"`
}

// Client fetches a project's API keys from the platform settings endpoint.
type Client struct {
	// BaseURL is the platform API base (e.g., "https://api.supabase.com")
	BaseURL string

	// AccessToken authenticates the request (sent as a Bearer token)
	AccessToken string

	// ProjectRef identifies the project whose settings are fetched
	ProjectRef string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts (doubles per attempt)
	RetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay time.Duration

	// CacheDuration is how long a successful response is reused (0 = no cache)
	CacheDuration time.Duration

	cacheMutex sync.RWMutex
	cached     []Credential
	cacheTime  time.Time
}

// NewClient creates a settings client for one project.
func NewClient(baseURL, accessToken, projectRef string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		AccessToken:   accessToken,
		ProjectRef:    projectRef,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		CacheDuration: DefaultCacheDuration,
	}
}

// Name identifies this source in logs.
func (c *Client) Name() string {
	return "api:" + c.ProjectRef
}

// SettingsURL returns the endpoint queried by Fetch.
func (c *Client) SettingsURL() string {
	return urls.SettingsURL(c.BaseURL, c.ProjectRef)
}

// Fetch returns the API keys of the project's default API service.
// A fresh cached result is returned without a request.
func (c *Client) Fetch(ctx context.Context) ([]Credential, error) {
	if c.ProjectRef == "" {
		return nil, newConfigError("no project reference configured (use --project)")
	}
	if c.AccessToken == "" {
		return nil, newConfigError("no access token configured (set RTINSPECT_ACCESS_TOKEN)")
	}

	if cached, ok := c.cachedCredentials(); ok {
		return cached, nil
	}

	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying settings fetch",
				zap.String("project_ref", c.ProjectRef),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		creds, err := c.fetchAttempt(ctx)
		if err == nil {
			c.storeCache(creds)
			return creds, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) fetchAttempt(ctx context.Context) ([]Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SettingsURL(), nil)
	if err != nil {
		return nil, newConfigError(fmt.Sprintf("invalid settings URL: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError("settings request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetworkError("failed to read settings response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp.StatusCode, string(body))
	}

	return parseSettings(body)
}

// parseSettings extracts the default API service keys from a settings body.
// A project without that service yields an empty list, not an error.
func parseSettings(body []byte) ([]Credential, error) {
	var settings projectSettings
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, newParseError("failed to parse settings response", err)
	}

	creds := []Credential{}
	for _, svc := range settings.Services {
		if svc.App.ID != DefaultAPIServiceID {
			continue
		}
		for _, key := range svc.ServiceAPIKeys {
			creds = append(creds, Credential{Label: key.Tags, Value: key.APIKey})
		}
		break
	}
	return creds, nil
}

// cachedCredentials reports a fresh cached list. An empty list is a valid
// cached result.
func (c *Client) cachedCredentials() ([]Credential, bool) {
	if c.CacheDuration <= 0 {
		return nil, false
	}
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	if c.cacheTime.IsZero() || time.Since(c.cacheTime) >= c.CacheDuration {
		return nil, false
	}
	return slices.Clone(c.cached), true
}

func (c *Client) storeCache(creds []Credential) {
	if c.CacheDuration <= 0 {
		return
	}
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cached = slices.Clone(creds)
	c.cacheTime = time.Now()
}

// InvalidateCache forces the next Fetch to hit the endpoint
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cached = nil
	c.cacheTime = time.Time{}
}
