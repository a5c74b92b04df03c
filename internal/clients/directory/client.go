package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackfest/judging-backend/internal/httpx"
	"github.com/hackfest/judging-backend/internal/logger"
)

// Recipient is the minimal notification target resolved from the external
// user directory.
type Recipient struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type Client interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*Recipient, error)
	GetTeamMembers(ctx context.Context, teamID uuid.UUID) ([]Recipient, error)
	GetTeamName(ctx context.Context, teamID uuid.UUID) (string, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("USER_DIRECTORY_URL")),
		APIKey:     strings.TrimSpace(os.Getenv("USER_DIRECTORY_API_KEY")),
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing USER_DIRECTORY_URL")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "DirectoryClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func (c *client) GetUser(ctx context.Context, userID uuid.UUID) (*Recipient, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("directory: user id required")
	}
	endpoint := fmt.Sprintf("%s/users/%s", c.cfg.BaseURL, userID)
	return doJSON[Recipient](c, ctx, endpoint)
}

func (c *client) GetTeamMembers(ctx context.Context, teamID uuid.UUID) ([]Recipient, error) {
	if teamID == uuid.Nil {
		return nil, fmt.Errorf("directory: team id required")
	}
	endpoint := fmt.Sprintf("%s/teams/%s/members", c.cfg.BaseURL, teamID)
	out, err := doJSON[struct {
		Members []Recipient `json:"members"`
	}](c, ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *client) GetTeamName(ctx context.Context, teamID uuid.UUID) (string, error) {
	if teamID == uuid.Nil {
		return "", fmt.Errorf("directory: team id required")
	}
	endpoint := fmt.Sprintf("%s/teams/%s", c.cfg.BaseURL, teamID)
	out, err := doJSON[struct {
		Name string `json:"name"`
	}](c, ctx, endpoint)
	if err != nil {
		return "", err
	}
	return out.Name, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "directory: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("directory http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func doJSON[T any](c *client, ctx context.Context, urlStr string) (*T, error) {
	backoff := 500 * time.Millisecond

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out, resp, err := doJSONOnce[T](c, ctx, urlStr)
		if err == nil {
			return out, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("Directory request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func doJSONOnce[T any](c *client, ctx context.Context, urlStr string) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("directory decode error: %w", err)
	}
	return &out, resp, nil
}
