package competition

import (
	"bytes"
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

const (
	StatusCompleted = "COMPLETED"
	StatusAwarded   = "AWARDED"
)

// Competition is the read-only lifecycle fact consumed by the judging core.
type Competition struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Status  string     `json:"status"`
	EndDate *time.Time `json:"end_date,omitempty"`
}

type Client interface {
	GetCompetition(ctx context.Context, id uuid.UUID) (*Competition, error)
	// SetStatus is an idempotent PUT; callers may retry it independently of
	// anything persisted locally.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	IsAssignedJudge(ctx context.Context, competitionID, judgeID uuid.UUID) (bool, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeout := 10
	if v := strings.TrimSpace(os.Getenv("COMPETITION_SERVICE_TIMEOUT_SECONDS")); v != "" {
		fmt.Sscanf(v, "%d", &timeout)
	}
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("COMPETITION_SERVICE_URL")),
		APIKey:     strings.TrimSpace(os.Getenv("COMPETITION_SERVICE_API_KEY")),
		Timeout:    time.Duration(timeout) * time.Second,
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
		return nil, fmt.Errorf("missing COMPETITION_SERVICE_URL")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "CompetitionClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func (c *client) GetCompetition(ctx context.Context, id uuid.UUID) (*Competition, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("competition: id required")
	}
	endpoint := fmt.Sprintf("%s/competitions/%s", c.cfg.BaseURL, id)
	return doJSON[Competition](c, ctx, http.MethodGet, endpoint, nil)
}

func (c *client) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if id == uuid.Nil {
		return fmt.Errorf("competition: id required")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("competition: status required")
	}
	endpoint := fmt.Sprintf("%s/competitions/%s/status", c.cfg.BaseURL, id)
	_, err := doJSON[struct{}](c, ctx, http.MethodPut, endpoint, map[string]string{"status": status})
	return err
}

func (c *client) IsAssignedJudge(ctx context.Context, competitionID, judgeID uuid.UUID) (bool, error) {
	if competitionID == uuid.Nil || judgeID == uuid.Nil {
		return false, fmt.Errorf("competition: competition and judge ids required")
	}
	endpoint := fmt.Sprintf("%s/competitions/%s/judges/%s", c.cfg.BaseURL, competitionID, judgeID)
	out, err := doJSON[struct {
		Assigned bool `json:"assigned"`
	}](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	return out.Assigned, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "competition: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("competition http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func doJSON[T any](c *client, ctx context.Context, method, urlStr string, payload any) (*T, error) {
	backoff := 500 * time.Millisecond

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out, resp, err := doJSONOnce[T](c, ctx, method, urlStr, payload)
		if err == nil {
			return out, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("Competition service request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func doJSONOnce[T any](c *client, ctx context.Context, method, urlStr string, payload any) (*T, *http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
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
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("competition decode error: %w", err)
	}
	return &out, resp, nil
}
