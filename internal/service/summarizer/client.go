package summarizer

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

	"github.com/cenkalti/backoff/v4"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
)

const (
	DefaultURL = "https://api-inference.huggingface.co/models/facebook/bart-large-cnn"

	NothingToSummarize     = "Nothing to summarize."
	ServiceUnavailableText = "Error: Service unavailable after multiple attempts."

	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
	defaultTimeout     = 60 * time.Second
)

type observer interface {
	ObserveSummarizerAttempt(code int)
}

type noopObserver struct{}

func (noopObserver) ObserveSummarizerAttempt(int) {}

// Summarizer client with sensible defaults
type Config struct {
	// Inference endpoint
	// If not set than DefaultURL is used
	URL string

	// Hugging Face API token sent as bearer
	Token string

	// Attempts while endpoint answers 503, including the first one
	// If not set than default is used
	MaxAttempts int

	// Fixed pause between attempts
	// If not set than default is used
	RetryDelay time.Duration

	HTTPClient *http.Client
	Metrics    observer
}

type Client struct {
	url         string
	token       string
	maxAttempts int
	retryDelay  time.Duration

	client  *http.Client
	metrics observer
	logger  logger.Logger
}

type summaryItem struct {
	SummaryText string `json:"summary_text"`
}

// Endpoint answered 503 and may recover
type unavailableError struct{}

func (unavailableError) Error() string { return "service unavailable" }

// Endpoint answered with status other than 200 or 503
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d, %s", e.StatusCode, e.Body)
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopObserver{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Client{
		url:         cfg.URL,
		token:       cfg.Token,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		client:      cfg.HTTPClient,
		metrics:     cfg.Metrics,
		logger:      log,
	}
}

// Summarize never fails: errors come back as summary text with non ok status
func (c *Client) Summarize(ctx context.Context, text string) models.Summary {
	if strings.TrimSpace(text) == "" {
		return models.Summary{Text: NothingToSummarize, Status: models.SummaryEmptyInput}
	}

	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return failed(err)
	}

	var summary string
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		summary, err = c.send(ctx, body)
		if err != nil && !errors.Is(err, unavailableError{}) {
			return backoff.Permanent(err)
		}
		if err != nil {
			c.logger.Warn("Summarizer unavailable", "attempt", attempt, "max_attempts", c.maxAttempts)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxAttempts-1)),
		ctx,
	)

	err = backoff.Retry(operation, policy)
	switch {
	case err == nil:
		return models.Summary{Text: summary, Status: models.SummaryOK}
	case errors.Is(err, unavailableError{}):
		return models.Summary{Text: ServiceUnavailableText, Status: models.SummaryUnavailable}
	default:
		c.logger.Warn("Summarization failed", "error", err)
		return failed(err)
	}
}

func failed(err error) models.Summary {
	return models.Summary{Text: "Error: " + err.Error(), Status: models.SummaryFailed}
}

// Responses other than 200 and 503 are final
func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.ObserveSummarizerAttempt(0)
		return "", fmt.Errorf("%w: %w", apperrors.ErrSummarizationUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck
	c.metrics.ObserveSummarizerAttempt(resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK:
		var items []summaryItem
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil || len(items) == 0 || items[0].SummaryText == "" {
			return "", errors.New("unexpected response from summarization service")
		}
		return items[0].SummaryText, nil
	case http.StatusServiceUnavailable:
		return "", unavailableError{}
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
}
