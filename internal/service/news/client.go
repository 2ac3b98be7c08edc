package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
)

const (
	DefaultBaseURL = "https://newsapi.org"
	TopN           = 5

	defaultTimeout = 10 * time.Second
)

// ProviderError describes failed NewsAPI response
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("news provider: status: %d, code: %s, message: %s", e.StatusCode, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return apperrors.ErrProviderUnavailable
}

type article struct {
	Title  string `json:"title"`
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
}

type topHeadlinesResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message,omitempty"`
	Articles []article `json:"articles"`
}

type Config struct {
	// NewsAPI key
	// Without it every request fails as provider unavailable
	APIKey string

	// If not set than DefaultBaseURL is used
	BaseURL string

	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	apiKey  string

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  cfg.HTTPClient,
		logger:  log,
	}
}

// TopHeadlines returns at most TopN headlines for the country
// Zero articles is not an error: result has NoArticles set
func (c *Client) TopHeadlines(ctx context.Context, country string) (models.Headlines, error) {
	var headlines models.Headlines

	if c.apiKey == "" {
		return headlines, fmt.Errorf("%w: news api key is not configured", apperrors.ErrProviderUnavailable)
	}

	query := url.Values{}
	query.Set("country", country)
	query.Set("pageSize", strconv.Itoa(TopN))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/top-headlines?"+query.Encode(), nil)
	if err != nil {
		return headlines, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return headlines, fmt.Errorf("%w: failed to send request: %w", apperrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	var body topHeadlinesResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode != http.StatusOK || body.Status == "error":
		c.logger.Warn("Failed to get headlines", "status_code", resp.StatusCode, "error_code", body.Code)
		return headlines, &ProviderError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message}
	case decodeErr != nil:
		return headlines, fmt.Errorf("%w: failed to decode response: %w", apperrors.ErrProviderUnavailable, decodeErr)
	}

	if len(body.Articles) == 0 {
		return models.Headlines{NoArticles: true}, nil
	}

	articles := body.Articles
	if len(articles) > TopN {
		articles = articles[:TopN]
	}

	headlines.Items = make([]models.Headline, 0, len(articles))
	for _, a := range articles {
		headlines.Items = append(headlines.Items, models.Headline{Title: a.Title, Source: a.Source.Name})
	}

	c.logger.Debug("Headlines fetched", "country", country, "count", len(headlines.Items))
	return headlines, nil
}
