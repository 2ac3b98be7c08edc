package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"

	defaultTimeout = 10 * time.Second
)

type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     decimal.Decimal `json:"temp"`
		Humidity decimal.Decimal `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed decimal.Decimal `json:"speed"`
	} `json:"wind"`
	Message string `json:"message,omitempty"`
}

type Config struct {
	// OpenWeatherMap key
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

// Current returns current weather for the city
// Weather is decoration only, so any failure becomes displayable line instead of error
func (c *Client) Current(ctx context.Context, city string) models.WeatherReport {
	report, err := c.current(ctx, city)
	if err != nil {
		c.logger.Warn("Failed to get weather", "city", city, "error", err)
		return models.WeatherReport{Line: fmt.Sprintf("Weather unavailable for %s: %v", city, err)}
	}
	return report
}

func (c *Client) current(ctx context.Context, city string) (models.WeatherReport, error) {
	if strings.TrimSpace(city) == "" {
		return models.WeatherReport{}, errors.New("city is not set")
	}
	if c.apiKey == "" {
		return models.WeatherReport{}, errors.New("api key is not configured")
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("units", "metric")
	query.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+query.Encode(), nil)
	if err != nil {
		return models.WeatherReport{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.WeatherReport{}, errors.New("provider is not reachable")
	}
	defer resp.Body.Close() // nolint:errcheck

	var body currentResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode != http.StatusOK && body.Message != "":
		return models.WeatherReport{}, errors.New(body.Message)
	case resp.StatusCode != http.StatusOK:
		return models.WeatherReport{}, fmt.Errorf("status %d", resp.StatusCode)
	case decodeErr != nil:
		return models.WeatherReport{}, errors.New("unexpected response")
	}

	name := body.Name
	if name == "" {
		name = city
	}
	condition := "unknown"
	if len(body.Weather) > 0 && body.Weather[0].Description != "" {
		condition = body.Weather[0].Description
	}

	line := fmt.Sprintf("%s: %s, %s°C, humidity %s%%, wind %s m/s",
		name,
		condition,
		body.Main.Temp.Round(1).String(),
		body.Main.Humidity.Round(0).String(),
		body.Wind.Speed.Round(1).String(),
	)

	return models.WeatherReport{Line: line, OK: true}, nil
}
