package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
	"github.com/nkiryanov/dailybrief/internal/service/calendar"
)

// Stage names in execution order
const (
	StageCredential   = "credential"
	StageEvents       = "events"
	StageNews         = "news"
	StageWeather      = "weather"
	StageEventSummary = "event_summary"
	StageNewsSummary  = "news_summary"
)

// Placeholders of empty or failed sections
const (
	NoEventsLine          = "No upcoming events."
	EventsUnavailableLine = "Events unavailable."
	NewsUnavailableLine   = "News unavailable."
)

const (
	defaultCountry    = "us"
	defaultCity       = "London"
	defaultWindowDays = 2
)

type credentialProvider interface {
	EnsureValid(ctx context.Context, userID uuid.UUID) (models.Credential, error)
}

type eventsFetcher interface {
	Fetch(ctx context.Context, cred models.Credential, from, to time.Time) (calendar.Result, error)
}

type newsFetcher interface {
	TopHeadlines(ctx context.Context, country string) (models.Headlines, error)
}

type weatherFetcher interface {
	Current(ctx context.Context, city string) models.WeatherReport
}

type summarizer interface {
	Summarize(ctx context.Context, text string) models.Summary
}

type observer interface {
	ObserveStage(stage string, duration time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration, error) {}

type Config struct {
	// City used when request has none
	DefaultCity string

	// News market
	Country string

	// Event window starts at midnight today in this location
	// If not set than time.Local is used
	Location *time.Location

	// Days covered by event window
	WindowDays int

	// Clock, time.Now if not set
	Now func() time.Time

	Metrics observer
}

// Collaborators of the pipeline, all required
type Deps struct {
	Auth       credentialProvider
	Events     eventsFetcher
	News       newsFetcher
	Weather    weatherFetcher
	Summarizer summarizer
}

type Request struct {
	City string
}

type Service struct {
	cfg  Config
	deps Deps

	logger logger.Logger
}

func New(cfg Config, deps Deps, log logger.Logger) (*Service, error) {
	if deps.Auth == nil || deps.Events == nil || deps.News == nil || deps.Weather == nil || deps.Summarizer == nil {
		return nil, errors.New("all pipeline dependencies must be set")
	}

	if cfg.DefaultCity == "" {
		cfg.DefaultCity = defaultCity
	}
	if cfg.Country == "" {
		cfg.Country = defaultCountry
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopObserver{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{cfg: cfg, deps: deps, logger: log}, nil
}

// Window returns event window: from midnight today for configured amount of days
func (s *Service) Window() (from, to time.Time) {
	now := s.cfg.Now().In(s.cfg.Location)
	from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	return from, from.AddDate(0, 0, s.cfg.WindowDays)
}

// Build runs pipeline stages one after another
// Only credential failure stops the run, other failures are replaced with placeholders
func (s *Service) Build(ctx context.Context, userID uuid.UUID, req Request) (models.Payload, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		city = s.cfg.DefaultCity
	}
	from, to := s.Window()

	p := models.Payload{City: city, From: from, To: to}
	log := s.logger.With("user_id", userID)

	var cred models.Credential
	err := s.stage(&p, StageCredential, func() (err error) {
		cred, err = s.deps.Auth.EnsureValid(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotAuthenticated) {
			return models.Payload{}, err
		}
		return models.Payload{}, fmt.Errorf("error while validating credential. Err: %w", err)
	}

	var events []string
	_ = s.stage(&p, StageEvents, func() error {
		result, err := s.deps.Events.Fetch(ctx, cred, from, to)
		if err != nil {
			p.Events = []string{EventsUnavailableLine}
			return err
		}
		events = result.Lines()
		p.Warnings = append(p.Warnings, result.Warnings...)
		p.Events = events
		if len(p.Events) == 0 {
			p.Events = []string{NoEventsLine}
		}
		return nil
	})

	var headlines []string
	_ = s.stage(&p, StageNews, func() error {
		news, err := s.deps.News.TopHeadlines(ctx, s.cfg.Country)
		if err != nil {
			p.News = []string{NewsUnavailableLine}
			return err
		}
		for _, item := range news.Items {
			headlines = append(headlines, item.Title)
		}
		p.News = news.Lines()
		return nil
	})

	_ = s.stage(&p, StageWeather, func() error {
		report := s.deps.Weather.Current(ctx, city)
		p.Weather = report.Line
		if !report.OK {
			return errors.New(report.Line)
		}
		return nil
	})

	_ = s.stage(&p, StageEventSummary, func() error {
		p.EventSummary = s.deps.Summarizer.Summarize(ctx, strings.Join(events, "\n"))
		return summaryErr(p.EventSummary)
	})

	_ = s.stage(&p, StageNewsSummary, func() error {
		p.NewsSummary = s.deps.Summarizer.Summarize(ctx, strings.Join(headlines, ". "))
		return summaryErr(p.NewsSummary)
	})

	for _, st := range p.Stages {
		if st.Error != "" {
			log.Warn("pipeline stage failed", "stage", st.Name, "error", st.Error)
		}
	}

	return p, nil
}

func (s *Service) stage(p *models.Payload, name string, fn func() error) error {
	started := time.Now()
	err := fn()
	s.cfg.Metrics.ObserveStage(name, time.Since(started), err)

	result := models.StageResult{Name: name}
	if err != nil {
		result.Error = err.Error()
	}
	p.Stages = append(p.Stages, result)

	return err
}

func summaryErr(s models.Summary) error {
	switch s.Status {
	case models.SummaryOK, models.SummaryEmptyInput:
		return nil
	default:
		return errors.New(s.Text)
	}
}
