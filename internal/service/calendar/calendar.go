package calendar

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
)

const (
	defaultCalendarID = "primary"
	defaultPageSize   = 50
	defaultTitle      = "No Title"
	dateLayout        = "2006-01-02"
)

type Config struct {
	// Calendar to read, "primary" if not set
	CalendarID string

	// All-day events start at midnight in this location
	// If not set than time.Local is used
	Location *time.Location

	// Base url of calendar API, google default if not set
	Endpoint string

	// Client used as transport for authorized client
	HTTPClient *http.Client
}

// Events fetched for time window
// Warnings hold skipped malformed events
type Result struct {
	Events   []models.CalendarEvent
	Warnings []string
}

func (r Result) Lines() []string {
	lines := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		lines = append(lines, e.Line())
	}
	return lines
}

type Fetcher struct {
	calendarID string
	location   *time.Location
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

func New(cfg Config, log logger.Logger) *Fetcher {
	if cfg.CalendarID == "" {
		cfg.CalendarID = defaultCalendarID
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Fetcher{
		calendarID: cfg.CalendarID,
		location:   cfg.Location,
		endpoint:   cfg.Endpoint,
		httpClient: cfg.HTTPClient,
		logger:     log,
	}
}

// Fetch events starting within [from, to], ascending by start
func (f *Fetcher) Fetch(ctx context.Context, cred models.Credential, from, to time.Time) (Result, error) {
	srv, err := f.service(ctx, cred)
	if err != nil {
		return Result{}, err
	}

	var items []*gcal.Event
	err = srv.Events.List(f.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		// Provider bound on start is exclusive, window end is not
		TimeMax(to.Add(time.Second).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(defaultPageSize).
		Pages(ctx, func(page *gcal.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return Result{}, fmt.Errorf("%w: calendar: %w", apperrors.ErrProviderUnavailable, err)
	}

	result := Normalize(items, from, to, f.location)
	for _, w := range result.Warnings {
		f.logger.Warn("calendar event skipped", "reason", w)
	}
	f.logger.Debug("calendar events fetched", "received", len(items), "kept", len(result.Events))

	return result, nil
}

func (f *Fetcher) service(ctx context.Context, cred models.Credential) (*gcal.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   cred.TokenType,
		Expiry:      cred.Expiry,
	})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, f.httpClient), src)

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}

	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return srv, nil
}

// Normalize converts provider events into display events
// Malformed items are skipped with a warning, events outside [from, to] dropped
func Normalize(items []*gcal.Event, from, to time.Time, loc *time.Location) Result {
	var result Result

	for _, item := range items {
		if item == nil {
			continue
		}

		event, err := toEvent(item, loc)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("event %q: %v", item.Id, err))
			continue
		}

		if event.Start.Before(from) || event.Start.After(to) {
			continue
		}
		result.Events = append(result.Events, event)
	}

	slices.SortStableFunc(result.Events, func(a, b models.CalendarEvent) int {
		return a.Start.Compare(b.Start)
	})

	return result
}

func toEvent(item *gcal.Event, loc *time.Location) (models.CalendarEvent, error) {
	event := models.CalendarEvent{Title: item.Summary}
	if event.Title == "" {
		event.Title = defaultTitle
	}

	var err error
	switch {
	case item.Start == nil:
		return event, fmt.Errorf("%w: no start", apperrors.ErrMalformedRecord)
	case item.Start.DateTime != "":
		event.Start, err = time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return event, fmt.Errorf("%w: start time: %w", apperrors.ErrMalformedRecord, err)
		}
		event.Start = event.Start.In(loc)
	case item.Start.Date != "":
		event.Start, err = time.ParseInLocation(dateLayout, item.Start.Date, loc)
		if err != nil {
			return event, fmt.Errorf("%w: start date: %w", apperrors.ErrMalformedRecord, err)
		}
		event.AllDay = true
	default:
		return event, fmt.Errorf("%w: no start", apperrors.ErrMalformedRecord)
	}

	return event, nil
}
