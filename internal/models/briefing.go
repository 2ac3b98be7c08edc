package models

import (
	"time"
)

// CalendarEvent normalized from provider response
type CalendarEvent struct {
	Start  time.Time
	Title  string
	AllDay bool
}

func (e CalendarEvent) Line() string {
	if e.AllDay {
		return e.Start.Format("2006-01-02") + " (all day) - " + e.Title
	}
	return e.Start.Format("2006-01-02 15:04") + " - " + e.Title
}

type Headline struct {
	Title  string
	Source string
}

func (h Headline) Line() string {
	if h.Source == "" {
		return h.Title
	}
	return h.Title + " (" + h.Source + ")"
}

// Headlines fetched from news provider
// NoArticles is true when the provider answered successfully but returned nothing
type Headlines struct {
	Items      []Headline
	NoArticles bool
}

func (h Headlines) Lines() []string {
	if h.NoArticles {
		return []string{NoArticlesLine}
	}

	lines := make([]string, 0, len(h.Items))
	for _, item := range h.Items {
		lines = append(lines, item.Line())
	}
	return lines
}

const NoArticlesLine = "No articles found."

// WeatherReport is always displayable: Line holds either the report or the failure reason
type WeatherReport struct {
	Line string
	OK   bool
}

type SummaryStatus string

const (
	SummaryOK          SummaryStatus = "ok"
	SummaryEmptyInput  SummaryStatus = "empty_input"
	SummaryUnavailable SummaryStatus = "unavailable"
	SummaryFailed      SummaryStatus = "failed"
)

// Summary produced by summarizer
// Text is never empty: on failure it holds the error description
type Summary struct {
	Text   string        `json:"text"`
	Status SummaryStatus `json:"status"`
}

func (s Summary) OK() bool {
	return s.Status == SummaryOK
}

// Result of single pipeline stage
type StageResult struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Payload handed to the renderer
type Payload struct {
	City         string        `json:"city"`
	From         time.Time     `json:"from"`
	To           time.Time     `json:"to"`
	Events       []string      `json:"events"`
	News         []string      `json:"news"`
	Weather      string        `json:"weather"`
	EventSummary Summary       `json:"event_summary"`
	NewsSummary  Summary       `json:"news_summary"`
	Warnings     []string      `json:"warnings,omitempty"`
	Stages       []StageResult `json:"stages"`
}
