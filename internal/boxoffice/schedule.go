package boxoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/drewfead/showtimes/internal/core"
	"github.com/drewfead/showtimes/internal/scraping"
)

const timestampFormat = "2006-01-02T15:04:05"

type TheaterRef struct {
	ID       string `json:"id"`
	TimeZone string `json:"timeZone"`
}

// ScheduleRequest is the body posted to the schedule endpoint.
type ScheduleRequest struct {
	Theaters  []TheaterRef `json:"theaters"`
	MovieIDs  []string     `json:"movieIds"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	WebsiteID string       `json:"websiteId"`
}

// NewScheduleRequest covers [now, now+1 year) for a single theater.
func NewScheduleRequest(theater core.TheaterConfig, movieIDs []string, now time.Time) ScheduleRequest {
	tz := theater.TimeZone
	if tz == "" {
		tz = core.DefaultTimeZone
	}
	if movieIDs == nil {
		movieIDs = []string{}
	}
	return ScheduleRequest{
		Theaters:  []TheaterRef{{ID: theater.TheaterID, TimeZone: tz}},
		MovieIDs:  movieIDs,
		From:      now.Format(timestampFormat),
		To:        AddYear(now).Format(timestampFormat),
		WebsiteID: theater.WebsiteID,
	}
}

// AddYear moves t one calendar year ahead. Feb 29 lands on Feb 28.
func AddYear(t time.Time) time.Time {
	year, month, day := t.Date()
	if last := daysIn(year+1, month); day > last {
		day = last
	}
	return time.Date(year+1, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

type theaterSchedule struct {
	Schedule *[]core.Showing `json:"schedule"`
}

// ParseSchedule indexes a schedule response by theater id, then by "schedule".
func ParseSchedule(body []byte, theaterID string) ([]core.Showing, error) {
	var byTheater map[string]*json.RawMessage
	if err := json.Unmarshal(body, &byTheater); err != nil {
		return nil, fmt.Errorf("%w: decoding schedule response: %v", ErrShapeMismatch, err)
	}
	raw := byTheater[theaterID]
	if raw == nil {
		return nil, fmt.Errorf("%w: no entry for theater %s", ErrShapeMismatch, theaterID)
	}
	var entry *theaterSchedule
	if err := json.Unmarshal(*raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: theater %s: %v", ErrShapeMismatch, theaterID, err)
	}
	if entry == nil || entry.Schedule == nil {
		return nil, fmt.Errorf("%w: theater %s has no schedule", ErrShapeMismatch, theaterID)
	}
	return *entry.Schedule, nil
}

// FetchSchedule posts one schedule request and returns the theater's showings verbatim.
func (c *Client) FetchSchedule(ctx context.Context, theater core.TheaterConfig, movieIDs []string) ([]core.Showing, error) {
	ctx, span := otel.Tracer("boxoffice").Start(ctx, "fetch_schedule")
	defer span.End()

	body, err := json.Marshal(NewScheduleRequest(theater, movieIDs, c.now()))
	if err != nil {
		return nil, fmt.Errorf("encoding schedule request: %w", err)
	}

	resp, err := scraping.Do(ctx, scraping.Request{
		Method: http.MethodPost,
		URL:    theater.ScheduleEndpoint,
		Body:   body,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Timeout: c.timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching schedule from %s: %w", theater.ScheduleEndpoint, err)
	}

	schedule, err := ParseSchedule(resp, theater.TheaterID)
	if err != nil {
		return nil, fmt.Errorf("schedule from %s: %w", theater.ScheduleEndpoint, err)
	}

	zap.L().Info("Fetched schedule",
		zap.String("theater", theater.TheaterID),
		zap.Int("showings", len(schedule)),
	)
	return schedule, nil
}
