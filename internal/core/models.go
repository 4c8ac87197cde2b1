package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const DefaultTimeZone = "America/Los_Angeles"

// TheaterConfig identifies one theater on a Boxoffice-CMS-style site.
type TheaterConfig struct {
	ShowtimesURL     string
	WebsiteID        string
	TheaterID        string
	ScheduleEndpoint string
	TimeZone         string
}

// MovieNode is one entry of the movie catalog. Fields other than id and title
// are kept as-is so they can be passed through untouched.
type MovieNode struct {
	ID    string
	Title string
	Data  map[string]json.RawMessage
}

func (m *MovieNode) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("movie node is null")
	}

	if raw, ok := fields["id"]; ok {
		id, err := scalarText(raw)
		if err != nil {
			return fmt.Errorf("movie node id: %w", err)
		}
		m.ID = id
	}
	if raw, ok := fields["title"]; ok {
		var title *string
		if err := json.Unmarshal(raw, &title); err != nil {
			return fmt.Errorf("movie node title: %w", err)
		}
		if title != nil {
			m.Title = *title
		}
	}
	m.Data = fields
	return nil
}

func (m MovieNode) MarshalJSON() ([]byte, error) {
	if m.Data != nil {
		return json.Marshal(m.Data)
	}
	return json.Marshal(map[string]string{"id": m.ID, "title": m.Title})
}

// scalarText renders a JSON string or number as plain text. null yields "".
func scalarText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", trimmed)
	}
	return n.String(), nil
}

// Showing is a schedule record exactly as the schedule API returned it.
type Showing = json.RawMessage

type Result struct {
	CatalogEndpoint string      `json:"catalogEndpoint"`
	Movies          []MovieNode `json:"movies"`
	Schedule        []Showing   `json:"schedule"`
}
