package boxoffice

import (
	"errors"
	"time"

	"github.com/drewfead/showtimes/internal/scraping"
)

var (
	// ErrCatalogNotFound means no candidate endpoint served a movie catalog.
	ErrCatalogNotFound = errors.New("boxoffice: could not find an endpoint containing the 'allMovie' key")
	// ErrShapeMismatch means the API answered successfully but not with the expected structure.
	ErrShapeMismatch = errors.New("boxoffice: unexpected response shape")
)

// ProbeFailurePolicy decides what a failed catalog probe does to the run.
type ProbeFailurePolicy int

const (
	// SkipFailedProbes logs the failure and moves on to the next candidate.
	SkipFailedProbes ProbeFailurePolicy = iota
	// FailOnProbeError aborts the catalog search on the first transport failure.
	FailOnProbeError
)

func (p ProbeFailurePolicy) String() string {
	switch p {
	case SkipFailedProbes:
		return "skip"
	case FailOnProbeError:
		return "fail"
	default:
		return "unknown"
	}
}

// Client talks to a Boxoffice-CMS-style site. The zero value is ready to use.
type Client struct {
	Timeout     time.Duration
	ProbePolicy ProbeFailurePolicy
	Now         func() time.Time
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return scraping.DefaultTimeout
	}
	return c.Timeout
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
