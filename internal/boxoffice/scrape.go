package boxoffice

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/drewfead/showtimes/internal/core"
	"github.com/drewfead/showtimes/internal/discovery"
)

// Scraper runs the discovery, catalog and schedule stages for one theater.
type Scraper struct {
	Theater    core.TheaterConfig
	Discoverer discovery.Discoverer
	Client     *Client
}

func (s *Scraper) client() *Client {
	if s.Client == nil {
		return &Client{}
	}
	return s.Client
}

// Movies resolves the movie catalog without requesting the schedule.
func (s *Scraper) Movies(ctx context.Context) (*CatalogMatch, error) {
	ctx, span := otel.Tracer("boxoffice.scraper").Start(ctx, "movies")
	defer span.End()

	endpoints := s.Discoverer.Discover(ctx, s.Theater.ShowtimesURL)
	match, err := s.client().ResolveCatalog(ctx, endpoints)
	if err != nil {
		return nil, fmt.Errorf("resolving catalog for %s: %w", s.Theater.ShowtimesURL, err)
	}
	return match, nil
}

// Showtimes runs the full pipeline.
func (s *Scraper) Showtimes(ctx context.Context) (*core.Result, error) {
	ctx, span := otel.Tracer("boxoffice.scraper").Start(ctx, "showtimes")
	defer span.End()

	match, err := s.Movies(ctx)
	if err != nil {
		return nil, err
	}

	schedule, err := s.client().FetchSchedule(ctx, s.Theater, match.MovieIDs())
	if err != nil {
		return nil, err
	}

	return &core.Result{
		CatalogEndpoint: match.Endpoint,
		Movies:          match.Movies(),
		Schedule:        schedule,
	}, nil
}
