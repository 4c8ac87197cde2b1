package boxoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/drewfead/showtimes/internal/core"
	"github.com/drewfead/showtimes/internal/scraping"
)

const catalogMarker = "allMovie"

// Catalog is the movie listing served under the allMovie key.
type Catalog struct {
	Nodes *[]core.MovieNode `json:"nodes"`
}

// findMarker returns the non-null allMovie value, looking under "data" first
// and then at the top level. A body without one yields nil.
func findMarker(body []byte) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	if raw, ok := top["data"]; ok {
		var data map[string]json.RawMessage
		if err := json.Unmarshal(raw, &data); err == nil {
			if marker := data[catalogMarker]; !isNull(marker) {
				return marker, nil
			}
		}
	}
	if marker := top[catalogMarker]; !isNull(marker) {
		return marker, nil
	}
	return nil, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// CatalogMatch is the first candidate endpoint that served a catalog.
type CatalogMatch struct {
	Endpoint string
	Catalog  Catalog
}

// Movies returns the catalog nodes in the order the API listed them.
func (m *CatalogMatch) Movies() []core.MovieNode {
	if m.Catalog.Nodes == nil {
		return nil
	}
	return *m.Catalog.Nodes
}

// MovieIDs returns the id of every node, in node order.
func (m *CatalogMatch) MovieIDs() []string {
	movies := m.Movies()
	ids := make([]string, 0, len(movies))
	for _, movie := range movies {
		ids = append(ids, movie.ID)
	}
	return ids
}

// ParseCatalog extracts the movie catalog from a response body. It returns
// (nil, nil) when the body is JSON without a non-null marker, and an
// ErrShapeMismatch error when the marker is there but is not a usable catalog.
func ParseCatalog(body []byte) (*Catalog, error) {
	marker, err := findMarker(body)
	if err != nil || marker == nil {
		return nil, err
	}

	var cat Catalog
	if err := json.Unmarshal(marker, &cat); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrShapeMismatch, catalogMarker, err)
	}
	if cat.Nodes == nil {
		return nil, fmt.Errorf("%w: %s has no nodes", ErrShapeMismatch, catalogMarker)
	}
	for i, node := range *cat.Nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("%w: %s node %d has no id", ErrShapeMismatch, catalogMarker, i)
		}
	}
	return &cat, nil
}

// ResolveCatalog probes endpoints in order and stops at the first one whose
// body carries a non-null marker. Later endpoints are never requested.
func (c *Client) ResolveCatalog(ctx context.Context, endpoints []string) (*CatalogMatch, error) {
	ctx, span := otel.Tracer("boxoffice").Start(ctx, "resolve_catalog")
	defer span.End()

	for _, endpoint := range endpoints {
		body, err := scraping.Do(ctx, scraping.Request{
			Method:  http.MethodGet,
			URL:     endpoint,
			Headers: map[string]string{"Accept": "application/json"},
			Timeout: c.timeout(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if c.ProbePolicy == FailOnProbeError {
				return nil, fmt.Errorf("probing %s: %w", endpoint, err)
			}
			zap.L().Warn("Catalog probe failed", zap.String("endpoint", endpoint), zap.Error(err))
			continue
		}

		cat, err := ParseCatalog(body)
		if errors.Is(err, ErrShapeMismatch) {
			// The marker makes this endpoint final, usable or not.
			return nil, fmt.Errorf("catalog at %s: %w", endpoint, err)
		}
		if err != nil {
			zap.L().Warn("Catalog probe returned unusable body", zap.String("endpoint", endpoint), zap.Error(err))
			continue
		}
		if cat == nil {
			zap.L().Debug("No catalog marker", zap.String("endpoint", endpoint))
			continue
		}

		zap.L().Info("Found movie catalog",
			zap.String("endpoint", endpoint),
			zap.Int("movies", len(*cat.Nodes)),
		)
		return &CatalogMatch{Endpoint: endpoint, Catalog: *cat}, nil
	}

	return nil, fmt.Errorf("%w (probed %d endpoints)", ErrCatalogNotFound, len(endpoints))
}
