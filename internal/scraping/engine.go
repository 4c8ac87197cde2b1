package scraping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got status code %d from %s", e.StatusCode, e.URL)
}

// IsStatusError reports whether err carries a non-2xx response.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Request describes a single JSON API call.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
	Timeout time.Duration
}

// Do performs one request and returns the raw response body. It never retries.
func Do(ctx context.Context, req Request) ([]byte, error) {
	ctx, span := otel.Tracer("scraping").Start(ctx, "do")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL),
	)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := colly.NewCollector(
		colly.MaxBodySize(0),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(timeout)

	var (
		body   []byte
		status int
	)
	c.OnRequest(InjectRequestHeaders(req.Headers))
	c.OnRequest(AbortOnDone(ctx))
	c.OnResponse(LogResponses(c))
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	var err error
	switch req.Method {
	case "", http.MethodGet:
		err = c.Visit(req.URL)
	case http.MethodPost:
		err = c.PostRaw(req.URL, req.Body)
	default:
		return nil, fmt.Errorf("unsupported method %s", req.Method)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if status != 0 && (status < 200 || status > 299) {
		return nil, &StatusError{URL: req.URL, StatusCode: status}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	return body, nil
}

func LogResponses(c *colly.Collector) func(r *colly.Response) {
	return func(r *colly.Response) {
		cookies := c.Cookies(r.Request.URL.String())
		zap.L().Debug("response",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Int("bytes", len(r.Body)),
			zap.Any("cookies", cookies),
		)
	}
}

func InjectRequestHeaders(headers map[string]string) func(r *colly.Request) {
	return func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	}
}

// AbortOnDone drops the request if ctx is already finished when it is about to go out.
func AbortOnDone(ctx context.Context) func(r *colly.Request) {
	return func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	}
}
