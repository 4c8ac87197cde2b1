package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	DefaultChromePath        = "/usr/bin/chromium"
	DefaultReadyTimeout      = 20 * time.Second
	DefaultNavigationTimeout = 60 * time.Second

	// readySelector appears once the showtimes widget has been mounted.
	readySelector = "iframe"
)

// Discoverer lists the JSON endpoints a page requests while it renders.
type Discoverer interface {
	Discover(ctx context.Context, pageURL string) []string
}

// Browser drives a headless Chromium instance. A new browser process is
// started for every call to Discover and is always torn down before it returns.
type Browser struct {
	ChromePath        string
	ReadyTimeout      time.Duration
	NavigationTimeout time.Duration
}

func (b *Browser) Discover(ctx context.Context, pageURL string) []string {
	ctx, span := otel.Tracer("discovery").Start(ctx, "discover")
	defer span.End()

	zap.L().Info("Compiling list of JSON requests", zap.String("url", pageURL))

	endpoints, err := b.observe(ctx, pageURL)
	if err != nil {
		zap.L().Warn("Failed to retrieve JSON requests",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return []string{}
	}

	zap.L().Info("Discovered JSON requests", zap.String("url", pageURL), zap.Int("count", len(endpoints)))
	return endpoints
}

func (b *Browser) observe(ctx context.Context, pageURL string) ([]string, error) {
	chromePath := b.ChromePath
	if chromePath == "" {
		chromePath = DefaultChromePath
	}
	readyTimeout := b.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	navTimeout := b.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = DefaultNavigationTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Headless,
		chromedp.DisableGPU,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(debugf),
		chromedp.WithErrorf(debugf),
	)
	defer chromeCancel()

	// Only the page target is observed; out-of-process (cross-origin) iframes are not.
	rec := &recorder{}
	chromedp.ListenTarget(chromeCtx, rec.listen)

	// The first Run starts the browser process.
	if err := chromedp.Run(chromeCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(chromeCtx, navTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(pageURL)); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", pageURL, err)
	}

	waitCtx, waitCancel := context.WithTimeout(chromeCtx, readyTimeout)
	defer waitCancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(readySelector, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("waiting for %s on %s: %w", readySelector, pageURL, err)
	}

	return rec.endpoints(), nil
}

func debugf(format string, args ...interface{}) {
	zap.L().Debug(fmt.Sprintf(format, args...))
}

// recorder keeps the URLs of outgoing requests in the order the browser reported them.
type recorder struct {
	mu   sync.Mutex
	urls []string
}

func (r *recorder) listen(ev interface{}) {
	e, ok := ev.(*network.EventRequestWillBeSent)
	if !ok || e.Request == nil {
		return
	}
	r.mu.Lock()
	r.urls = append(r.urls, e.Request.URL)
	r.mu.Unlock()
}

func (r *recorder) endpoints() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return FilterJSON(r.urls)
}

// FilterJSON keeps the URLs whose path ends in ".json", preserving order.
func FilterJSON(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		if IsJSONEndpoint(raw) {
			out = append(out, raw)
		}
	}
	return out
}

func IsJSONEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, ".json")
}
