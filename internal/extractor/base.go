package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/eventworker/helpers"
	"sjsage522/eventworker/internal/metrics"
	"sjsage522/eventworker/logger"
	apperrors "sjsage522/eventworker/pkg/errors"
	"sjsage522/eventworker/services/cache"
)

// Options carries the shared runtime settings of every extractor.
type Options struct {
	Cache     cache.CacheService
	BlockTime time.Duration
	Timeout   time.Duration
	// Selectors overrides the site's default page selectors field by field.
	Selectors Selectors
}

// BaseExtractor provides common functionality for all extractors
type BaseExtractor struct {
	SiteID    string
	SiteName  string
	Origin    string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Timeout   time.Duration
	Selectors Selectors
	log       *logger.Logger
}

func newBase(siteID, siteName, origin string, opts Options, defaults Selectors) BaseExtractor {
	return BaseExtractor{
		SiteID:    siteID,
		SiteName:  siteName,
		Origin:    origin,
		CacheSvc:  opts.Cache,
		BlockTime: opts.BlockTime,
		Timeout:   opts.Timeout,
		Selectors: opts.Selectors.withDefaults(defaults),
		log:       logger.ForExtractor(siteID),
	}
}

// GetName returns the site's display name
func (b *BaseExtractor) GetName() string {
	return b.SiteName
}

// GetSiteID returns the site identifier
func (b *BaseExtractor) GetSiteID() string {
	return b.SiteID
}

func (b *BaseExtractor) rateLimitKey() string {
	return rateLimitKey(b.SiteID)
}

func rateLimitKey(siteID string) string {
	return "ratelimit:" + siteID
}

// ClearRateLimit lifts the block of siteID before it expires.
func ClearRateLimit(c cache.CacheService, siteID string) error {
	return c.Delete(rateLimitKey(siteID))
}

// checkRateLimit fails fast while a previous 429 block is still cached.
// Cache outages never block a fetch.
func (b *BaseExtractor) checkRateLimit() error {
	if b.CacheSvc == nil || b.BlockTime <= 0 {
		return nil
	}
	if _, err := b.CacheSvc.Get(b.rateLimitKey()); err == nil {
		return apperrors.NewRateLimit(b.SiteID, b.BlockTime)
	} else if !errors.Is(err, cache.ErrMiss) {
		b.log.Debug().Err(err).Msg("rate limit cache unavailable")
	}
	return nil
}

func (b *BaseExtractor) markRateLimited() {
	if b.CacheSvc == nil || b.BlockTime <= 0 {
		return
	}
	seconds := strconv.Itoa(int(b.BlockTime / time.Second))
	if err := b.CacheSvc.Set(b.rateLimitKey(), []byte(seconds), b.BlockTime); err != nil {
		b.log.Warn().Err(err).Msg("failed to store rate limit block")
		return
	}
	b.log.Warn().Dur("block", b.BlockTime).Msg("site rate limited us, blocking further requests")
}

// withTimeout bounds one request by the configured timeout.
func (b *BaseExtractor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.Timeout)
}

// fetchDocument fetches pageURL behind the rate-limit guard and parses it.
func (b *BaseExtractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := b.checkRateLimit(); err != nil {
		return nil, err
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	body, err := helpers.FetchWithRandomHeaders(ctx, pageURL)
	if err != nil {
		return nil, b.fetchError(pageURL, err)
	}
	return b.createDocument(body)
}

// fetchError maps a transport error to a typed extractor error.
func (b *BaseExtractor) fetchError(pageURL string, err error) error {
	if errors.Is(err, helpers.ErrRateLimited) {
		b.markRateLimited()
		return apperrors.NewRateLimit(b.SiteID, b.BlockTime)
	}
	var statusErr *helpers.StatusError
	if errors.As(err, &statusErr) {
		return apperrors.NewFetch(b.SiteID, fmt.Sprintf("HTTP %d from %s", statusErr.Code, pageURL), err)
	}
	return apperrors.NewFetch(b.SiteID, "request to "+pageURL+" failed", err)
}

// createDocument creates a goquery document from a reader. A page without
// any text is treated as a structural failure.
func (b *BaseExtractor) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, apperrors.NewParse(b.SiteID, "HTML parse failed", err)
	}
	if strings.TrimSpace(doc.Text()) == "" {
		return nil, apperrors.NewParse(b.SiteID, "empty document", nil)
	}
	return doc, nil
}

// ResolveURL resolves href against the site origin.
func (b *BaseExtractor) ResolveURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	base, err := url.Parse(b.Origin)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// newEvent fills in the site fields.
func (b *BaseExtractor) newEvent(eventID, title, start, end, sourceURL string) Event {
	return Event{
		SiteID:    b.SiteID,
		SiteName:  b.SiteName,
		EventID:   eventID,
		Title:     title,
		StartDate: start,
		EndDate:   end,
		SourceURL: sourceURL,
	}
}

// skip records a malformed entry that was left out.
func (b *BaseExtractor) skip(reason string, index int) {
	metrics.ItemsSkipped.WithLabelValues(b.SiteID).Inc()
	b.log.Debug().Str("reason", reason).Int("index", index).Msg("skipping entry")
}

// finish logs and counts a successful extraction.
func (b *BaseExtractor) finish(events []Event) []Event {
	metrics.EventsExtracted.WithLabelValues(b.SiteID).Add(float64(len(events)))
	b.log.Info().Int("events", len(events)).Msg("extraction finished")
	return events
}
