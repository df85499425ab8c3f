package extractor

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/eventworker/internal/metrics"
	"sjsage522/eventworker/internal/sanitize"
)

const (
	BloodinfoSiteID   = "bloodinfo"
	bloodinfoSiteName = "혈액정보"
)

// BloodinfoExtractor reads the promotion list of every configured category.
// Each promotion appears as two anchors sharing a data-id: the first holds
// the title and a later one holds the date range.
type BloodinfoExtractor struct {
	BaseExtractor
	ListURL    string
	Categories []int
}

// NewBloodinfoExtractor creates an extractor for the given categories.
func NewBloodinfoExtractor(listURL string, categories []int, opts Options) *BloodinfoExtractor {
	return &BloodinfoExtractor{
		BaseExtractor: newBase(BloodinfoSiteID, bloodinfoSiteName, originOf(listURL), opts, DefaultBloodinfoSelectors),
		ListURL:       listURL,
		Categories:    categories,
	}
}

func (e *BloodinfoExtractor) categoryURL(mi int) string {
	return e.ListURL + "?type=A&mi=" + strconv.Itoa(mi)
}

// FetchAndParse fetches each category in order. A failing category is
// logged and skipped; the extractor only fails when all of them do.
func (e *BloodinfoExtractor) FetchAndParse(ctx context.Context) ([]Event, error) {
	var (
		all  []Event
		errs []error
	)

	for _, mi := range e.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := e.fetchDocument(ctx, e.categoryURL(mi))
		if err != nil {
			e.log.Warn().Err(err).Int("category", mi).Msg("category fetch failed, continuing")
			errs = append(errs, err)
			continue
		}
		all = append(all, e.parseCategory(doc, mi)...)
	}

	if len(e.Categories) > 0 && len(errs) == len(e.Categories) {
		return nil, errors.Join(errs...)
	}

	unique, dropped := dedupeByEventID(all)
	if dropped > 0 {
		metrics.DuplicatesDropped.WithLabelValues(e.SiteID).Add(float64(dropped))
		e.log.Info().Int("duplicates", dropped).Msg("removed duplicate events across categories")
	}
	return e.finish(unique), nil
}

// parseCategory pairs title anchors with their date-range anchors.
func (e *BloodinfoExtractor) parseCategory(doc *goquery.Document, mi int) []Event {
	var events []Event
	processed := make(map[string]struct{})
	sourceURL := e.categoryURL(mi)

	links := doc.Find(e.Selectors.List)
	links.Each(func(i int, link *goquery.Selection) {
		id := strings.TrimSpace(link.AttrOr("data-id", ""))
		if id == "" {
			e.skip("missing data-id", i)
			return
		}
		if _, done := processed[id]; done {
			return
		}

		title := e.spanText(link)
		// range anchors are picked up by their title anchor
		if strings.Contains(title, "~") {
			return
		}
		if title == "" {
			e.skip("empty title", i)
			return
		}

		var start, end string
		links.Slice(i+1, links.Length()).EachWithBreak(func(_ int, next *goquery.Selection) bool {
			if strings.TrimSpace(next.AttrOr("data-id", "")) != id {
				return true
			}
			text := e.spanText(next)
			if !strings.Contains(text, "~") {
				return true
			}
			start, end = splitRange(text)
			return false
		})
		if start == "" || end == "" {
			e.skip("missing date range", i)
			return
		}

		processed[id] = struct{}{}
		events = append(events, e.newEvent(id, title, start, end, sourceURL))
	})

	return events
}

// spanText reads the direct Title children of an anchor.
func (e *BloodinfoExtractor) spanText(link *goquery.Selection) string {
	return sanitize.NormalizeWhitespace(e.Selectors.strip(link.ChildrenFiltered(e.Selectors.Title), "title").Text())
}

// splitRange splits "A ~ B" and normalizes both sides when they are dates.
func splitRange(text string) (string, string) {
	parts := strings.SplitN(text, "~", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return displayDate(parts[0]), displayDate(parts[1])
}

func displayDate(s string) string {
	s = strings.TrimSpace(s)
	if d, ok := normalizeDate(s); ok {
		return d
	}
	return s
}

// dedupeByEventID keeps the first event per id.
func dedupeByEventID(events []Event) ([]Event, int) {
	seen := make(map[string]struct{}, len(events))
	unique := make([]Event, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.EventID]; ok {
			continue
		}
		seen[ev.EventID] = struct{}{}
		unique = append(unique, ev)
	}
	return unique, len(events) - len(unique)
}

// originOf returns scheme://host of rawURL.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
