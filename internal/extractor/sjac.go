package extractor

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/eventworker/internal/sanitize"
)

const (
	SJACSiteID   = "sjac"
	sjacSiteName = "세종예술의전당"
)

// SJACExtractor reads the ticket-open board. The ticket open date is used as
// both start and end date.
type SJACExtractor struct {
	BaseExtractor
	URL string
}

// NewSJACExtractor creates the table-row extractor. origin resolves relative
// links.
func NewSJACExtractor(pageURL, origin string, opts Options) *SJACExtractor {
	if origin == "" {
		origin = originOf(pageURL)
	}
	return &SJACExtractor{
		BaseExtractor: newBase(SJACSiteID, sjacSiteName, origin, opts, DefaultSJACSelectors),
		URL:           pageURL,
	}
}

// FetchAndParse fetches the board and returns one event per row.
func (e *SJACExtractor) FetchAndParse(ctx context.Context) ([]Event, error) {
	doc, err := e.fetchDocument(ctx, e.URL)
	if err != nil {
		return nil, err
	}
	return e.finish(e.parse(doc)), nil
}

func (e *SJACExtractor) parse(doc *goquery.Document) []Event {
	var events []Event

	sel := e.Selectors
	doc.Find(sel.List).Each(func(i int, row *goquery.Selection) {
		link := row.Find(sel.Link).First()
		href := strings.TrimSpace(link.AttrOr("href", ""))
		id := e.performanceNo(href)
		if id == "" {
			e.skip("missing performanceNo", i)
			return
		}

		// Text() decodes entities, so a literal "<" in a title stays a character
		titleText := sanitize.NormalizeWhitespace(sel.strip(link, "title").Text())
		if titleText == "" {
			e.skip("empty title", i)
			return
		}

		dateCell := sel.strip(row.Find(sel.Date).First(), "date")
		date := displayDate(sanitize.NormalizeWhitespace(dateCell.Text()))
		if date == "" {
			e.skip("empty date", i)
			return
		}

		events = append(events, e.newEvent(id, titleText, date, date, e.ResolveURL(href)))
	})

	return events
}

// performanceNo extracts the performanceNo query parameter of href.
func (e *SJACExtractor) performanceNo(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(e.ResolveURL(href))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("performanceNo"))
}
