package extractor

import (
	"context"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/eventworker/internal/sanitize"
)

const (
	KTCUSiteID   = "ktcu"
	ktcuSiteName = "한국교직원공제회"
)

var (
	ktcuRangePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})(?:\([^)]*\))?\s*~\s*(\d{4})-(\d{2})-(\d{2})(?:\([^)]*\))?`)
	ktcuOnclickID    = regexp.MustCompile(`fn_viewEvent\('([^']+)'\)`)
)

// KTCUExtractor reads the event boxes of the KTCU event page and drops
// events that have already ended.
type KTCUExtractor struct {
	BaseExtractor
	URL string
	// UseTitleHash derives ids from the title instead of the onclick id,
	// which the site regenerates between renders.
	UseTitleHash bool
	Now          Clock
	Location     *time.Location
}

// NewKTCUExtractor creates the event-box extractor.
func NewKTCUExtractor(pageURL string, useTitleHash bool, now Clock, loc *time.Location, opts Options) *KTCUExtractor {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &KTCUExtractor{
		BaseExtractor: newBase(KTCUSiteID, ktcuSiteName, originOf(pageURL), opts, DefaultKTCUSelectors),
		URL:           pageURL,
		UseTitleHash:  useTitleHash,
		Now:           now,
		Location:      loc,
	}
}

// FetchAndParse fetches the event page and returns ongoing events.
func (e *KTCUExtractor) FetchAndParse(ctx context.Context) ([]Event, error) {
	doc, err := e.fetchDocument(ctx, e.URL)
	if err != nil {
		return nil, err
	}
	return e.finish(e.parse(doc)), nil
}

func (e *KTCUExtractor) parse(doc *goquery.Document) []Event {
	var events []Event
	now := e.Now()

	sel := e.Selectors
	doc.Find(sel.List).Each(func(i int, box *goquery.Selection) {
		titleSel := box.Find(sel.Title).First()
		if titleSel.Length() == 0 {
			e.skip("missing title element", i)
			return
		}
		clone := sel.strip(titleSel, "title")
		clone.Find("br").ReplaceWithHtml(" ")
		title := sanitize.NormalizeText(clone.Text())
		if title == "" {
			e.skip("empty title", i)
			return
		}

		dateText := sanitize.NormalizeWhitespace(sel.strip(box.Find(sel.Date).First(), "date").Text())
		m := ktcuRangePattern.FindStringSubmatch(dateText)
		if m == nil {
			e.skip("unrecognized date range", i)
			return
		}
		start := formatDate(m[1], m[2], m[3])
		end := formatDate(m[4], m[5], m[6])

		var id string
		if e.UseTitleHash {
			id = sanitize.TitleHash(title)
		} else {
			id = onclickID(box)
			if id == "" {
				e.skip("missing onclick id", i)
				return
			}
		}

		if endedBefore(end, now, e.Location) {
			e.log.Debug().Str("title", title).Str("end", end).Msg("event already ended")
			return
		}

		events = append(events, e.newEvent(id, title, start, end, e.URL+"#"+id))
	})

	return events
}

// onclickID finds the fn_viewEvent id on the box or any descendant.
func onclickID(box *goquery.Selection) string {
	candidates := box.Find("[onclick]").AddSelection(box.Filter("[onclick]"))
	var id string
	candidates.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := ktcuOnclickID.FindStringSubmatch(s.AttrOr("onclick", "")); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	return id
}
