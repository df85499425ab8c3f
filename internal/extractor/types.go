package extractor

import (
	"context"
	"time"
)

// Event is one promotional listing scraped from a site.
// Dates are formatted YYYY.MM.DD.
type Event struct {
	SiteID    string `json:"siteId"`
	SiteName  string `json:"siteName"`
	EventID   string `json:"eventId"`
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	SourceURL string `json:"sourceUrl"`
}

// Key identifies an event across runs.
func (e Event) Key() Key {
	return Key{SiteID: e.SiteID, EventID: e.EventID}
}

// Key is the (site, event) pair used for de-duplication.
type Key struct {
	SiteID  string
	EventID string
}

// Extractor interface defines the contract for all site extractors
type Extractor interface {
	// FetchAndParse retrieves the current listing of a site
	FetchAndParse(ctx context.Context) ([]Event, error)

	// GetName returns the human-readable site name
	GetName() string

	// GetSiteID returns the stable site identifier
	GetSiteID() string
}

// Clock returns the current time. Extractors that compare against "today"
// take one so tests can pin the date.
type Clock func() time.Time
