package extractor

import "github.com/PuerkitoBio/goquery"

// ElementRemoval defines elements to remove from a selection before extracting text
type ElementRemoval struct {
	Selector    string // Selector to find elements to remove
	ApplyToPath string // The field this applies to ("title" or "date")
}

// Selectors contains CSS selectors for the elements of a listing page.
// Title, Link and Date are looked up relative to each List match.
type Selectors struct {
	List           string
	Title          string
	Link           string
	Date           string
	RemoveElements []ElementRemoval
}

var (
	// DefaultBloodinfoSelectors: every promotion is a pair of anchors whose
	// direct span child holds either the title or the date range.
	DefaultBloodinfoSelectors = Selectors{
		List:  "a.promtnInfoBtn[data-id]",
		Title: "span",
	}

	DefaultKTCUSelectors = Selectors{
		List:  "div.box-event",
		Title: "strong.tit",
		Date:  "p.date",
	}

	DefaultSJACSelectors = Selectors{
		List: "tbody tr",
		Link: "td.tit a",
		Date: "td.date",
		RemoveElements: []ElementRemoval{
			{Selector: "em.new_mark", ApplyToPath: "title"},
			{Selector: "span", ApplyToPath: "date"},
		},
	}
)

// withDefaults fills every empty selector from def.
func (s Selectors) withDefaults(def Selectors) Selectors {
	if s.List == "" {
		s.List = def.List
	}
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.Link == "" {
		s.Link = def.Link
	}
	if s.Date == "" {
		s.Date = def.Date
	}
	if s.RemoveElements == nil {
		s.RemoveElements = def.RemoveElements
	}
	return s
}

// strip returns a copy of sel without the elements configured for path.
// The document itself is left untouched.
func (s Selectors) strip(sel *goquery.Selection, path string) *goquery.Selection {
	clone := sel.Clone()
	for _, r := range s.RemoveElements {
		if r.ApplyToPath == path {
			clone.Find(r.Selector).Remove()
		}
	}
	return clone
}
