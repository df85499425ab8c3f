package extractor

import (
	"sjsage522/eventworker/config"
	"sjsage522/eventworker/logger"
	"sjsage522/eventworker/services/cache"
)

// CreateExtractors builds every registered site extractor from the
// configuration, in notification order.
func CreateExtractors(cfg *config.Config, cacheSvc cache.CacheService, now Clock) ([]Extractor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := Options{
		Cache:     cacheSvc,
		BlockTime: cfg.RateLimitBlock,
		Timeout:   cfg.HTTPTimeout,
	}
	withSelectors := func(s config.SiteSelectors) Options {
		o := opts
		o.Selectors = selectorsFrom(s)
		return o
	}

	extractors := []Extractor{
		NewBloodinfoExtractor(cfg.BloodinfoURL, cfg.ActiveBloodinfoCategories(), withSelectors(cfg.BloodinfoSelectors)),
		NewKTCUExtractor(cfg.KTCUURL, cfg.KTCUUseTitleHash, now, loc, withSelectors(cfg.KTCUSelectors)),
		NewSJACExtractor(cfg.SJACURL, cfg.SJACOrigin, withSelectors(cfg.SJACSelectors)),
		NewLifeSJEExtractor(LifeSJESettings{
			APIURL:        cfg.LifeSJEAPIURL,
			BaseURL:       cfg.LifeSJEBaseURL,
			ManageCode:    cfg.LifeSJEManageCode,
			MajorCategory: cfg.LifeSJEMajorCategory,
		}, opts),
	}

	for i, ex := range extractors {
		logger.Default.Debug().
			Int("index", i).
			Str("site", ex.GetSiteID()).
			Str("name", ex.GetName()).
			Msg("registered extractor")
	}

	return extractors, nil
}

// selectorsFrom converts configured selectors. An empty configuration keeps
// the site defaults.
func selectorsFrom(s config.SiteSelectors) Selectors {
	sel := Selectors{
		List:  s.List,
		Title: s.Title,
		Link:  s.Link,
		Date:  s.Date,
	}
	for _, r := range s.RemoveFromTitle {
		sel.RemoveElements = append(sel.RemoveElements, ElementRemoval{Selector: r, ApplyToPath: "title"})
	}
	for _, r := range s.RemoveFromDate {
		sel.RemoveElements = append(sel.RemoveElements, ElementRemoval{Selector: r, ApplyToPath: "date"})
	}
	return sel
}
