package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"sjsage522/eventworker/helpers"
	"sjsage522/eventworker/internal/sanitize"
	apperrors "sjsage522/eventworker/pkg/errors"
)

const (
	LifeSJESiteID   = "life-sje"
	lifeSJESiteName = "세종특별자치시교육청 평생교육원"

	lifeSJEDetailPath = "/community/events/program-detail/"
	lifeSJEPageSize   = "60"
	lifeSJEStatusOpen = "1and2"
)

// LifeSJESettings configures the program list API.
type LifeSJESettings struct {
	APIURL        string
	BaseURL       string
	ManageCode    string
	MajorCategory string
}

// LifeSJEExtractor reads the program list JSON API.
type LifeSJEExtractor struct {
	BaseExtractor
	Settings LifeSJESettings
	client   *resty.Client
}

// NewLifeSJEExtractor creates the structured API extractor.
func NewLifeSJEExtractor(settings LifeSJESettings, opts Options) *LifeSJEExtractor {
	client := resty.New().
		SetHeader("User-Agent", helpers.RandomUserAgent()).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("Referer", settings.BaseURL+"/")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &LifeSJEExtractor{
		BaseExtractor: newBase(LifeSJESiteID, lifeSJESiteName, settings.BaseURL, opts, Selectors{}),
		Settings:      settings,
		client:        client,
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type lifeSJEProgram struct {
	RecKey     flexString `json:"REC_KEY"`
	Title      string     `json:"PROGRAM_TITLE"`
	Status     flexString `json:"PROGRAM_STATUS"`
	ApplyStart string     `json:"PROGRAM_APPLY_START_DATE"`
	ApplyEnd   string     `json:"PROGRAM_APPLY_END_DATE"`
}

type lifeSJEResponse struct {
	Result string           `json:"RESULT"`
	List   []lifeSJEProgram `json:"RESULT_LIST"`
}

func (e *LifeSJEExtractor) form() map[string]string {
	form := map[string]string{
		"manage_code":    e.Settings.ManageCode,
		"search_type":    "all",
		"program_status": lifeSJEStatusOpen,
		"page_no":        "1",
		"display":        lifeSJEPageSize,
	}
	if e.Settings.MajorCategory != "" {
		form["program_major_category"] = e.Settings.MajorCategory
	}
	return form
}

// FetchAndParse posts the list query and returns programs open for
// application.
func (e *LifeSJEExtractor) FetchAndParse(ctx context.Context) ([]Event, error) {
	if err := e.checkRateLimit(); err != nil {
		return nil, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	resp, err := e.client.R().
		SetContext(ctx).
		SetFormData(e.form()).
		Post(e.Settings.APIURL)
	if err != nil {
		return nil, apperrors.NewFetch(e.SiteID, "request to "+e.Settings.APIURL+" failed", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests || code == 430:
		e.markRateLimited()
		return nil, apperrors.NewRateLimit(e.SiteID, e.BlockTime)
	case !resp.IsSuccess():
		return nil, apperrors.NewFetch(e.SiteID, fmt.Sprintf("HTTP %d from %s", code, e.Settings.APIURL), nil)
	}

	events, err := e.parse(resp.Body())
	if err != nil {
		return nil, err
	}
	return e.finish(events), nil
}

func (e *LifeSJEExtractor) parse(body []byte) ([]Event, error) {
	var payload lifeSJEResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewParse(e.SiteID, "invalid JSON response", err)
	}
	if payload.Result != "SUCCESS" {
		return nil, apperrors.NewParse(e.SiteID, fmt.Sprintf("unexpected RESULT %q", payload.Result), nil)
	}

	var events []Event
	for i, program := range payload.List {
		status := strings.TrimSpace(string(program.Status))
		if status != "1" && status != "2" {
			continue
		}

		id := strings.TrimSpace(string(program.RecKey))
		title := sanitize.NormalizeText(program.Title)
		start, okStart := normalizeDate(program.ApplyStart)
		end, okEnd := normalizeDate(program.ApplyEnd)
		if id == "" || title == "" || !okStart || !okEnd {
			e.skip("incomplete program", i)
			continue
		}

		sourceURL := e.Settings.BaseURL + lifeSJEDetailPath + url.PathEscape(id)
		events = append(events, e.newEvent(id, title, start, end, sourceURL))
	}
	return events, nil
}
