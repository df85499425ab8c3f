package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/internal/metrics"
	"sjsage522/eventworker/logger"
	apperrors "sjsage522/eventworker/pkg/errors"
	"sjsage522/eventworker/services/notifier"
	"sjsage522/eventworker/services/publisher"
)

// ErrAllExtractorsFailed is returned after the all-failed alert was sent.
// The generic error notification is skipped for it.
var ErrAllExtractorsFailed = errors.New("all extractors failed")

// Tracker is the sent-record side of the store.
type Tracker interface {
	FilterNew(ctx context.Context, keys []extractor.Key) []extractor.Key
	MarkSent(ctx context.Context, k extractor.Key, title string) error
}

// Result summarizes one run.
type Result struct {
	Extracted int
	Failures  []notifier.Failure
	New       int
	Sent      []extractor.Event
}

// Job runs every extractor once and notifies the new events.
type Job struct {
	extractors []extractor.Extractor
	tracker    Tracker
	notifier   notifier.Notifier
	publisher  publisher.Publisher
	log        *logger.Logger
}

// NewJob creates a job. pub may be nil to disable the stream mirror.
func NewJob(extractors []extractor.Extractor, tracker Tracker, n notifier.Notifier, pub publisher.Publisher) *Job {
	return &Job{
		extractors: extractors,
		tracker:    tracker,
		notifier:   n,
		publisher:  pub,
		log:        logger.ForWorker(),
	}
}

type outcome struct {
	extractor extractor.Extractor
	events    []extractor.Event
	err       error
}

// Run executes one collection run. Any error other than
// ErrAllExtractorsFailed is also reported to the chat, best effort.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log.WithFields(logger.Fields{
		"run_started": start.Unix(),
		"extractors":  len(j.extractors),
	})
	log.Info().Msg("starting event collection run")

	res, label, err := j.run(ctx)

	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.RunsTotal.WithLabelValues(label).Inc()

	if err != nil && !errors.Is(err, ErrAllExtractorsFailed) {
		log.Error().Err(err).Msg("run failed")
		if sendErr := j.notifier.SendError(ctx, err.Error()); sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send error notification")
		}
	}

	log.Info().
		Dur("elapsed", time.Since(start)).
		Str("result", label).
		Msg("event collection run finished")
	return res, err
}

func (j *Job) run(ctx context.Context) (*Result, string, error) {
	outcomes := j.fetchAll(ctx)

	res := &Result{}
	var events []extractor.Event
	for _, o := range outcomes {
		site := o.extractor.GetSiteID()
		if o.err != nil {
			metrics.ExtractorFailures.WithLabelValues(site, errorType(o.err)).Inc()
			logFailure(j.log, site, o.err)
			res.Failures = append(res.Failures, notifier.Failure{
				Extractor: o.extractor.GetName(),
				Message:   o.err.Error(),
			})
			continue
		}
		j.log.Info().Str("site", site).Int("events", len(o.events)).Msg("extractor finished")
		events = append(events, validEvents(j.log, o.events)...)
	}
	res.Extracted = len(events)

	if len(j.extractors) > 0 && len(res.Failures) == len(j.extractors) {
		j.log.Error().Int("failures", len(res.Failures)).Msg("every extractor failed")
		if err := j.notifier.SendAlert(ctx, res.Failures); err != nil {
			j.log.Error().Err(err).Msg("failed to send all-failed alert")
			return res, "all_failed", errors.Join(ErrAllExtractorsFailed, err)
		}
		return res, "all_failed", ErrAllExtractorsFailed
	}

	toSend := j.newEvents(ctx, events)
	res.New = len(toSend)
	metrics.NewEvents.Set(float64(len(toSend)))
	if logger.IsDebugEnabled() {
		for _, ev := range toSend {
			j.log.Debug().Str("site", ev.SiteID).Str("event", ev.EventID).Str("title", ev.Title).Msg("new event")
		}
	}
	if len(toSend) == 0 {
		j.log.Info().Int("events", len(events)).Msg("no new events, skipping notification")
		return res, "no_new", nil
	}

	if err := j.notifier.SendEvents(ctx, toSend); err != nil {
		return res, "error", fmt.Errorf("send notification for %d events: %w", len(toSend), err)
	}
	res.Sent = toSend

	var writeErrs []error
	for _, ev := range toSend {
		if err := j.tracker.MarkSent(ctx, ev.Key(), ev.Title); err != nil {
			writeErrs = append(writeErrs, err)
		}
	}
	if len(writeErrs) > 0 {
		return res, "error", fmt.Errorf("persist sent records: %w", errors.Join(writeErrs...))
	}

	j.mirror(ctx, toSend)

	j.log.Info().Int("sent", len(toSend)).Msg("notified new events")
	return res, "success", nil
}

// fetchAll runs every extractor concurrently and returns the outcomes in
// registration order.
func (j *Job) fetchAll(ctx context.Context) []outcome {
	outcomes := make([]outcome, len(j.extractors))

	var wg sync.WaitGroup
	for i, ex := range j.extractors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := fetchOne(ctx, ex)
			outcomes[i] = outcome{extractor: ex, events: events, err: err}
		}()
	}
	wg.Wait()

	return outcomes
}

// fetchOne turns an extractor panic into an ordinary failure.
func fetchOne(ctx context.Context, ex extractor.Extractor) (events []extractor.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("extractor %s panicked: %v", ex.GetSiteID(), r)
		}
	}()
	return ex.FetchAndParse(ctx)
}

// newEvents returns the events without a sent record, one per key, in
// aggregation order.
func (j *Job) newEvents(ctx context.Context, events []extractor.Event) []extractor.Event {
	if len(events) == 0 {
		return nil
	}

	seen := make(map[extractor.Key]struct{}, len(events))
	keys := make([]extractor.Key, 0, len(events))
	for _, ev := range events {
		k := ev.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	fresh := make(map[extractor.Key]struct{})
	for _, k := range j.tracker.FilterNew(ctx, keys) {
		fresh[k] = struct{}{}
	}

	var toSend []extractor.Event
	for _, ev := range events {
		k := ev.Key()
		if _, ok := fresh[k]; !ok {
			continue
		}
		delete(fresh, k)
		toSend = append(toSend, ev)
	}
	return toSend
}

// mirror publishes delivered events to the stream. Failures are logged only.
func (j *Job) mirror(ctx context.Context, events []extractor.Event) {
	if j.publisher == nil {
		return
	}
	if err := publisher.PublishEvents(ctx, j.publisher, events); err != nil {
		j.log.Warn().Err(err).Msg("failed to mirror events to stream")
	}
	if err := j.publisher.TrimStreams(ctx); err != nil {
		j.log.Warn().Err(err).Msg("failed to trim stream")
	}
}

// validEvents drops events missing a required field.
func validEvents(log *logger.Logger, events []extractor.Event) []extractor.Event {
	valid := events[:0:0]
	for _, ev := range events {
		if ev.EventID == "" || ev.Title == "" || ev.StartDate == "" || ev.EndDate == "" {
			log.Warn().Str("site", ev.SiteID).Str("event", ev.EventID).Msg("dropping incomplete event")
			continue
		}
		valid = append(valid, ev)
	}
	return valid
}

// logFailure logs a still-active rate-limit block at info, transient
// failures at warn and everything else at error.
func logFailure(log *logger.Logger, site string, err error) {
	var ee *apperrors.EventError
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeRateLimit):
		log.Info().Err(err).Str("site", site).Msg("site still rate limited, skipped")
	case errors.As(err, &ee) && ee.IsRetryable():
		log.Warn().Err(err).Str("site", site).Msg("extractor failed, will retry next run")
	default:
		log.Error().Err(err).Str("site", site).Msg("extractor failed")
	}
}

func errorType(err error) string {
	var ee *apperrors.EventError
	if errors.As(err, &ee) {
		return string(ee.Type)
	}
	return "unknown"
}
