package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/logger"
	apperrors "sjsage522/eventworker/pkg/errors"
)

// SentRecord is stored once per delivered event.
type SentRecord struct {
	SentAt  string `json:"sentAt"`
	Title   string `json:"title"`
	EventID string `json:"eventId"`
}

// SentTracker decides which events were already notified.
type SentTracker struct {
	kv          KVStore
	prefix      string
	ttl         time.Duration
	concurrency int
	now         func() time.Time
	log         *logger.Logger
}

// NewSentTracker creates a tracker writing records under prefix with ttl.
// concurrency bounds the reads in flight during FilterNew.
func NewSentTracker(kv KVStore, prefix string, ttl time.Duration, concurrency int) *SentTracker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SentTracker{
		kv:          kv,
		prefix:      prefix,
		ttl:         ttl,
		concurrency: concurrency,
		now:         time.Now,
		log:         logger.ForStore(),
	}
}

// Key returns the store key of an event.
func (t *SentTracker) Key(k extractor.Key) string {
	return t.prefix + k.SiteID + ":" + k.EventID
}

// IsSent reports whether a record exists for k. Presence alone counts;
// the stored value is not inspected.
func (t *SentTracker) IsSent(ctx context.Context, k extractor.Key) (bool, error) {
	key := t.Key(k)
	_, err := t.kv.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, apperrors.NewStoreRead(key, err)
	}
}

// FilterNew returns the keys without a sent record, in input order.
// Reads run in sequential batches of the configured concurrency. A failed
// read is logged and the key is treated as new.
func (t *SentTracker) FilterNew(ctx context.Context, keys []extractor.Key) []extractor.Key {
	isNew := make([]bool, len(keys))

	for start := 0; start < len(keys); start += t.concurrency {
		end := min(start+t.concurrency, len(keys))

		// a plain Group so one failed read never cancels its siblings
		var (
			g      errgroup.Group
			failed atomic.Int32
		)
		for i := start; i < end; i++ {
			g.Go(func() error {
				sent, err := t.IsSent(ctx, keys[i])
				if err != nil {
					failed.Add(1)
					isNew[i] = true
					return err
				}
				isNew[i] = !sent
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.log.Warn().Err(err).
				Int32("failed", failed.Load()).
				Int("batch_start", start).
				Msg("sent check failed, treating unread events as new")
		}
	}

	fresh := make([]extractor.Key, 0, len(keys))
	for i, k := range keys {
		if isNew[i] {
			fresh = append(fresh, k)
		}
	}
	return fresh
}

// MarkSent writes the sent record of an event.
func (t *SentTracker) MarkSent(ctx context.Context, k extractor.Key, title string) error {
	key := t.Key(k)
	value, err := json.Marshal(SentRecord{
		SentAt:  t.now().UTC().Format(time.RFC3339),
		Title:   title,
		EventID: k.EventID,
	})
	if err != nil {
		return apperrors.NewStoreWrite(key, err)
	}
	if err := t.kv.Put(ctx, key, value, t.ttl); err != nil {
		return apperrors.NewStoreWrite(key, err)
	}
	return nil
}

// Record loads the stored record of k.
func (t *SentTracker) Record(ctx context.Context, k extractor.Key) (*SentRecord, error) {
	key := t.Key(k)
	value, err := t.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.NewStoreRead(key, err)
	}
	var rec SentRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, apperrors.NewStoreRead(key, err)
	}
	return &rec, nil
}

// ListSent returns every stored (site, event) pair sorted by site then id.
func (t *SentTracker) ListSent(ctx context.Context) ([]extractor.Key, error) {
	keys, err := t.kv.List(ctx, t.prefix)
	if err != nil {
		return nil, apperrors.NewStoreRead(t.prefix+"*", err)
	}

	pairs := make([]extractor.Key, 0, len(keys))
	for _, key := range keys {
		site, id, ok := strings.Cut(strings.TrimPrefix(key, t.prefix), ":")
		if !ok || site == "" || id == "" {
			continue
		}
		pairs = append(pairs, extractor.Key{SiteID: site, EventID: id})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].SiteID != pairs[j].SiteID {
			return pairs[i].SiteID < pairs[j].SiteID
		}
		return pairs[i].EventID < pairs[j].EventID
	})
	return pairs, nil
}
