package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sjsage522/eventworker/pkg/errors"
)

func TestFetchDocumentRateLimitGuard(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	opts := testOptions()
	base := newBase("ktcu", "test", server.URL, opts, Selectors{})

	_, err := base.fetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))

	value, err := opts.Cache.Get("ratelimit:ktcu")
	require.NoError(t, err)
	assert.Equal(t, "60", string(value))

	// blocked runs fail fast without a request
	_, err = base.fetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchDocumentStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	base := newBase("sjac", "test", server.URL, testOptions(), Selectors{})
	_, err := base.fetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFetch))
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestFetchDocumentTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	base := newBase("sjac", "test", server.URL, opts, Selectors{})

	_, err := base.fetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFetch))
}

func TestCreateDocumentEmpty(t *testing.T) {
	base := newBase("ktcu", "test", "", testOptions(), Selectors{})
	_, err := base.createDocument(strings.NewReader("   "))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
}

func TestResolveURL(t *testing.T) {
	base := newBase("sjac", "test", "https://www.sjac.or.kr", testOptions(), Selectors{})

	assert.Equal(t, "https://www.sjac.or.kr/base/a?performanceNo=1", base.ResolveURL("/base/a?performanceNo=1"))
	assert.Equal(t, "https://www.sjac.or.kr/base/a", base.ResolveURL("base/a"))
	assert.Equal(t, "https://other.kr/x", base.ResolveURL("https://other.kr/x"))
}

func TestDedupeByEventID(t *testing.T) {
	events := []Event{{EventID: "1", Title: "a"}, {EventID: "2"}, {EventID: "1", Title: "b"}}
	unique, dropped := dedupeByEventID(events)
	assert.Equal(t, 1, dropped)
	require.Len(t, unique, 2)
	assert.Equal(t, "a", unique[0].Title)
}

func TestClearRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(430)
	}))
	defer server.Close()

	opts := testOptions()
	base := newBase("sjac", "test", server.URL, opts, Selectors{})
	_, err := base.fetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	require.Error(t, base.checkRateLimit())

	require.NoError(t, ClearRateLimit(opts.Cache, "sjac"))
	assert.NoError(t, base.checkRateLimit())
}
