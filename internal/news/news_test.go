package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/journal"
	"scenario-advisor/internal/types"
)

type stubSource struct {
	items []types.NewsItem
	err   error
	delay time.Duration
	calls int32
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context, keywords string) ([]types.NewsItem, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.items, s.err
}

func nItems(n int) []types.NewsItem {
	out := make([]types.NewsItem, n)
	for i := range out {
		out[i] = types.NewsItem{Title: fmt.Sprintf("headline %d", i+1), Link: fmt.Sprintf("https://example.com/%d", i+1)}
	}
	return out
}

var scenario = types.Scenario{ID: "sc-1", Description: "rates fall", Symbol: "005930", Keywords: "interest rate cut"}

func TestCheckNewsRecordsOneEntry(t *testing.T) {
	log := journal.NewNewsLog(nil)
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	c := NewChecker(&stubSource{items: nItems(3)}, log, clock.NewFake(now), time.Second, 3)

	entry, err := c.CheckNews(context.Background(), scenario)
	require.NoError(t, err)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "sc-1", entries[0].ScenarioID)
	assert.Len(t, entries[0].Items, 3)
	assert.Empty(t, entries[0].Error)
	assert.Equal(t, now, entries[0].FetchedAt)
	assert.Equal(t, entry, entries[0])
}

func TestCheckNewsTruncatesToMaxItems(t *testing.T) {
	log := journal.NewNewsLog(nil)
	c := NewChecker(&stubSource{items: nItems(7)}, log, clock.System{}, time.Second, 3)

	entry, err := c.CheckNews(context.Background(), scenario)
	require.NoError(t, err)
	assert.Len(t, entry.Items, 3)
	assert.Equal(t, "headline 1", entry.Items[0].Title)
}

func TestCheckNewsFailureIsRecordedAndExternal(t *testing.T) {
	log := journal.NewNewsLog(nil)
	c := NewChecker(&stubSource{err: errors.New("HTTP 500")}, log, clock.System{}, time.Second, 3)

	entry, err := c.CheckNews(context.Background(), scenario)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.External))
	assert.Contains(t, err.Error(), "HTTP 500")

	require.Equal(t, 1, log.Len())
	assert.Empty(t, entry.Items)
	assert.Contains(t, log.Entries()[0].Error, "HTTP 500")
}

func TestCheckNewsTimeoutIsRecordedLikeAnyFailure(t *testing.T) {
	log := journal.NewNewsLog(nil)
	c := NewChecker(&stubSource{items: nItems(3), delay: time.Second}, log, clock.System{}, 20*time.Millisecond, 3)

	_, err := c.CheckNews(context.Background(), scenario)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.External))
	require.Equal(t, 1, log.Len())
	assert.Contains(t, log.Entries()[0].Error, "deadline exceeded")
}

func TestTriggerDefaultsToManual(t *testing.T) {
	assert.Equal(t, TriggerManual, triggerFrom(context.Background()))
	assert.Equal(t, TriggerScheduled, triggerFrom(WithTrigger(context.Background(), TriggerScheduled)))
}

func TestAPISourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "interest rate cut", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Rates cut","url":"https://a.example/1"},
			{"title":"  ","url":"https://a.example/blank"},
			{"title":"Banks rally","url":"https://a.example/2"},
			{"title":"Bonds up","url":"https://a.example/3"},
			{"title":"Extra","url":"https://a.example/4"}]}`))
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, "secret", "en", 3, time.Second)
	items, err := src.Fetch(context.Background(), "interest rate cut")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, types.NewsItem{Title: "Rates cut", Link: "https://a.example/1"}, items[0])
	assert.Equal(t, "Bonds up", items[2].Title)
}

func TestAPISourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad-json" {
			_, _ = w.Write([]byte(`<html>`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, "wrong", "", 3, time.Second)
	_, err := src.Fetch(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = src.Fetch(context.Background(), "bad-json")
	assert.Error(t, err)
}

const searchPage = `<html><body>
<article><h3><a href="./articles/abc?hl=en">Rate cut expected</a></h3></article>
<article><h3><a href="https://other.example/story">Markets rally</a></h3></article>
<article><h3><a href="">No link</a></h3></article>
<article><h4><a href="/articles/def">Bond yields slide</a></h4></article>
<article><h3><a href="./articles/ghi">Fourth story</a></h3></article>
</body></html>`

func TestScrapeSourceFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.RawQuery
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	src := NewScrapeSource(srv.URL, "en", "US", 3, time.Second)
	items, err := src.Fetch(context.Background(), "rate cut")
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, types.NewsItem{Title: "Rate cut expected", Link: srv.URL + "/articles/abc?hl=en"}, items[0])
	assert.Equal(t, "https://other.example/story", items[1].Link)
	assert.Equal(t, srv.URL+"/articles/def", items[2].Link)
	assert.Contains(t, gotQuery, "q=rate+cut")
	assert.Contains(t, gotQuery, "ceid=US:en")
}

func TestScrapeSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewScrapeSource(srv.URL, "en", "US", 3, time.Second)
	_, err := src.Fetch(context.Background(), "rate cut")
	assert.Error(t, err)
}

func TestScrapeSourceRepeatedFetch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	src := NewScrapeSource(srv.URL, "en", "US", 3, time.Second)
	for i := 0; i < 2; i++ {
		items, err := src.Fetch(context.Background(), "same keywords")
		require.NoError(t, err)
		assert.Len(t, items, 3)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGuardedOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubSource{err: errors.New("down")}
	g := NewGuarded(inner, 2, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(context.Background(), "kw")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.Fetch(context.Background(), "kw")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestGuardedPassesThrough(t *testing.T) {
	g := NewGuarded(&stubSource{items: nItems(2)}, 3, time.Minute)
	items, err := g.Fetch(context.Background(), "kw")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "stub", g.Name())
}
