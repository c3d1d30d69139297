package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ScrapeSource reads the Google News search page. Used when no news API key is configured.
type ScrapeSource struct {
	baseURL  string
	language string
	country  string
	maxItems int
	timeout  time.Duration
}

// NewScrapeSource creates a scraper rooted at baseURL (normally https://news.google.com).
func NewScrapeSource(baseURL, language, country string, maxItems int, timeout time.Duration) *ScrapeSource {
	return &ScrapeSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		country:  country,
		maxItems: maxItems,
		timeout:  timeout,
	}
}

func (s *ScrapeSource) Name() string { return "googlenews" }

func (s *ScrapeSource) searchURL(keywords string) string {
	return fmt.Sprintf("%s/search?q=%s&hl=%s-%s&gl=%s&ceid=%s:%s",
		s.baseURL, url.QueryEscape(keywords),
		s.language, s.country, s.country, s.country, s.language)
}

// Fetch scrapes up to maxItems headline links for keywords.
func (s *ScrapeSource) Fetch(ctx context.Context, keywords string) ([]types.NewsItem, error) {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ctx.Err()
		}
		if timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}

	// a fresh collector per call; colly refuses to revisit a URL it has already seen
	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(s.baseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(timeout)

	var (
		mu       sync.Mutex
		items    []types.NewsItem
		visitErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnHTML("article h3 a, article h4 a", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if len(items) >= s.maxItems {
			return
		}
		if item, ok := s.itemFrom(e.DOM); ok {
			items = append(items, item)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", s.Name(), "url", r.Request.URL.String(), "status", r.StatusCode)
		mu.Lock()
		visitErr = err
		mu.Unlock()
	})

	target := s.searchURL(keywords)
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", target, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", target, visitErr)
	}

	logger.Debug(ctx, "News scraping completed", "source", s.Name(), "articles", len(items))
	return items, nil
}

// itemFrom turns an anchor into a news item, resolving Google's relative
// "./articles/..." links against the base URL.
func (s *ScrapeSource) itemFrom(a *goquery.Selection) (types.NewsItem, bool) {
	title := strings.TrimSpace(a.Text())
	link, ok := a.Attr("href")
	if title == "" || !ok || link == "" {
		return types.NewsItem{}, false
	}

	switch {
	case strings.HasPrefix(link, "./"):
		link = s.baseURL + link[1:]
	case strings.HasPrefix(link, "/"):
		link = s.baseURL + link
	}
	return types.NewsItem{Title: title, Link: link}, true
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
