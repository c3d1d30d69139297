package news

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scenario-advisor/internal/api"
	"scenario-advisor/internal/types"
)

// APISource fetches headlines from a NewsAPI-compatible JSON endpoint.
type APISource struct {
	client   *api.Client
	language string
	maxItems int
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"articles"`
}

// NewAPISource creates an API-backed source. The key is sent in X-Api-Key.
func NewAPISource(baseURL, apiKey, language string, maxItems int, timeout time.Duration) *APISource {
	return &APISource{
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(baseURL, "/")),
			api.WithTimeout(timeout),
			api.WithHeader("X-Api-Key", apiKey),
			api.WithHeader("Accept", "application/json"),
			api.WithLogging(true),
		),
		language: language,
		maxItems: maxItems,
	}
}

func (s *APISource) Name() string { return "newsapi" }

func (s *APISource) Fetch(ctx context.Context, keywords string) ([]types.NewsItem, error) {
	q := url.Values{}
	q.Set("q", keywords)
	q.Set("pageSize", strconv.Itoa(s.maxItems))
	q.Set("sortBy", "publishedAt")
	if s.language != "" {
		q.Set("language", s.language)
	}

	resp, err := s.client.GET(ctx, "/v2/everything?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("news api request failed: %w", err)
	}

	var body everythingResponse
	if err := resp.ParseJSON(&body); err != nil {
		return nil, err
	}
	if body.Status != "" && body.Status != "ok" {
		return nil, fmt.Errorf("news api returned %s: %s", body.Code, body.Message)
	}

	items := make([]types.NewsItem, 0, len(body.Articles))
	for _, a := range body.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || a.URL == "" {
			continue
		}
		items = append(items, types.NewsItem{Title: title, Link: a.URL})
		if len(items) == s.maxItems {
			break
		}
	}
	return items, nil
}
