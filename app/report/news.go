package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const DefaultNewsFeedURL = "https://news.google.com/rss/search?q=%s&hl=ko&gl=KR&ceid=KR:ko"

// maxSummaryRunes bounds the text each article contributes to the prompt.
const maxSummaryRunes = 600

type Article struct {
	Company   string
	Title     string
	Link      string
	Published string
	Summary   string
}

type FeedNewsOptions struct {
	// FeedURL is a search feed template with a single %s for the query.
	FeedURL string
	// MaxItems caps the articles taken per company.
	MaxItems int
	// FetchArticles downloads each article page and extracts its main text.
	FetchArticles bool
	UserAgent     string
}

// FeedNews collects company news from an RSS search feed.
type FeedNews struct {
	httpClient *http.Client
	opts       FeedNewsOptions
}

var _ NewsSource = (*FeedNews)(nil)

func NewFeedNews(httpClient *http.Client, opts FeedNewsOptions) *FeedNews {
	if opts.FeedURL == "" {
		opts.FeedURL = DefaultNewsFeedURL
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 5
	}
	return &FeedNews{httpClient: httpClient, opts: opts}
}

// Collect gathers articles for every company. A company whose feed fails is
// logged and skipped; an error is returned only if every company failed.
func (n *FeedNews) Collect(ctx context.Context, companies []string) ([]Article, error) {
	var (
		articles []Article
		lastErr  error
		failed   int
	)

	for _, company := range companies {
		items, err := n.collectCompany(ctx, company)
		if err != nil {
			failed++
			lastErr = err
			slog.Warn("Failed to collect company news", "company", company, "error", err)
			continue
		}
		articles = append(articles, items...)
	}

	if failed > 0 && failed == len(companies) {
		return nil, fmt.Errorf("news collection failed for all companies: %w", lastErr)
	}

	slog.Debug("Company news collected", "companies", len(companies), "articles", len(articles))
	return articles, nil
}

func (n *FeedNews) collectCompany(ctx context.Context, company string) ([]Article, error) {
	feedURL := fmt.Sprintf(n.opts.FeedURL, url.QueryEscape(company))

	parser := gofeed.NewParser()
	parser.Client = n.httpClient
	parser.UserAgent = n.opts.UserAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	var articles []Article
	for _, item := range feed.Items {
		if len(articles) >= n.opts.MaxItems {
			break
		}
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}

		a := Article{
			Company: company,
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Summary: truncate(plainText(item.Description), maxSummaryRunes),
		}
		if item.PublishedParsed != nil {
			a.Published = item.PublishedParsed.Format(time.DateOnly)
		}

		if n.opts.FetchArticles && a.Link != "" {
			if text, err := n.extractArticle(ctx, a.Link); err != nil {
				slog.Debug("Article extraction failed, keeping feed summary", "link", a.Link, "error", err)
			} else if text != "" {
				a.Summary = truncate(text, maxSummaryRunes)
			}
		}

		articles = append(articles, a)
	}

	return articles, nil
}

func (n *FeedNews) extractArticle(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid article URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if n.opts.UserAgent != "" {
		req.Header.Set("User-Agent", n.opts.UserAgent)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	return strings.Join(strings.Fields(article.TextContent), " "), nil
}

// plainText strips markup from a feed description.
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
