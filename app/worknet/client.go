package worknet

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/job-agent/app/company"
	"github.com/lysyi3m/job-agent/app/database"
)

const DefaultURL = "https://www.work24.go.kr/cm/openApi/call/wk/callOpenApiSvcInfo210L21.do"

type Options struct {
	URL       string
	APIKey    string
	Pages     int
	PageSize  int
	UserAgent string
	// RequestsPerSecond paces page requests. Zero disables pacing.
	RequestsPerSecond float64
}

// Client pulls job postings from the Work24 open API.
type Client struct {
	httpClient *http.Client
	opts       Options
	limiter    *rate.Limiter
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Pages <= 0 {
		opts.Pages = 3
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts,
		limiter:    limiter,
	}
}

// FetchMatching walks the configured pages and keeps only postings whose
// company name matches one of the given companies or aliases. Filtering
// happens while each page is decoded, so non-matching postings are never
// collected.
//
// A failing page is logged and skipped. When every page fails the result is
// empty rather than an error.
func (c *Client) FetchMatching(ctx context.Context, names, aliases []string) ([]database.Posting, FetchStats) {
	var stats FetchStats

	if len(names) == 0 {
		slog.Info("No interest companies configured, skipping feed fetch")
		return nil, stats
	}

	interest := company.NewInterestSet(names, aliases)
	slog.Debug("Interest set built", "entries", interest.Len())

	var postings []database.Posting
	for page := 1; page <= c.opts.Pages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			slog.Warn("Feed fetch interrupted", "page", page, "error", err)
			break
		}

		matched, seen, err := c.fetchPage(ctx, page, interest)
		stats.Seen += seen
		if err != nil {
			stats.PagesFailed++
			slog.Error("Failed to fetch feed page", "page", page, "error", err)
			continue
		}

		stats.PagesOK++
		stats.Matched += len(matched)
		postings = append(postings, matched...)

		slog.Debug("Feed page processed", "page", page, "seen", seen, "matched", len(matched))
	}

	slog.Info("Feed fetch finished",
		"pages_ok", stats.PagesOK,
		"pages_failed", stats.PagesFailed,
		"seen", stats.Seen,
		"matched", stats.Matched)

	return postings, stats
}

func (c *Client) pageURL(page int) (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL: %w", err)
	}

	q := u.Query()
	q.Set("authKey", c.opts.APIKey)
	q.Set("callTp", "L")
	q.Set("returnType", "XML")
	q.Set("startPage", strconv.Itoa(page))
	q.Set("display", strconv.Itoa(c.opts.PageSize))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) fetchPage(ctx context.Context, page int, interest *company.InterestSet) ([]database.Posting, int, error) {
	pageURL, err := c.pageURL(page)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	matched, seen, err := decodePostings(resp.Body, interest)
	if err != nil {
		return nil, seen, err
	}

	slog.Debug("Feed page downloaded", "page", page, "duration", time.Since(start))

	return matched, seen, nil
}

// charsetReader converts legacy Korean encodings such as EUC-KR to UTF-8.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodePostings streams the document and decodes every posting element,
// wherever it sits in the tree. It returns the matching postings and the
// number of postings seen.
func decodePostings(r io.Reader, interest *company.InterestSet) ([]database.Posting, int, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var (
		matched []database.Posting
		seen    int
		root    bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, seen, fmt.Errorf("malformed XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		root = true

		if start.Name.Local != postingElement {
			continue
		}

		var raw rawPosting
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return nil, seen, fmt.Errorf("malformed posting: %w", err)
		}
		seen++

		if !interest.Match(raw.CompanyName) {
			continue
		}
		matched = append(matched, raw.toPosting())
	}

	if !root {
		return nil, 0, errors.New("empty XML document")
	}

	return matched, seen, nil
}
