package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/campusradar/campusradar/internal/models"
)

type BulletinConfig struct {
	BaseURL        string
	MaxDepth       int
	RateLimit      float64 // requests per second
	IgnorePatterns []string
	Timeout        time.Duration
	OnProgress     func(url string)
}

// Bulletin crawls a campus bulletin site and turns each page into an
// announcement for the extraction pipeline.
type Bulletin struct {
	config   BulletinConfig
	client   *http.Client
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
}

func NewBulletin(config BulletinConfig) (*Bulletin, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 2
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Bulletin{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		visited:  make(map[string]bool),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

func (b *Bulletin) shouldFetch(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	// Stay on the bulletin host
	if parsedURL.Host != b.baseHost {
		return false
	}

	for _, pattern := range b.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

// Fetch crawls from the base URL up to MaxDepth and returns one
// announcement per page.
func (b *Bulletin) Fetch(ctx context.Context) ([]models.Announcement, error) {
	var anns []models.Announcement
	err := b.fetchRecursive(ctx, b.config.BaseURL, 0, &anns)
	return anns, err
}

func (b *Bulletin) fetchRecursive(ctx context.Context, urlStr string, depth int, anns *[]models.Announcement) error {
	if depth > b.config.MaxDepth || b.visited[urlStr] {
		return nil
	}

	if !b.shouldFetch(urlStr) {
		return nil
	}

	b.visited[urlStr] = true
	if b.config.OnProgress != nil {
		b.config.OnProgress(urlStr)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return err
	}

	content := extractMainContent(doc)
	title := strings.TrimSpace(doc.Find("title").Text())

	if content != "" {
		*anns = append(*anns, models.Announcement{
			ID:         urlStr,
			Source:     urlStr,
			Subject:    title,
			Body:       content,
			ReceivedAt: time.Now(),
			Metadata: map[string]interface{}{
				"depth":        depth,
				"contentType":  resp.Header.Get("Content-Type"),
				"lastModified": resp.Header.Get("Last-Modified"),
			},
		})
	}

	// Follow links on the page
	base, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() {
			linkURL = base.ResolveReference(linkURL)
		}
		links = append(links, linkURL.String())
	})

	for _, link := range links {
		if err := b.fetchRecursive(ctx, link, depth+1, anns); err != nil {
			if ctx.Err() != nil {
				return err
			}
			// A broken link should not sink the whole crawl.
			continue
		}
	}

	return nil
}

func extractMainContent(doc *goquery.Document) string {
	// Try to find the announcement body first
	selectors := []string{
		"main",
		"article",
		".announcement",
		".content",
		"#content",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return normalizeText(content)
}
