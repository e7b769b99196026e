package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 4 << 20 // 4 MiB
	minParagraphLen  = 20

	ExtractorParagraphs  = "paragraphs"
	ExtractorReadability = "readability"
)

var (
	// ErrNoContent means the page loaded but yielded no usable text.
	ErrNoContent = errors.New("no extractable article text")
	// ErrStatus means the page answered with a non-2xx status.
	ErrStatus = errors.New("unexpected http status")
	// ErrFetch wraps transport failures (DNS, refused, timeout).
	ErrFetch = errors.New("http fetch failed")
)

// extractFunc turns an HTML document into plain article text.
type extractFunc func(body []byte, pageURL string) (string, error)

// Scraper fetches article pages and extracts their body text.
type Scraper struct {
	client  httpclient.Client
	extract extractFunc
}

// NewScraper constructs a scraper with the provided HTTP client and extractor
// name. An empty name selects paragraph extraction.
func NewScraper(client httpclient.Client, extractor string) (*Scraper, error) {
	if client == nil {
		client = httpclient.NewBrowserClient(10*time.Second, "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	}

	var fn extractFunc
	switch strings.ToLower(strings.TrimSpace(extractor)) {
	case "", ExtractorParagraphs:
		fn = extractParagraphs
	case ExtractorReadability:
		fn = extractReadable
	default:
		return nil, fmt.Errorf("unknown extractor %q", extractor)
	}
	return &Scraper{client: client, extract: fn}, nil
}

// FetchText issues a single GET for pageURL and returns the extracted text.
// Every failure is reported as an error; it never returns empty text with a
// nil error.
func (s *Scraper) FetchText(ctx context.Context, pageURL string) (string, error) {
	resp, err := s.client.Get(ctx, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if !httpclient.IsSuccess(resp) {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return "", fmt.Errorf("%w %d body: %s", ErrStatus, resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	text, err := s.extract(body, pageURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

// extractParagraphs joins every <p> block of at least minParagraphLen
// characters with a single space. Length is measured on the trimmed text;
// inner whitespace is collapsed only for output.
func extractParagraphs(body []byte, _ string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	blocks := make([]string, 0, 16)
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if utf8.RuneCountInString(text) < minParagraphLen {
			return
		}
		blocks = append(blocks, collapseSpace(text))
	})
	return strings.Join(blocks, " "), nil
}

func extractReadable(body []byte, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return collapseSpace(article.TextContent), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
