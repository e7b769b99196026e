package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response or error.
type stubHTTPClient struct {
	resp httpclient.Response
	err  error
}

func (s stubHTTPClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	return s.resp, s.err
}

func TestExtractParagraphsDropsShortBlocks(t *testing.T) {
	html := []byte(`
<html><body>
  <p>Share</p>
  <p>  The cabinet approved the new   irrigation scheme today.  </p>
  <p>exactly twenty chars</p>
  <p>nineteen characters</p>
  <div><p>The High Court issued notice to the state government.</p></div>
</body></html>`)

	text, err := extractParagraphs(html, "https://example.com/a")
	if err != nil {
		t.Fatalf("extractParagraphs: %v", err)
	}
	want := "The cabinet approved the new irrigation scheme today. exactly twenty chars The High Court issued notice to the state government."
	if text != want {
		t.Fatalf("unexpected text\n got: %q\nwant: %q", text, want)
	}
}

func TestExtractParagraphsCountsRunesNotBytes(t *testing.T) {
	// 19 Devanagari runes is far more than 20 bytes but still below the threshold.
	short := strings.Repeat("क", 19)
	long := strings.Repeat("क", 20)
	html := []byte("<p>" + short + "</p><p>" + long + "</p>")

	text, err := extractParagraphs(html, "")
	if err != nil {
		t.Fatalf("extractParagraphs: %v", err)
	}
	if text != long {
		t.Fatalf("expected only the 20-rune block, got %q", text)
	}
}

func TestExtractParagraphsMeasuresBeforeCollapsing(t *testing.T) {
	// 22 runes after trimming, 12 once the newline run is collapsed.
	html := []byte("<p>  Raipur:\n\n\n\n\n\n\n\n\n\n\nrain  </p><p>Raipur: rain</p>")

	text, err := extractParagraphs(html, "")
	if err != nil {
		t.Fatalf("extractParagraphs: %v", err)
	}
	if text != "Raipur: rain" {
		t.Fatalf("expected the multi-line block kept and collapsed, got %q", text)
	}
}

func TestFetchTextErrors(t *testing.T) {
	cases := []struct {
		name   string
		client stubHTTPClient
		is     error
	}{
		{name: "network", client: stubHTTPClient{err: errors.New("dial tcp: refused")}, is: ErrFetch},
		{name: "status", client: stubHTTPClient{resp: stubHTTPResponse{statusCode: 503, body: []byte("busy")}}, is: ErrStatus},
		{name: "no paragraphs", client: stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte("<p>tiny</p>")}}, is: ErrNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewScraper(tc.client, "")
			if err != nil {
				t.Fatalf("NewScraper: %v", err)
			}
			text, err := s.FetchText(context.Background(), "https://example.com/a")
			if err == nil {
				t.Fatalf("expected error")
			}
			if text != "" {
				t.Fatalf("expected empty text on error, got %q", text)
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
		})
	}
}

func TestFetchTextOverHTTPSendsBrowserUA(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><p>District collector reviewed flood relief work in Bastar.</p></body></html>`))
	}))
	defer srv.Close()

	s, err := NewScraper(httpclient.NewBrowserClient(2*time.Second, "Mozilla/5.0 (X11)"), ExtractorParagraphs)
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}
	text, err := s.FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if text != "District collector reviewed flood relief work in Bastar." {
		t.Fatalf("unexpected text %q", text)
	}
	if ua != "Mozilla/5.0 (X11)" {
		t.Fatalf("unexpected user agent %q", ua)
	}
}

func TestReadabilityExtractor(t *testing.T) {
	body := "<html><head><title>Budget</title></head><body><article>" +
		strings.Repeat("<p>The state budget allocates new funds for rural roads and schools across districts.</p>", 12) +
		"</article></body></html>"
	s, err := NewScraper(stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte(body)}}, ExtractorReadability)
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}
	text, err := s.FetchText(context.Background(), "https://example.com/budget")
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if !strings.Contains(text, "rural roads") {
		t.Fatalf("unexpected readability text %q", text)
	}
}

func TestNewScraperRejectsUnknownExtractor(t *testing.T) {
	if _, err := NewScraper(stubHTTPClient{}, "magic"); err == nil {
		t.Fatalf("expected error for unknown extractor")
	}
}
