package sources

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const sitemapAccept = "application/xml, text/xml;q=0.9, */*;q=0.8"

// newsSitemap is a Google News sitemap (urlset with news:news children).
type newsSitemap struct {
	URLs []newsSitemapURL `xml:"url"`
}

type newsSitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
	News    struct {
		Title           string `xml:"title"`
		PublicationDate string `xml:"publication_date"`
	} `xml:"news"`
}

// W3C datetime layouts used by news sitemaps.
var sitemapTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseNewsSitemap turns sitemap entries into feed items so the collector
// applies one selection rule to both source kinds.
func parseNewsSitemap(data []byte) ([]*gofeed.Item, error) {
	var sm newsSitemap
	if err := xml.Unmarshal(data, &sm); err != nil {
		return nil, err
	}

	items := make([]*gofeed.Item, 0, len(sm.URLs))
	for _, entry := range sm.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		item := &gofeed.Item{
			Title: strings.TrimSpace(entry.News.Title),
			Link:  loc,
		}
		if ts, ok := parseSitemapTime(entry.News.PublicationDate); ok {
			item.PublishedParsed = &ts
		}
		if ts, ok := parseSitemapTime(entry.LastMod); ok {
			item.UpdatedParsed = &ts
		}
		items = append(items, item)
	}
	return items, nil
}

func parseSitemapTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range sitemapTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
