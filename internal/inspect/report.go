package inspect

import (
	"sort"

	"linkprobe/internal/urlnorm"
)

// BrokenLink is a page that could not be fetched. ParentPage is empty for
// pages listed directly in a sitemap.
type BrokenLink struct {
	Link                   string `json:"link"`
	ParentPage             string `json:"parentPage,omitempty"`
	Err                    error  `json:"-"`
	Error                  string `json:"error"`
	HasSameOriginAsSitemap bool   `json:"hasSameOriginAsSitemap"`
}

type Report struct {
	RunID        string       `json:"runId"`
	BaseURL      string       `json:"baseUrl"`
	SitemapURLs  []string     `json:"sitemapUrls"`
	AllURLs      []string     `json:"allUrls"`
	VisitedURLs  []string     `json:"visitedUrls"`
	PagesVisited int          `json:"pagesVisited"`
	BrokenLinks  []BrokenLink `json:"brokenLinks"`
}

// SameOrigin returns the broken links hosted under BaseURL.
func (r *Report) SameOrigin() []BrokenLink {
	return r.filter(true)
}

// Foreign returns the broken links hosted elsewhere.
func (r *Report) Foreign() []BrokenLink {
	return r.filter(false)
}

func (r *Report) filter(sameOrigin bool) []BrokenLink {
	var out []BrokenLink
	for _, bl := range r.BrokenLinks {
		if bl.HasSameOriginAsSitemap == sameOrigin {
			out = append(out, bl)
		}
	}
	return out
}

type brokenRecord struct {
	url    string
	err    error
	parent string
}

// aggregate classifies every record against baseOrigin. Records are not
// deduplicated; the visited set already guarantees one per URL.
func aggregate(baseOrigin string, records []brokenRecord) []BrokenLink {
	links := make([]BrokenLink, 0, len(records))
	for _, rec := range records {
		bl := BrokenLink{
			Link:                   rec.url,
			ParentPage:             rec.parent,
			Err:                    rec.err,
			HasSameOriginAsSitemap: urlnorm.SameOrigin(rec.url, baseOrigin),
		}
		if rec.err != nil {
			bl.Error = rec.err.Error()
		}
		links = append(links, bl)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Link < links[j].Link })
	return links
}
