package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
)

const (
	URLSet       = "urlset"
	SitemapIndex = "sitemapindex"
)

// ExtractLocs returns the text of every <loc> nested under an element named
// ancestorTag. Documents that are not well-formed XML are retried with the
// lenient HTML parser.
func ExtractLocs(text, ancestorTag string) []string {
	if locs, ok := xmlLocs(text, ancestorTag); ok {
		return locs
	}
	return htmlLocs(text, ancestorTag)
}

func xmlLocs(text, ancestorTag string) ([]string, bool) {
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, false
	}
	nodes, err := xmlquery.QueryAll(doc, "//"+ancestorTag+"//loc")
	if err != nil {
		return nil, false
	}

	var locs []string
	for _, n := range nodes {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, true
}

func htmlLocs(text, ancestorTag string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}

	var locs []string
	doc.Find(ancestorTag + " loc").Each(func(_ int, s *goquery.Selection) {
		if loc := strings.TrimSpace(s.Text()); loc != "" {
			locs = append(locs, loc)
		}
	})
	return locs
}

// ExtractAnchors returns the href of every <a> in the document, skipping
// anchors inside <template> subtrees and empty hrefs.
func ExtractAnchors(htmlText string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if s.Closest("template").Length() > 0 {
			return
		}
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs
}
