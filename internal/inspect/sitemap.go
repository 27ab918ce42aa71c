package inspect

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"linkprobe/internal/markup"
	"linkprobe/internal/urlnorm"
)

type sitemapDoc struct {
	pages    []string
	sitemaps []string
}

// resolveSitemaps expands seed round by round. Each round fetches the whole
// frontier concurrently and waits for every fetch before merging, so the
// merge order (and thus sitemapURLs) follows discovery order.
func (r *run) resolveSitemaps(ctx context.Context, seed string) (pageURLs, sitemapURLs []string, err error) {
	knownSitemaps := map[string]struct{}{seed: {}}
	knownPages := make(map[string]struct{})
	sitemapURLs = []string{seed}
	frontier := []string{seed}

	for round := 1; len(frontier) > 0; round++ {
		r.log.WithFields(logrus.Fields{
			"round":    round,
			"sitemaps": len(frontier),
		}).Debug("resolving sitemaps")

		docs := make([]sitemapDoc, len(frontier))
		g := new(errgroup.Group)
		g.SetLimit(r.gate.Size())
		for i, u := range frontier {
			g.Go(func() error {
				text, err := r.fetcher.Fetch(ctx, u)
				if err != nil {
					return &SitemapError{URL: u, Err: err}
				}
				docs[i] = sitemapDoc{
					pages:    markup.ExtractLocs(text, markup.URLSet),
					sitemaps: markup.ExtractLocs(text, markup.SitemapIndex),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}

		var next []string
		for _, doc := range docs {
			for _, loc := range doc.pages {
				pageURL, ok := urlnorm.Normalize(loc, "", r.base)
				if !ok {
					r.log.WithField("loc", loc).Trace("skipped")
					continue
				}
				if _, ok := knownPages[pageURL]; ok {
					continue
				}
				knownPages[pageURL] = struct{}{}
				pageURLs = append(pageURLs, pageURL)
			}
			for _, loc := range doc.sitemaps {
				loc = urlnorm.Absolute(loc, r.base)
				if _, ok := knownSitemaps[loc]; ok {
					continue
				}
				knownSitemaps[loc] = struct{}{}
				sitemapURLs = append(sitemapURLs, loc)
				next = append(next, loc)
			}
		}
		frontier = next
	}

	if len(pageURLs) == 0 {
		return nil, nil, fmt.Errorf("no <loc> entries found under %s: %w", seed, ErrEmptySitemap)
	}
	return pageURLs, sitemapURLs, nil
}
