// Package inspect checks that every page listed in a sitemap, and every
// link reachable from those pages on the same site, can be fetched.
//
// An Inspect call resolves the sitemap tree first (sitemap indexes are
// followed until no new sitemaps appear), then crawls the listed pages
// concurrently. Same-origin pages are expanded through their anchors;
// foreign pages are fetched once to check reachability and not crawled.
// Fetch failures become BrokenLinks in the returned Report; only a bad
// seed URL, an unreachable sitemap or an empty sitemap fail the call.
//
// All state lives in a per-call run value, so one Inspector can serve
// concurrent Inspect calls.
package inspect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"linkprobe/internal/config"
	"linkprobe/internal/fetch"
	"linkprobe/internal/gate"
	"linkprobe/internal/logging"
	"linkprobe/internal/markup"
	"linkprobe/internal/urlnorm"
	"linkprobe/internal/visited"
)

// Fetcher returns the body of a successful GET as text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Inspector struct {
	config  *config.Config
	fetcher Fetcher
	logger  *logrus.Logger
}

type Option func(*Inspector)

// WithFetcher replaces the HTTP client, e.g. with a stub in tests.
func WithFetcher(f Fetcher) Option {
	return func(in *Inspector) { in.fetcher = f }
}

func NewInspector(cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Inspector, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	in := &Inspector{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(in)
	}
	if in.fetcher == nil {
		in.fetcher = fetch.NewClient(cfg, logger)
	}
	return in, nil
}

// Inspect runs one full inspection of the sitemap at sitemapURL.
func (in *Inspector) Inspect(ctx context.Context, sitemapURL string) (*Report, error) {
	sitemapURL = strings.TrimSpace(sitemapURL)
	base, err := urlnorm.BaseOrigin(sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	r := &run{
		id:      uuid.NewString(),
		base:    base,
		fetcher: in.fetcher,
		gate:    gate.New(in.config.Concurrency),
		visited: visited.NewStore(),
		anchors: markup.ExtractAnchors,
	}
	r.log = in.logger.WithFields(logrus.Fields{"run": r.id, "base": base})

	start := time.Now()
	r.log.WithFields(logrus.Fields{
		"sitemap":     sitemapURL,
		"concurrency": r.gate.Size(),
	}).Info("starting inspection")

	pageURLs, sitemapURLs, err := r.resolveSitemaps(ctx, sitemapURL)
	if err != nil {
		r.log.WithField("error", err.Error()).Error("sitemap resolution failed")
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"sitemaps": len(sitemapURLs),
		"pages":    len(pageURLs),
	}).Info("sitemaps resolved")

	r.crawl(ctx, pageURLs)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("inspection interrupted: %w", err)
	}

	visitedURLs := r.visited.Snapshot()
	report := &Report{
		RunID:        r.id,
		BaseURL:      base,
		SitemapURLs:  sitemapURLs,
		AllURLs:      pageURLs,
		VisitedURLs:  visitedURLs,
		PagesVisited: r.visited.Size(),
		BrokenLinks:  aggregate(base, r.brokenRecords()),
	}

	r.log.WithFields(logrus.Fields{
		"visited": report.PagesVisited,
		"broken":  len(report.BrokenLinks),
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("inspection finished")

	return report, nil
}
