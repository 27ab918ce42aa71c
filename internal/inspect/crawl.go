package inspect

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"linkprobe/internal/gate"
	"linkprobe/internal/urlnorm"
	"linkprobe/internal/visited"
)

// run holds everything shared by the visits of one Inspect call.
type run struct {
	id      string
	base    string
	fetcher Fetcher
	gate    *gate.Gate
	visited *visited.Store
	anchors func(htmlText string) []string
	log     *logrus.Entry

	mu     sync.Mutex
	broken []brokenRecord

	wg sync.WaitGroup
}

// crawl visits every sitemap page and blocks until the whole tree of visits
// they spawn has finished.
func (r *run) crawl(ctx context.Context, pageURLs []string) {
	for _, u := range pageURLs {
		r.wg.Add(1)
		go r.visit(ctx, u, "")
	}
	r.wg.Wait()
}

func (r *run) visit(ctx context.Context, rawURL, parentURL string) {
	defer r.wg.Done()

	pageURL, ok := urlnorm.Normalize(rawURL, parentURL, r.base)
	if !ok {
		r.log.WithField("url", rawURL).Trace("skipped")
		return
	}
	if r.visited.LoadOrStore(pageURL) {
		return
	}

	log := r.log.WithField("url", pageURL)
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("link expansion panic recovered")
		}
	}()

	log.Trace("checking")
	body, err := r.fetchPage(ctx, pageURL)
	if err != nil {
		log.WithFields(logrus.Fields{
			"parent": parentURL,
			"error":  err.Error(),
		}).Warn("failed")
		r.recordBroken(pageURL, err, parentURL)
		return
	}
	log.Debug("all good")

	// foreign pages are checked for reachability only
	if !urlnorm.SameOrigin(pageURL, r.base) {
		log.Debug("skipped sub-page")
		return
	}

	hrefs := r.anchors(body)
	if len(hrefs) == 0 {
		return
	}
	log.WithField("links", len(hrefs)).Debug("links on page")
	for _, href := range hrefs {
		r.wg.Add(1)
		go r.visit(ctx, href, pageURL)
	}
}

// fetchPage fetches under a gate slot. A panicking fetcher counts as a failed
// fetch.
func (r *run) fetchPage(ctx context.Context, pageURL string) (body string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	err = r.gate.WithSlot(ctx, func(ctx context.Context) error {
		var err error
		body, err = r.fetcher.Fetch(ctx, pageURL)
		return err
	})
	return body, err
}

func (r *run) recordBroken(url string, err error, parent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broken = append(r.broken, brokenRecord{url: url, err: err, parent: parent})
}

func (r *run) brokenRecords() []brokenRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]brokenRecord, len(r.broken))
	copy(out, r.broken)
	return out
}
