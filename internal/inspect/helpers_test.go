package inspect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linkprobe/internal/config"
)

// page is one canned response. Bodies may use {{base}} for the server origin.
type page struct {
	status int
	body   string
}

func ok(body string) page { return page{status: http.StatusOK, body: body} }

func status(code int) page { return page{status: code} }

// testSite serves a fixed set of paths and counts requests per path.
type testSite struct {
	*httptest.Server
	mu    sync.Mutex
	pages map[string]page
	hits  map[string]int
}

func newTestSite(t *testing.T, pages map[string]page) *testSite {
	t.Helper()
	s := &testSite{pages: pages, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *testSite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	p, found := s.pages[r.URL.Path]
	s.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}
	if p.status != http.StatusOK {
		w.WriteHeader(p.status)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".xml") {
		w.Header().Set("Content-Type", "application/xml")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = w.Write([]byte(strings.ReplaceAll(p.body, "{{base}}", s.URL)))
}

func (s *testSite) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func urlset(locs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, loc := range locs {
		fmt.Fprintf(&sb, "<url>\n<loc>%s</loc>\n<lastmod>2021-01-14</lastmod>\n<priority>1.00</priority>\n</url>\n", loc)
	}
	sb.WriteString(`</urlset>`)
	return sb.String()
}

func sitemapIndex(locs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, loc := range locs {
		fmt.Fprintf(&sb, "<sitemap><loc>%s</loc></sitemap>\n", loc)
	}
	sb.WriteString(`</sitemapindex>`)
	return sb.String()
}

func newTestInspector(t *testing.T, opts ...Option) *Inspector {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RequestTimeout = 5 * time.Second
	in, err := NewInspector(cfg, nil, opts...)
	require.NoError(t, err)
	return in
}

// stubFetcher serves pages from memory and tracks how many fetches overlap.
type stubFetcher struct {
	pages map[string]string
	delay time.Duration

	active int32
	peak   int32
	calls  int32
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	body, found := f.pages[url]
	if !found {
		return "", fmt.Errorf("bad status code: 404 Not Found")
	}
	return body, nil
}
