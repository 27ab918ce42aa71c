package inspect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkprobe/internal/gate"
	"linkprobe/internal/logging"
	"linkprobe/internal/markup"
	"linkprobe/internal/visited"
)

const stubBase = "http://stub.test"

func newTestRun(f Fetcher, anchors func(string) []string) *run {
	return &run{
		id:      "test",
		base:    stubBase,
		fetcher: f,
		gate:    gate.New(4),
		visited: visited.NewStore(),
		anchors: anchors,
		log:     logging.Discard().WithField("run", "test"),
	}
}

type panicFetcher struct {
	stubFetcher
	panicOn string
}

func (f *panicFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if url == f.panicOn {
		panic("fetcher exploded")
	}
	return f.stubFetcher.Fetch(ctx, url)
}

func TestCrawlFetchPanicIsBrokenLink(t *testing.T) {
	f := &panicFetcher{
		stubFetcher: stubFetcher{pages: map[string]string{
			stubBase + "/":      `<a href="/boom/">boom</a><a href="/fine/">fine</a>`,
			stubBase + "/fine/": `<p>fine</p>`,
		}},
		panicOn: stubBase + "/boom/",
	}
	r := newTestRun(f, markup.ExtractAnchors)

	r.crawl(context.Background(), []string{stubBase + "/"})

	records := r.brokenRecords()
	require.Len(t, records, 1)
	assert.Equal(t, stubBase+"/boom/", records[0].url)
	assert.Equal(t, stubBase+"/", records[0].parent)
	assert.ErrorContains(t, records[0].err, "panic: fetcher exploded")
	assert.Equal(t, 3, r.visited.Size())
}

func TestCrawlExpansionPanicIsNotBrokenLink(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		stubBase + "/":     `<p>home</p>`,
		stubBase + "/odd/": `<p>odd</p>`,
	}}
	anchors := func(htmlText string) []string {
		if htmlText == `<p>odd</p>` {
			panic("extractor exploded")
		}
		return nil
	}
	r := newTestRun(f, anchors)

	r.crawl(context.Background(), []string{stubBase + "/", stubBase + "/odd/"})

	assert.Empty(t, r.brokenRecords(), "a fetched page is reachable even if its links cannot be read")
	assert.Equal(t, 2, r.visited.Size())
	assert.EqualValues(t, 2, f.calls)
}
