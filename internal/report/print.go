// Package report renders an inspection Report for people (terminal output)
// and for other tools (JSON and XLSX exports).
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"linkprobe/internal/inspect"
)

type PrintOptions struct {
	NoColor bool
}

type palette struct {
	green, yellow, red, header *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		header: color.New(color.FgCyan, color.Underline),
	}
	if noColor {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.header} {
			c.DisableColor()
		}
	}
	return p
}

// Print writes the run summary followed by the broken links, foreign ones
// first and same-origin ones last.
func Print(w io.Writer, rep *inspect.Report, opts PrintOptions) {
	p := newPalette(opts.NoColor)

	printSummary(w, rep, p)
	fmt.Fprintln(w)

	if len(rep.BrokenLinks) == 0 {
		p.green.Fprintln(w, "All links working")
		return
	}

	for _, bl := range rep.Foreign() {
		p.yellow.Fprintf(w, "%s [parent: %s]\n", bl.Link, parentOf(bl, rep.BaseURL))
		p.yellow.Fprintf(w, "==> %s\n", bl.Error)
	}

	own := rep.SameOrigin()
	if len(own) == 0 {
		return
	}
	if len(rep.Foreign()) > 0 {
		fmt.Fprintln(w)
	}
	p.red.Fprintf(w, "Following urls have issues. These are from your own domain %q and must be fixed.\n", rep.BaseURL)
	for _, bl := range own {
		p.red.Fprintf(w, "%s [parent: %s]\n", bl.Link, parentOf(bl, rep.BaseURL))
		p.red.Fprintf(w, "==> %s\n", bl.Error)
	}
}

func printSummary(w io.Writer, rep *inspect.Report, p palette) {
	tbl := table.New("Sitemaps", "Listed pages", "Visited", "Broken (own)", "Broken (foreign)")
	tbl.WithWriter(w)
	tbl.WithHeaderFormatter(p.header.SprintfFunc())
	tbl.AddRow(len(rep.SitemapURLs), len(rep.AllURLs), rep.PagesVisited, len(rep.SameOrigin()), len(rep.Foreign()))
	tbl.Print()
}

// parentOf names the page a broken link was found on. Pages listed in a
// sitemap have no parent and are attributed to the site itself.
func parentOf(bl inspect.BrokenLink, baseURL string) string {
	if bl.ParentPage == "" {
		return baseURL
	}
	return bl.ParentPage
}
