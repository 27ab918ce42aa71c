package inspect

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Anything else found during a run ends up in
// Report.BrokenLinks instead.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSitemapUnreachable = errors.New("sitemap unreachable")
	ErrEmptySitemap       = errors.New("empty sitemap")
)

// SitemapError reports a sitemap document that could not be fetched.
type SitemapError struct {
	URL string
	Err error
}

func (e *SitemapError) Error() string {
	return fmt.Sprintf("Unable to access the sitemap at %s.\nError: %v\n\nPlease check if your server is running.", e.URL, e.Err)
}

func (e *SitemapError) Unwrap() error {
	return e.Err
}

func (e *SitemapError) Is(target error) bool {
	return target == ErrSitemapUnreachable
}
