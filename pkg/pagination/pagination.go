// Package pagination follows the opaque cursors MCP list methods return.
package pagination

import (
	"errors"
	"fmt"

	"github.com/ajitpratap0/mcp-sse-client/pkg/protocol"
)

// DefaultMaxPages bounds how many pages a Collector follows
const DefaultMaxPages = 100

var (
	// ErrCursorLoop is returned when a server hands out a cursor it already returned
	ErrCursorLoop = errors.New("pagination cursor repeated")

	// ErrTooManyPages is returned when the page limit is reached
	ErrTooManyPages = errors.New("too many pages")
)

// Collector tracks the cursor state of a paginated listing
type Collector struct {
	// NextCursor holds the pagination cursor for the next page
	NextCursor string
	// HasMore indicates if there are more pages to fetch
	HasMore bool
	// Pages is the number of pages seen so far
	Pages int
	// MaxPages bounds Pages. Zero means DefaultMaxPages.
	MaxPages int

	seen map[string]struct{}
}

// NewCollector creates a new pagination collector
func NewCollector() *Collector {
	return &Collector{
		HasMore:  true,
		MaxPages: DefaultMaxPages,
		seen:     make(map[string]struct{}),
	}
}

// Update records the cursor returned with a page. An empty cursor ends the listing.
func (c *Collector) Update(nextCursor string) error {
	c.Pages++
	c.NextCursor = nextCursor
	c.HasMore = nextCursor != ""
	if !c.HasMore {
		return nil
	}

	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, dup := c.seen[nextCursor]; dup {
		c.HasMore = false
		return fmt.Errorf("%w: %q", ErrCursorLoop, nextCursor)
	}
	c.seen[nextCursor] = struct{}{}

	limit := c.MaxPages
	if limit <= 0 {
		limit = DefaultMaxPages
	}
	if c.Pages >= limit {
		c.HasMore = false
		return fmt.Errorf("%w: stopped after %d", ErrTooManyPages, c.Pages)
	}
	return nil
}

// NextParams returns the request parameters for the next page, nil for the first
func (c *Collector) NextParams() *protocol.PaginatedParams {
	if c.NextCursor == "" {
		return nil
	}
	return &protocol.PaginatedParams{Cursor: c.NextCursor}
}
