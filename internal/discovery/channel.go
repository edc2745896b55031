// Package discovery provides the bounded output channel external discovery
// strategies (HTML crawls, sitemaps, FOIA log parsers, manual seed lists)
// publish URLs onto. It is deliberately thin: discovery strategies are
// external collaborators per spec.md §1, and the core only ever consumes
// url.URL values from Recv.
package discovery

import (
	"context"
	"net/url"
)

// Channel is a bounded, non-persistent conduit from discovery producers to
// the crawl URL store. It is not a queue of record: anything unread when
// the process exits is gone, matching spec.md §4.5's "not persistent".
type Channel struct {
	urls chan url.URL
}

// NewChannel creates a Channel buffered to hold capacity unread URLs
// before Send blocks.
func NewChannel(capacity int) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel{urls: make(chan url.URL, capacity)}
}

// Send publishes u, blocking until there is room or ctx is cancelled.
func (c *Channel) Send(ctx context.Context, u url.URL) error {
	select {
	case c.urls <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv returns the next published URL, blocking until one arrives, the
// channel is closed (ok == false), or ctx is cancelled.
func (c *Channel) Recv(ctx context.Context) (u url.URL, ok bool, err error) {
	select {
	case u, ok = <-c.urls:
		return u, ok, nil
	case <-ctx.Done():
		return url.URL{}, false, ctx.Err()
	}
}

// Close signals that no further URLs will be sent. Calling Send after
// Close panics, matching close(chan)'s native semantics.
func (c *Channel) Close() {
	close(c.urls)
}
