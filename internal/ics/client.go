// Package ics implements the calendar gateway over ICS subscription feeds.
// Each configured feed is exposed as one source calendar; recurring VEVENTs
// are expanded into concrete instances within the requested day window.
package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"

	"calwatch/internal/gateway"
	appLog "calwatch/internal/log"
)

// Feed describes a single ICS subscription.
type Feed struct {
	ID    string
	Label string
	URL   string
	Color string
}

// Client fetches and parses ICS feeds. HTTP caching uses in-memory
// ETag/Last-Modified validators per URL; a validator hit reuses the last
// fetched body.
type Client struct {
	feeds []Feed
	http  *http.Client

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	etag         string
	lastModified string
	body         []byte
}

// NewClient constructs a Client over the given feeds.
func NewClient(feeds []Feed) *Client {
	return &Client{
		feeds: feeds,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: make(map[string]*cacheEntry),
	}
}

// ListCalendars exposes each configured feed as one calendar. The first
// feed is reported as primary. An empty feed list is an unavailable
// gateway: there is nothing to classify against.
func (c *Client) ListCalendars(_ context.Context) ([]gateway.Calendar, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("%w: no ICS feeds configured", gateway.ErrUnavailable)
	}

	cals := make([]gateway.Calendar, 0, len(c.feeds))
	for i, f := range c.feeds {
		label := f.Label
		if label == "" {
			label = f.ID
		}
		cals = append(cals, gateway.Calendar{
			ID:       f.ID,
			Label:    label,
			Primary:  i == 0,
			ColorHex: f.Color,
		})
	}
	return cals, nil
}

// ListEventsForDay fetches one feed, parses its VEVENTs, and expands them
// into raw event records intersecting [dayStart, dayEnd]. maxResults caps
// the returned slice.
func (c *Client) ListEventsForDay(ctx context.Context, calendarID string, dayStart, dayEnd time.Time, maxResults int) ([]gateway.RawEvent, error) {
	feed, ok := c.feedByID(calendarID)
	if !ok {
		return nil, fmt.Errorf("unknown ICS feed %q", calendarID)
	}

	body, err := c.fetch(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.ID, err)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed.ID, err)
	}

	raws := make([]gateway.RawEvent, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			// Skip this VEVENT but keep parsing its siblings.
			appLog.Error("ics vevent parse failed", err, "feed", feed.ID)
			continue
		}
		raws = append(raws, expandToWindow(ev, dayStart, dayEnd)...)
	}

	if maxResults > 0 && len(raws) > maxResults {
		raws = raws[:maxResults]
	}

	appLog.Debug("ics feed expanded", "feed", feed.ID, "events", len(raws))
	return raws, nil
}

func (c *Client) feedByID(id string) (Feed, bool) {
	for _, f := range c.feeds {
		if f.ID == id {
			return f, true
		}
	}
	return Feed{}, false
}

// fetch performs a conditional GET against the feed URL, reusing the
// cached body on 304 Not Modified or network failure.
func (c *Client) fetch(ctx context.Context, feed Feed) ([]byte, error) {
	if feed.URL == "" {
		return nil, errors.New("feed URL is empty")
	}

	c.mu.Lock()
	cached := c.cache[feed.URL]
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if cached != nil && len(cached.body) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "feed", feed.ID, "url", redactURL(feed.URL))
			return cached.body, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[feed.URL] = &cacheEntry{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		}
		c.mu.Unlock()
		return body, nil

	case http.StatusNotModified:
		if cached == nil || len(cached.body) == 0 {
			return nil, errors.New("304 Not Modified but no cached body")
		}
		return cached.body, nil

	default:
		if cached != nil && len(cached.body) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "feed", feed.ID, "url", redactURL(feed.URL))
			return cached.body, nil
		}
		return nil, errors.New(resp.Status)
	}
}

// redactURL hides path and query of a feed URL for logging, since private
// ICS links embed secrets.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return u
	}
	return u[:i+3+j] + "/...(redacted)"
}
