// Package gcal implements the calendar gateway against the Google Calendar
// v3 REST API. It is strictly read-only.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"calwatch/internal/gateway"
	appLog "calwatch/internal/log"
)

const defaultAPIBase = "https://www.googleapis.com/calendar/v3"

// TokenSource supplies a bearer token for API calls. Credential and token
// lifecycle (OAuth flows, refresh, persistence) are entirely the caller's
// concern.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token string.
type StaticToken string

func (s StaticToken) Token(_ context.Context) (string, error) {
	return string(s), nil
}

// Client talks to the Google Calendar API over plain HTTP.
type Client struct {
	base   string
	tokens TokenSource
	http   *http.Client
}

// NewClient constructs a Client. endpoint may be empty to use the public
// API base; tests point it at a local server.
func NewClient(endpoint string, tokens TokenSource) *Client {
	if endpoint == "" {
		endpoint = defaultAPIBase
	}
	return &Client{
		base:   endpoint,
		tokens: tokens,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type calendarListResponse struct {
	Items []struct {
		ID              string `json:"id"`
		Summary         string `json:"summary"`
		Primary         bool   `json:"primary"`
		BackgroundColor string `json:"backgroundColor"`
	} `json:"items"`
}

type eventsResponse struct {
	Items []struct {
		ID          string  `json:"id"`
		Summary     string  `json:"summary"`
		Description string  `json:"description"`
		Location    string  `json:"location"`
		Start       rawTime `json:"start"`
		End         rawTime `json:"end"`
	} `json:"items"`
}

type rawTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// ListCalendars fetches the user's calendar list. Any transport, auth, or
// decode failure is reported as gateway.ErrUnavailable so the caller can
// abort the whole refresh cycle.
func (c *Client) ListCalendars(ctx context.Context) ([]gateway.Calendar, error) {
	var resp calendarListResponse
	if err := c.get(ctx, c.base+"/users/me/calendarList", &resp); err != nil {
		return nil, fmt.Errorf("%w: list calendars: %v", gateway.ErrUnavailable, err)
	}

	cals := make([]gateway.Calendar, 0, len(resp.Items))
	for _, it := range resp.Items {
		cals = append(cals, gateway.Calendar{
			ID:       it.ID,
			Label:    it.Summary,
			Primary:  it.Primary,
			ColorHex: it.BackgroundColor,
		})
	}

	appLog.Debug("gcal calendar list fetched", "count", len(cals))
	return cals, nil
}

// ListEventsForDay fetches single (recurrence-expanded) events for one
// calendar within [dayStart, dayEnd], capped at maxResults server-side.
func (c *Client) ListEventsForDay(ctx context.Context, calendarID string, dayStart, dayEnd time.Time, maxResults int) ([]gateway.RawEvent, error) {
	q := url.Values{}
	q.Set("timeMin", dayStart.UTC().Format(time.RFC3339))
	q.Set("timeMax", dayEnd.UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	if maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(maxResults))
	}

	u := c.base + "/calendars/" + url.PathEscape(calendarID) + "/events?" + q.Encode()

	var resp eventsResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("list events for %s: %w", calendarID, err)
	}

	events := make([]gateway.RawEvent, 0, len(resp.Items))
	for _, it := range resp.Items {
		events = append(events, gateway.RawEvent{
			ID:          it.ID,
			Summary:     it.Summary,
			Description: it.Description,
			Location:    it.Location,
			Start:       gateway.RawTime{DateTime: it.Start.DateTime, Date: it.Start.Date},
			End:         gateway.RawTime{DateTime: it.End.DateTime, Date: it.End.Date},
		})
	}

	return events, nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
