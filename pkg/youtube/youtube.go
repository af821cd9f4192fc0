// Package youtube implements the music.Provider contract using the YouTube
// Data API search endpoint. An API key must be provided when constructing the
// client. Network calls go through the provided http.Client so tests can
// substitute a fake transport.
package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"SongVault-Go/pkg/music"
)

// ProviderID identifies this adapter in candidate keys and canonical links.
const ProviderID = "youtube"

// searchURL is a variable so tests can point the adapter at a local server.
var searchURL = "https://www.googleapis.com/youtube/v3/search"

// Client provides access to the YouTube Data API. If HTTP is nil a client
// with a 10 second timeout is allocated on first use. Limiter, when set,
// guards the API key's daily quota.
type Client struct {
	Key     string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// Ensure interface compliance at compile time.
var _ music.Provider = (*Client)(nil)

// ID implements music.Provider.
func (c *Client) ID() string { return ProviderID }

// SearchTrack queries the YouTube search API and converts the first page of
// results into raw candidates. A malformed response body degrades into a
// classified provider error, never partial candidates.
func (c *Client) SearchTrack(ctx context.Context, q music.Query) ([]music.RawCandidate, error) {
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, music.ClassifyTransport(ProviderID, err, false)
		}
	}
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"maxResults": {"5"},
		"q":          {q.Text()},
		"key":        {c.Key},
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	resp, err := client.Do(req)
	if err != nil {
		return nil, music.ClassifyTransport(ProviderID, err, false)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, music.ClassifyStatus(ProviderID, resp)
	}
	var body struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, music.ClassifyTransport(ProviderID, err, true)
	}
	now := time.Now()
	cands := make([]music.RawCandidate, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.VideoID == "" {
			continue
		}
		cands = append(cands, music.RawCandidate{
			ProviderID: ProviderID,
			ExternalID: item.ID.VideoID,
			Title:      item.Snippet.Title,
			// YouTube has no artist field; the channel is the closest signal.
			Artist:    item.Snippet.ChannelTitle,
			URL:       "https://youtu.be/" + item.ID.VideoID,
			FetchedAt: now,
		})
	}
	return cands, nil
}
