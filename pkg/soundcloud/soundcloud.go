// Package soundcloud implements the music.Provider contract using the
// SoundCloud public API. A client_id must be supplied via configuration. If
// HTTP is nil a client with a 10 second timeout is used, so the zero value is
// ready for basic use once ClientID is set.
package soundcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"SongVault-Go/pkg/music"
)

// ProviderID identifies this adapter in candidate keys and canonical links.
const ProviderID = "soundcloud"

const searchURL = "https://api-v2.soundcloud.com/search/tracks"

// Client talks to the SoundCloud API.
type Client struct {
	ClientID string
	HTTP     *http.Client
	Limiter  *rate.Limiter
}

// Ensure interface compliance at compile time.
var _ music.Provider = (*Client)(nil)

// ID implements music.Provider.
func (c *Client) ID() string { return ProviderID }

// SearchTrack queries the SoundCloud search API and converts results into
// raw candidates.
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
		"q":         {q.Text()},
		"client_id": {c.ClientID},
		"limit":     {"5"},
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
		Collection []struct {
			ID           int64  `json:"id"`
			Title        string `json:"title"`
			PermalinkURL string `json:"permalink_url"`
			User         struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, music.ClassifyTransport(ProviderID, err, true)
	}
	now := time.Now()
	cands := make([]music.RawCandidate, 0, len(body.Collection))
	for _, item := range body.Collection {
		u := item.PermalinkURL
		if u == "" {
			u = fmt.Sprintf("https://soundcloud.com/tracks/%d", item.ID)
		}
		cands = append(cands, music.RawCandidate{
			ProviderID: ProviderID,
			ExternalID: fmt.Sprintf("%d", item.ID),
			Title:      item.Title,
			Artist:     item.User.Username,
			URL:        u,
			FetchedAt:  now,
		})
	}
	return cands, nil
}
