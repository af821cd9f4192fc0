// Package tidal implements the music.Provider contract using the public
// Tidal API. Only track search is supported. A token obtained from the Tidal
// web player is required; the client does not perform authentication itself.
package tidal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"SongVault-Go/pkg/music"
)

// ProviderID identifies this adapter in candidate keys and canonical links.
const ProviderID = "tidal"

const searchURL = "https://api.tidal.com/v1/search/tracks"

// Client queries the Tidal API. CountryCode controls localisation and
// defaults to "US". If HTTP is nil SearchTrack creates a client with a 10
// second timeout.
type Client struct {
	Token       string
	CountryCode string
	HTTP        *http.Client
	Limiter     *rate.Limiter
}

// Ensure interface compliance at compile time.
var _ music.Provider = (*Client)(nil)

// ID implements music.Provider.
func (c *Client) ID() string { return ProviderID }

// SearchTrack executes a search against Tidal and returns up to five
// candidates, including the album so deduplication can use it.
func (c *Client) SearchTrack(ctx context.Context, q music.Query) ([]music.RawCandidate, error) {
	if c.Token == "" {
		return nil, &music.ProviderError{Provider: ProviderID, Kind: music.ErrKindUnreachable, Err: errors.New("token required")}
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, music.ClassifyTransport(ProviderID, err, false)
		}
	}
	cc := c.CountryCode
	if cc == "" {
		cc = "US"
	}
	params := url.Values{
		"query":       {q.Text()},
		"limit":       {"5"},
		"offset":      {"0"},
		"countryCode": {cc},
		"token":       {c.Token},
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
		Tracks struct {
			Items []struct {
				ID     int64  `json:"id"`
				Title  string `json:"title"`
				Artist struct {
					Name string `json:"name"`
				} `json:"artist"`
				Album struct {
					Title string `json:"title"`
				} `json:"album"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Invalid JSON means the API changed or the token is invalid.
		return nil, music.ClassifyTransport(ProviderID, err, true)
	}
	now := time.Now()
	cands := make([]music.RawCandidate, 0, len(body.Tracks.Items))
	for _, item := range body.Tracks.Items {
		cands = append(cands, music.RawCandidate{
			ProviderID: ProviderID,
			ExternalID: fmt.Sprintf("%d", item.ID),
			Title:      item.Title,
			Artist:     item.Artist.Name,
			Album:      item.Album.Title,
			URL:        fmt.Sprintf("https://tidal.com/browse/track/%d", item.ID),
			FetchedAt:  now,
		})
	}
	return cands, nil
}
