// Package applemusic implements the music.Provider contract using the public
// iTunes Search API, which requires no authentication. The zero value Client
// is ready for use; an http.Client with a reasonable timeout is created when
// nil.
package applemusic

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
const ProviderID = "applemusic"

const searchURL = "https://itunes.apple.com/search"

// Client provides access to Apple's iTunes Search API.
type Client struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// Ensure interface compliance at compile time.
var _ music.Provider = (*Client)(nil)

// ID implements music.Provider.
func (c *Client) ID() string { return ProviderID }

// SearchTrack queries the iTunes endpoint and converts results into raw
// candidates. iTunes reports the album name, which tightens deduplication
// against providers that do not.
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
		"term":   {q.Text()},
		"entity": {"song"},
		"limit":  {"5"},
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
		Results []struct {
			TrackID        int64  `json:"trackId"`
			TrackName      string `json:"trackName"`
			ArtistName     string `json:"artistName"`
			CollectionName string `json:"collectionName"`
			TrackViewURL   string `json:"trackViewUrl"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, music.ClassifyTransport(ProviderID, err, true)
	}
	now := time.Now()
	cands := make([]music.RawCandidate, 0, len(body.Results))
	for _, item := range body.Results {
		if item.TrackID == 0 {
			continue
		}
		cands = append(cands, music.RawCandidate{
			ProviderID: ProviderID,
			ExternalID: fmt.Sprintf("%d", item.TrackID),
			Title:      item.TrackName,
			Artist:     item.ArtistName,
			Album:      item.CollectionName,
			URL:        item.TrackViewURL,
			FetchedAt:  now,
		})
	}
	return cands, nil
}
