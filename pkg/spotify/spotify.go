// Package spotify wraps the official Spotify client library to implement the
// music.Provider contract. Authentication uses the client credentials flow,
// which allows catalog searches without a user login. The wrapped library does
// not accept a context so cancellation is checked explicitly before each call.
package spotify

import (
	"context"
	"time"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"SongVault-Go/pkg/music"
)

// ProviderID identifies this adapter in candidate keys and canonical links.
const ProviderID = "spotify"

// searcher defines the subset of the spotify.Client used by this package.
// It allows the concrete client to be replaced in tests.
type searcher interface {
	Search(query string, t spotify.SearchType) (*spotify.SearchResult, error)
}

// SpotifyClient adapts the official Spotify client to the provider contract.
type SpotifyClient struct {
	client  searcher
	limiter *rate.Limiter
}

// Compile-time interface check.
var _ music.Provider = (*SpotifyClient)(nil)

// NewSpotifyClient authenticates using the client credentials flow and
// returns a client ready for API calls. clientID and clientSecret come from
// the Spotify developer dashboard. The limiter keeps the adapter inside
// Spotify's request quota without retrying internally.
func NewSpotifyClient(clientID, clientSecret string) (*SpotifyClient, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotify.TokenURL,
	}
	token, err := config.Token(context.Background())
	if err != nil {
		return nil, err
	}
	c := spotify.Authenticator{}.NewClient(token)
	return &SpotifyClient{
		client:  &c,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}, nil
}

// ID implements music.Provider.
func (sc *SpotifyClient) ID() string { return ProviderID }

// SearchTrack queries the Spotify catalog and converts the hits into raw
// candidates. An empty result set is a success with no candidates.
func (sc *SpotifyClient) SearchTrack(ctx context.Context, q music.Query) ([]music.RawCandidate, error) {
	if sc.limiter != nil {
		if err := sc.limiter.Wait(ctx); err != nil {
			return nil, music.ClassifyTransport(ProviderID, err, false)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, music.ClassifyTransport(ProviderID, err, false)
	}
	results, err := sc.client.Search(q.Text(), spotify.SearchTypeTrack)
	if err != nil {
		return nil, music.ClassifyTransport(ProviderID, err, false)
	}
	if results.Tracks == nil {
		return nil, nil
	}
	now := time.Now()
	cands := make([]music.RawCandidate, 0, len(results.Tracks.Tracks))
	for _, t := range results.Tracks.Tracks {
		artist := ""
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		url := t.ExternalURLs["spotify"]
		if url == "" {
			url = "https://open.spotify.com/track/" + string(t.ID)
		}
		cands = append(cands, music.RawCandidate{
			ProviderID:    ProviderID,
			ExternalID:    string(t.ID),
			Title:         t.Name,
			Artist:        artist,
			Album:         t.Album.Name,
			URL:           url,
			ProviderScore: float64(t.Popularity) / 100,
			FetchedAt:     now,
		})
	}
	return cands, nil
}
