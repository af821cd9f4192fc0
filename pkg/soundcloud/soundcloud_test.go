package soundcloud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"SongVault-Go/pkg/music"
)

type rt struct {
	status int
	body   string
}

func (r rt) RoundTrip(*http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(r.status)
	rec.WriteString(r.body)
	return rec.Result(), nil
}

// TestSearchTrackSuccess parses a search response into candidates.
func TestSearchTrackSuccess(t *testing.T) {
	data := `{"collection":[{"id":42,"title":"Bohemian Rhapsody","permalink_url":"https://soundcloud.com/queen/bohemian","user":{"username":"Queen"}}]}`
	c := &Client{ClientID: "id", HTTP: &http.Client{Transport: rt{status: 200, body: data}}}
	cands, err := c.SearchTrack(context.Background(), music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 || cands[0].ExternalID != "42" || cands[0].URL != "https://soundcloud.com/queen/bohemian" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
}

// TestSearchTrackEmpty treats an empty collection as a success.
func TestSearchTrackEmpty(t *testing.T) {
	c := &Client{ClientID: "id", HTTP: &http.Client{Transport: rt{status: 200, body: `{"collection":[]}`}}}
	cands, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	if err != nil || len(cands) != 0 {
		t.Fatalf("expected empty success, got %v %+v", err, cands)
	}
}

// TestSearchTrackMalformed degrades bad JSON into a malformed error.
func TestSearchTrackMalformed(t *testing.T) {
	c := &Client{ClientID: "id", HTTP: &http.Client{Transport: rt{status: 200, body: `not json`}}}
	_, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	var pe *music.ProviderError
	if !errors.As(err, &pe) || pe.Kind != music.ErrKindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
