package tidal

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

// TestSearchTrackSuccess parses a Tidal response into candidates.
func TestSearchTrackSuccess(t *testing.T) {
	data := `{"tracks":{"items":[{"id":9,"title":"Bohemian Rhapsody","artist":{"name":"Queen"},"album":{"title":"A Night at the Opera"}}]}}`
	c := &Client{Token: "tok", HTTP: &http.Client{Transport: rt{status: 200, body: data}}}
	cands, err := c.SearchTrack(context.Background(), music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 || cands[0].Album != "A Night at the Opera" || cands[0].URL != "https://tidal.com/browse/track/9" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
}

// TestSearchTrackMissingToken fails fast without a network call.
func TestSearchTrackMissingToken(t *testing.T) {
	c := &Client{}
	_, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	var pe *music.ProviderError
	if !errors.As(err, &pe) || pe.Provider != ProviderID {
		t.Fatalf("expected provider error, got %v", err)
	}
}

// TestSearchTrackMalformed degrades invalid JSON into a malformed error.
func TestSearchTrackMalformed(t *testing.T) {
	c := &Client{Token: "tok", HTTP: &http.Client{Transport: rt{status: 200, body: `<html>`}}}
	_, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	var pe *music.ProviderError
	if !errors.As(err, &pe) || pe.Kind != music.ErrKindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
