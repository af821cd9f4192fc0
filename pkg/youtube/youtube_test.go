package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"SongVault-Go/pkg/music"
)

type rt struct {
	status  int
	body    string
	headers map[string]string
}

func (r rt) RoundTrip(*http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	for k, v := range r.headers {
		rec.Header().Set(k, v)
	}
	rec.WriteHeader(r.status)
	rec.WriteString(r.body)
	return rec.Result(), nil
}

// TestSearchTrackSuccess verifies JSON is parsed into candidates.
func TestSearchTrackSuccess(t *testing.T) {
	data := `{"items":[{"id":{"videoId":"abc"},"snippet":{"title":"Bohemian Rhapsody","channelTitle":"Queen Official"}}]}`
	c := &Client{Key: "k", HTTP: &http.Client{Transport: rt{status: 200, body: data}}}
	cands, err := c.SearchTrack(context.Background(), music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 || cands[0].ExternalID != "abc" || cands[0].URL != "https://youtu.be/abc" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
}

// TestSearchTrackEmpty ensures zero items is a success with no candidates.
func TestSearchTrackEmpty(t *testing.T) {
	c := &Client{Key: "k", HTTP: &http.Client{Transport: rt{status: 200, body: `{"items":[]}`}}}
	cands, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	if err != nil || len(cands) != 0 {
		t.Fatalf("expected empty success, got %v %+v", err, cands)
	}
}

// TestSearchTrackRateLimited checks a 429 surfaces as a rate-limit error with
// the Retry-After hint.
func TestSearchTrackRateLimited(t *testing.T) {
	c := &Client{Key: "k", HTTP: &http.Client{Transport: rt{status: 429, headers: map[string]string{"Retry-After": "30"}}}}
	_, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	var pe *music.ProviderError
	if !errors.As(err, &pe) || pe.Kind != music.ErrKindRateLimited {
		t.Fatalf("expected rate-limited error, got %v", err)
	}
	if pe.RetryAfter.Seconds() != 30 {
		t.Errorf("expected 30s retry hint, got %v", pe.RetryAfter)
	}
}

// TestSearchTrackMalformed ensures invalid JSON degrades into a malformed
// provider error rather than partial candidates.
func TestSearchTrackMalformed(t *testing.T) {
	c := &Client{Key: "k", HTTP: &http.Client{Transport: rt{status: 200, body: `{"items":[{`}}}
	_, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	var pe *music.ProviderError
	if !errors.As(err, &pe) || pe.Kind != music.ErrKindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

// TestSearchTrackConcurrent runs concurrent searches on one shared adapter,
// the way the fan-out coordinator calls it. SearchTrack must not mutate the
// receiver, so this passes under the race detector even with a zero HTTP
// field forcing the default-client path.
func TestSearchTrackConcurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()
	old := searchURL
	searchURL = srv.URL
	defer func() { searchURL = old }()

	c := &Client{Key: "k"}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
}

// TestSearchTrackServerError classifies a 500 as unreachable.
func TestSearchTrackServerError(t *testing.T) {
	c := &Client{Key: "k", HTTP: &http.Client{Transport: rt{status: 500}}}
	_, err := c.SearchTrack(context.Background(), music.Query{Title: "x", Artist: "y"})
	var pe *music.ProviderError
	if !errors.As(err, &pe) || pe.Kind != music.ErrKindUnreachable {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}
