// Package music defines the generic data structures and interfaces shared by
// every provider adapter. Implementations wrap Spotify, YouTube or any other
// external catalog. By depending on this package the rest of the application
// remains agnostic about the underlying platform; the fan-out coordinator in
// fanout.go never branches on provider identity.
package music

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Query describes the song a caller wants resolved. Album is optional and is
// only used to tighten matching when supplied. Queries are transient and are
// never persisted on their own.
type Query struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// Text returns the free-text form of the query used by providers whose search
// endpoints accept a single string.
func (q Query) Text() string {
	return strings.TrimSpace(q.Title + " " + q.Artist)
}

// RawCandidate is a single provider's proposed match for a query. It is owned
// by the adapter call that produced it and is discarded once merged into a
// candidate group. ProviderScore is the provider's own relevance signal scaled
// to [0,1], or zero when the provider exposes none.
type RawCandidate struct {
	ProviderID    string    `json:"provider_id"`
	ExternalID    string    `json:"external_id"`
	Title         string    `json:"title"`
	Artist        string    `json:"artist"`
	Album         string    `json:"album,omitempty"`
	URL           string    `json:"url"`
	ProviderScore float64   `json:"provider_score,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Key uniquely identifies a candidate across providers and doubles as the
// member identifier callers pass back when selecting a link.
func (c RawCandidate) Key() string {
	return c.ProviderID + ":" + c.ExternalID
}

// Provider is implemented by each adapter package. SearchTrack returns the
// provider's candidates for the query, or an error classified through
// ProviderError. Returning an empty slice with a nil error means the provider
// was reachable but had no matching content.
type Provider interface {
	// ID returns the stable provider identifier (e.g. "spotify") used in
	// candidate keys and persisted canonical links.
	ID() string

	// SearchTrack queries the provider. The context carries the per-provider
	// deadline imposed by the coordinator; adapters must not retry past it.
	SearchTrack(ctx context.Context, q Query) ([]RawCandidate, error)
}

// ErrorKind classifies adapter failures so the coordinator and metrics can
// treat them uniformly.
type ErrorKind string

const (
	// ErrKindTimeout marks a provider call that exceeded its deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindRateLimited marks a provider that rejected the call for quota
	// reasons. RetryAfter carries the backoff hint when the provider sent one.
	ErrKindRateLimited ErrorKind = "rate_limited"
	// ErrKindMalformed marks a response the adapter could not parse. The
	// adapter must degrade to this instead of emitting garbage candidates.
	ErrKindMalformed ErrorKind = "malformed"
	// ErrKindUnreachable covers transport failures and upstream 5xx errors.
	ErrKindUnreachable ErrorKind = "unreachable"
)

// ProviderError is the uniform failure shape adapters return. It wraps the
// underlying cause so callers can still inspect it with errors.As/Is.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClassifyStatus converts a non-200 HTTP response into a ProviderError. The
// Retry-After header, when present on a 429, is surfaced as a backoff hint so
// the caller can decide; adapters never sleep on it themselves.
func ClassifyStatus(provider string, resp *http.Response) error {
	kind := ErrKindUnreachable
	var retryAfter time.Duration
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = ErrKindRateLimited
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Unexpected 4xx means the request we shaped was not understood.
		kind = ErrKindMalformed
	}
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		RetryAfter: retryAfter,
		Err:        fmt.Errorf("status %s", resp.Status),
	}
}

// ClassifyTransport converts a transport-level error (or a decode failure when
// malformed is true) into a ProviderError. Context deadline errors become
// timeouts so the coordinator can report them distinctly.
func ClassifyTransport(provider string, err error, malformed bool) error {
	kind := ErrKindUnreachable
	switch {
	case malformed:
		kind = ErrKindMalformed
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		kind = ErrKindTimeout
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}
