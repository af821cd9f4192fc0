package main

// Integration tests spin up the full HTTP server with an in-memory database
// and exercise the typical flow: resolve a query, select a candidate and read
// back the stored canonical link and its status. httptest keeps everything
// off the network.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SongVault-Go/pkg/db"
	"SongVault-Go/pkg/handlers"
	"SongVault-Go/pkg/music"
	"SongVault-Go/pkg/resolver"
	"SongVault-Go/pkg/session"
)

type stubProvider struct {
	id    string
	cands []music.RawCandidate
}

func (p stubProvider) ID() string { return p.id }

func (p stubProvider) SearchTrack(context.Context, music.Query) ([]music.RawCandidate, error) {
	return p.cands, nil
}

// TestIntegrationResolveSelect exercises /api/resolve, /api/select and the
// song lookups end-to-end with a real database.
func TestIntegrationResolveSelect(t *testing.T) {
	cand := music.RawCandidate{
		ProviderID: "spotify",
		ExternalID: "tr1",
		Title:      "Bohemian Rhapsody",
		Artist:     "Queen",
		URL:        "https://open.spotify.com/track/tr1",
		FetchedAt:  time.Now().UTC(),
	}
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	app := &handlers.Application{
		Resolver: &resolver.Resolver{
			Coordinator: music.Coordinator{Providers: []music.Provider{stubProvider{id: "spotify", cands: []music.RawCandidate{cand}}}},
			Sessions:    session.NewStore(time.Minute),
			DB:          database,
		},
		DB: database,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/resolve", app.ResolveJSON)
	mux.HandleFunc("/api/select", app.SelectJSON)
	mux.HandleFunc("/api/songs/", app.SongsRouter)
	srv := httptest.NewServer(handlers.SecurityHeaders(mux))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/api/resolve", "application/json",
		strings.NewReader(`{"title":"Bohemian Rhapsody","artist":"Queen"}`))
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("resolve failed %v %d", err, res.StatusCode)
	}
	var sess session.Session
	if err := json.NewDecoder(res.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	res.Body.Close()
	if len(sess.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(sess.Groups))
	}

	selBody := `{"session_token":"` + sess.Token +
		`","group_id":"` + sess.Groups[0].GroupID +
		`","member_id":"` + sess.Groups[0].Members[0].Key() + `"}`
	res, err = http.Post(srv.URL+"/api/select", "application/json", strings.NewReader(selBody))
	if err != nil || res.StatusCode != http.StatusCreated {
		t.Fatalf("select failed %v %d", err, res.StatusCode)
	}
	var link db.CanonicalSongLink
	if err := json.NewDecoder(res.Body).Decode(&link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	res.Body.Close()
	if link.Title != "Bohemian Rhapsody" || link.ChosenURL != cand.URL {
		t.Fatalf("unexpected link %+v", link)
	}

	res, err = http.Get(srv.URL + "/api/songs/" + link.SongID)
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("song lookup failed %v %d", err, res.StatusCode)
	}
	res.Body.Close()

	res, err = http.Get(srv.URL + "/api/songs/" + link.SongID + "/status")
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("status lookup failed %v %d", err, res.StatusCode)
	}
	var st db.LinkStatus
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	res.Body.Close()
	if st.ValidationStatus != db.ValidationUnknown {
		t.Fatalf("freshly selected link should be unknown, got %s", st.ValidationStatus)
	}
}
