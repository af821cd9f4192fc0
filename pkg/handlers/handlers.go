// This file contains the JSON API handlers for song resolution, candidate
// selection and canonical link lookups.

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"SongVault-Go/pkg/db"
	"SongVault-Go/pkg/music"
	"SongVault-Go/pkg/resolver"
	"SongVault-Go/pkg/session"
)

// Application holds the dependencies shared by the HTTP handlers.
type Application struct {
	Resolver *resolver.Resolver
	DB       *db.DB
	Log      *logrus.Logger
}

// Resolve response shapes. Members carry an explicit member_id (the value
// clients pass back to /api/select) and groups a distinct-provider count so
// clients need not derive either from the raw candidate fields.
type memberDTO struct {
	MemberID   string `json:"member_id"`
	ProviderID string `json:"provider_id"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	URL        string `json:"url"`
}

type groupDTO struct {
	GroupID        string      `json:"group_id"`
	Title          string      `json:"title"`
	Artist         string      `json:"artist"`
	Album          string      `json:"album,omitempty"`
	RelevanceScore float64     `json:"relevance_score"`
	Providers      int         `json:"providers"`
	Members        []memberDTO `json:"members"`
}

type resolveResponse struct {
	SessionToken string     `json:"session_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Groups       []groupDTO `json:"groups"`
}

func toResolveResponse(sess session.Session) resolveResponse {
	out := resolveResponse{
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt,
		Groups:       make([]groupDTO, 0, len(sess.Groups)),
	}
	for _, g := range sess.Groups {
		dto := groupDTO{
			GroupID:        g.GroupID,
			Title:          g.Title,
			Artist:         g.Artist,
			Album:          g.Album,
			RelevanceScore: g.RelevanceScore,
			Providers:      g.ProviderCount(),
			Members:        make([]memberDTO, 0, len(g.Members)),
		}
		for _, m := range g.Members {
			dto.Members = append(dto.Members, memberDTO{
				MemberID:   m.Key(),
				ProviderID: m.ProviderID,
				ExternalID: m.ExternalID,
				Title:      m.Title,
				Artist:     m.Artist,
				Album:      m.Album,
				URL:        m.URL,
			})
		}
		out.Groups = append(out.Groups, dto)
	}
	return out
}

// ResolveJSON accepts a search query, fans it out across the configured
// providers and returns a ranked, deduplicated candidate list together with
// a session token the client later uses to select a candidate.
//
// POST /api/resolve {"title": "...", "artist": "...", "album": "..."}
func (app *Application) ResolveJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
		Album  string `json:"album"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.Artist == "" {
		respondJSONError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	sess, err := app.Resolver.Resolve(r.Context(), music.Query{
		Title:  req.Title,
		Artist: req.Artist,
		Album:  req.Album,
	})
	switch {
	case errors.Is(err, music.ErrAllProvidersFailed):
		respondJSONError(w, http.StatusBadGateway, "no results from any source, try again")
		return
	case errors.Is(err, music.ErrNoCandidates):
		respondJSONError(w, http.StatusNotFound, "no matches found")
		return
	case err != nil:
		app.logger().WithError(err).Error("resolve failed")
		respondJSONError(w, http.StatusInternalServerError, "resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, toResolveResponse(sess))
}

// SelectJSON finalizes a resolution: the client names a group and member
// from a live session and the chosen candidate's metadata is frozen into a
// canonical link. An optional song_id targets an existing playlist slot,
// overwriting its previous link.
//
// POST /api/select {"session_token": "...", "group_id": "...", "member_id": "...", "song_id": "..."}
func (app *Application) SelectJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		SessionToken string `json:"session_token"`
		GroupID      string `json:"group_id"`
		MemberID     string `json:"member_id"`
		SongID       string `json:"song_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionToken == "" || req.GroupID == "" || req.MemberID == "" {
		respondJSONError(w, http.StatusBadRequest, "session_token, group_id and member_id are required")
		return
	}

	link, err := app.Resolver.Select(r.Context(), resolver.Selection{
		SessionToken: req.SessionToken,
		GroupID:      req.GroupID,
		MemberID:     req.MemberID,
		SongID:       req.SongID,
	})
	switch {
	case errors.Is(err, session.ErrSessionExpired), errors.Is(err, session.ErrSessionNotFound):
		respondJSONError(w, http.StatusGone, "session expired, please search again")
		return
	case errors.Is(err, resolver.ErrInvalidSelection):
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, resolver.ErrLinkConflict):
		respondJSONError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		app.logger().WithError(err).Error("select failed")
		respondJSONError(w, http.StatusInternalServerError, "selection failed")
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// SongJSON returns the canonical link for a song by its ID.
//
// GET /api/songs/{id}
func (app *Application) SongJSON(w http.ResponseWriter, r *http.Request) {
	songID, rest := splitSongPath(r.URL.Path)
	if songID == "" || rest != "" {
		respondJSONError(w, http.StatusNotFound, "not found")
		return
	}
	link, err := app.DB.GetCanonicalLink(r.Context(), songID)
	if errors.Is(err, sql.ErrNoRows) {
		respondJSONError(w, http.StatusNotFound, "unknown song")
		return
	}
	if err != nil {
		app.logger().WithError(err).Error("song lookup failed")
		respondJSONError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// LinkStatusJSON returns the latest integrity assessment of a song's link.
//
// GET /api/songs/{id}/status
func (app *Application) LinkStatusJSON(w http.ResponseWriter, r *http.Request) {
	songID, rest := splitSongPath(r.URL.Path)
	if songID == "" || rest != "status" {
		respondJSONError(w, http.StatusNotFound, "not found")
		return
	}
	status, err := app.DB.GetLinkStatus(r.Context(), songID)
	if errors.Is(err, sql.ErrNoRows) {
		respondJSONError(w, http.StatusNotFound, "unknown song")
		return
	}
	if err != nil {
		app.logger().WithError(err).Error("status lookup failed")
		respondJSONError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SongsRouter dispatches /api/songs/{id} and /api/songs/{id}/status, which
// share a prefix the standard mux cannot split on its own.
func (app *Application) SongsRouter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_, rest := splitSongPath(r.URL.Path)
	if rest == "status" {
		app.LinkStatusJSON(w, r)
		return
	}
	app.SongJSON(w, r)
}

// splitSongPath extracts the song ID and any trailing path segment from
// /api/songs/{id}[/...].
func splitSongPath(path string) (songID, rest string) {
	p := strings.TrimPrefix(path, "/api/songs/")
	if p == path {
		return "", ""
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], strings.Trim(p[i+1:], "/")
	}
	return p, ""
}

func (app *Application) logger() *logrus.Logger {
	if app.Log != nil {
		return app.Log
	}
	return logrus.StandardLogger()
}
