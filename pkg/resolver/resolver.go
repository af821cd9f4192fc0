// Package resolver exposes the two boundary operations of the resolution
// subsystem: Resolve, which fans a query out to the providers and issues a
// ranked resolution session, and Select, the persistence gate that freezes a
// user's chosen candidate into an immutable canonical song link.
package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"SongVault-Go/pkg/db"
	"SongVault-Go/pkg/match"
	"SongVault-Go/pkg/metrics"
	"SongVault-Go/pkg/music"
	"SongVault-Go/pkg/session"
)

// ErrInvalidSelection means the group or member referenced by a selection is
// not part of the session it names.
var ErrInvalidSelection = errors.New("invalid selection")

// ErrLinkConflict is returned when a slot overwrite targets a provider-song
// pair that is already canonical under a different song ID. The pair's unique
// index forbids two rows for the same external track.
var ErrLinkConflict = errors.New("provider link already canonical for another song")

// Selection identifies the candidate a user chose from a resolution session.
// SongID is optional: when set, the selection overwrites that existing song's
// canonical link (the playlist-slot overwrite); when empty a new song ID is
// generated.
type Selection struct {
	SessionToken string `json:"session_token"`
	GroupID      string `json:"group_id"`
	MemberID     string `json:"member_id"`
	SongID       string `json:"song_id,omitempty"`
}

// Resolver wires the fan-out coordinator, the match pipeline, the session
// store and the canonical link storage together. All fields must be set.
type Resolver struct {
	Coordinator music.Coordinator
	Grouper     match.Grouper
	Ranker      match.Ranker
	Sessions    *session.Store
	DB          *db.DB
	Log         *logrus.Logger
}

// Resolve runs the full pipeline for a query and returns the session the
// caller picks a candidate from. Partial provider failure is invisible here:
// as long as one provider produced candidates the ranked result is usable.
func (r *Resolver) Resolve(ctx context.Context, q music.Query) (session.Session, error) {
	log := r.logger()
	cands, err := r.Coordinator.SearchTrack(ctx, q)
	if err != nil {
		switch {
		case errors.Is(err, music.ErrNoCandidates):
			metrics.ResolutionsTotal.WithLabelValues("no_candidates").Inc()
		case errors.Is(err, music.ErrAllProvidersFailed):
			metrics.ResolutionsTotal.WithLabelValues("all_failed").Inc()
		default:
			metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		}
		return session.Session{}, err
	}

	groups := r.Ranker.Rank(q, r.Grouper.Group(cands))
	sess, err := r.Sessions.Create(q, groups)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}
	metrics.ResolutionsTotal.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{
		"title":      q.Title,
		"artist":     q.Artist,
		"candidates": len(cands),
		"groups":     len(groups),
	}).Info("resolution session created")
	return sess, nil
}

// Select validates the chosen candidate against its session and persists the
// canonical link with the member's metadata copied verbatim. Session errors
// (unknown or expired token) pass through untouched so callers can tell the
// user to re-search. Selecting a provider-song pair that already has a
// canonical row returns that existing row instead of creating a duplicate,
// unless the selection explicitly targets a song ID.
func (r *Resolver) Select(ctx context.Context, sel Selection) (db.CanonicalSongLink, error) {
	sess, err := r.Sessions.Lookup(sel.SessionToken)
	if err != nil {
		return db.CanonicalSongLink{}, err
	}

	var member music.RawCandidate
	found := false
	for _, g := range sess.Groups {
		if g.GroupID != sel.GroupID {
			continue
		}
		member, found = g.Member(sel.MemberID)
		break
	}
	if !found {
		return db.CanonicalSongLink{}, fmt.Errorf("%w: group %q member %q", ErrInvalidSelection, sel.GroupID, sel.MemberID)
	}

	existing, err := r.DB.FindByProviderSong(ctx, member.ProviderID, member.ExternalID)
	switch {
	case err == nil && sel.SongID == "":
		// The pair already has a canonical row; reuse it.
		return existing, nil
	case err == nil && existing.SongID != sel.SongID:
		// A slot overwrite cannot steal a pair that is canonical under
		// another song without tripping the unique index.
		return db.CanonicalSongLink{}, fmt.Errorf("%w: %s:%s belongs to song %s",
			ErrLinkConflict, member.ProviderID, member.ExternalID, existing.SongID)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return db.CanonicalSongLink{}, err
	}

	songID := sel.SongID
	if songID == "" {
		songID = uuid.NewString()
	}
	link := db.CanonicalSongLink{
		SongID:           songID,
		Title:            member.Title,
		Artist:           member.Artist,
		Album:            member.Album,
		ChosenProviderID: member.ProviderID,
		ChosenExternalID: member.ExternalID,
		ChosenURL:        member.URL,
		ChosenAt:         time.Now().UTC(),
		ValidationStatus: db.ValidationUnknown,
	}
	if err := r.DB.SaveCanonicalLink(ctx, link); err != nil {
		return db.CanonicalSongLink{}, fmt.Errorf("persist canonical link: %w", err)
	}
	metrics.SelectionsTotal.Inc()
	r.logger().WithFields(logrus.Fields{
		"song_id":  songID,
		"provider": member.ProviderID,
		"url":      member.URL,
	}).Info("canonical link persisted")
	return link, nil
}

func (r *Resolver) logger() *logrus.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}
