// Package db provides the persistence layer for canonical song links. It
// wraps a SQLite database and exposes helper methods for the selection gate
// and the integrity checker. Callers are expected to open a single DB
// instance using New and reuse it for all operations.
//
// A canonical link's title, artist, album and chosen URL are frozen at
// selection time: the only columns any later process may change are
// validation_status and last_validated_at, and the only way the frozen
// columns are rewritten is a deliberate new selection for the same song ID.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ValidationStatus is the integrity checker's latest assessment of a link.
type ValidationStatus string

const (
	ValidationUnknown ValidationStatus = "unknown"
	ValidationAlive   ValidationStatus = "alive"
	ValidationDead    ValidationStatus = "dead"
)

// CanonicalSongLink is the durable record of a user's chosen provider link.
// A dead validation status is informational only; rows are never deleted so
// the stored metadata outlives the external source.
type CanonicalSongLink struct {
	SongID           string           `json:"song_id"`
	Title            string           `json:"title"`
	Artist           string           `json:"artist"`
	Album            string           `json:"album,omitempty"`
	ChosenProviderID string           `json:"chosen_provider_id"`
	ChosenExternalID string           `json:"chosen_external_id"`
	ChosenURL        string           `json:"chosen_url"`
	ChosenAt         time.Time        `json:"chosen_at"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	LastValidatedAt  *time.Time       `json:"last_validated_at,omitempty"`
}

// LinkStatus is the subset of a canonical link exposed by the status lookup.
type LinkStatus struct {
	SongID           string           `json:"song_id"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	LastValidatedAt  *time.Time       `json:"last_validated_at,omitempty"`
}

// DB wraps a sql.DB connection and exposes helper methods for the
// application's persistence layer.
type DB struct {
	*sql.DB
}

// New opens the SQLite database located at path. If the file does not exist
// it is created along with the required schema. The unique index on
// (chosen_provider_id, chosen_external_id) prevents duplicate canonical rows
// for the identical provider-song pair.
func New(path string) (*DB, error) {
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS canonical_links (
			song_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL DEFAULT '',
			chosen_provider_id TEXT NOT NULL,
			chosen_external_id TEXT NOT NULL,
			chosen_url TEXT NOT NULL,
			chosen_at TIMESTAMP NOT NULL,
			validation_status TEXT NOT NULL DEFAULT 'unknown',
			last_validated_at TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_link_provider_song ON canonical_links(chosen_provider_id, chosen_external_id)`,
	}
	for _, s := range stmts {
		if _, err := d.Exec(s); err != nil {
			d.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
	}
	return &DB{d}, nil
}

// SaveCanonicalLink persists link, overwriting the chosen fields of an
// existing row with the same song ID (last write wins for a playlist slot).
// An overwrite resets the validation state since the new URL has not been
// probed yet.
func (db *DB) SaveCanonicalLink(ctx context.Context, link CanonicalSongLink) error {
	_, err := db.ExecContext(ctx, `INSERT INTO canonical_links
		(song_id, title, artist, album, chosen_provider_id, chosen_external_id, chosen_url, chosen_at, validation_status, last_validated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(song_id) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			album=excluded.album,
			chosen_provider_id=excluded.chosen_provider_id,
			chosen_external_id=excluded.chosen_external_id,
			chosen_url=excluded.chosen_url,
			chosen_at=excluded.chosen_at,
			validation_status=excluded.validation_status,
			last_validated_at=NULL`,
		link.SongID, link.Title, link.Artist, link.Album,
		link.ChosenProviderID, link.ChosenExternalID, link.ChosenURL,
		link.ChosenAt, string(link.ValidationStatus))
	return err
}

// GetCanonicalLink retrieves the link stored under songID. sql.ErrNoRows is
// returned when the song is unknown so callers can respond with a 404.
func (db *DB) GetCanonicalLink(ctx context.Context, songID string) (CanonicalSongLink, error) {
	return scanLink(db.QueryRowContext(ctx, `SELECT song_id, title, artist, album,
		chosen_provider_id, chosen_external_id, chosen_url, chosen_at, validation_status, last_validated_at
		FROM canonical_links WHERE song_id=?`, songID))
}

// FindByProviderSong returns the canonical link already holding the given
// provider-song pair, if any. sql.ErrNoRows means the pair is unclaimed.
func (db *DB) FindByProviderSong(ctx context.Context, providerID, externalID string) (CanonicalSongLink, error) {
	return scanLink(db.QueryRowContext(ctx, `SELECT song_id, title, artist, album,
		chosen_provider_id, chosen_external_id, chosen_url, chosen_at, validation_status, last_validated_at
		FROM canonical_links WHERE chosen_provider_id=? AND chosen_external_id=?`, providerID, externalID))
}

// GetLinkStatus returns only the validation state of a stored link.
func (db *DB) GetLinkStatus(ctx context.Context, songID string) (LinkStatus, error) {
	var st LinkStatus
	var status string
	var validated sql.NullTime
	err := db.QueryRowContext(ctx, `SELECT song_id, validation_status, last_validated_at
		FROM canonical_links WHERE song_id=?`, songID).Scan(&st.SongID, &status, &validated)
	if err != nil {
		return LinkStatus{}, err
	}
	st.ValidationStatus = ValidationStatus(status)
	if validated.Valid {
		t := validated.Time
		st.LastValidatedAt = &t
	}
	return st, nil
}

// UpdateValidation records the integrity checker's verdict for songID. It is
// a single-row write touching only the two mutable columns. sql.ErrNoRows is
// returned when the song is unknown.
func (db *DB) UpdateValidation(ctx context.Context, songID string, status ValidationStatus, at time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE canonical_links SET validation_status=?, last_validated_at=? WHERE song_id=?`,
		string(status), at, songID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListCanonicalLinks returns every stored link ordered by song ID, used by
// the integrity checker's sweep.
func (db *DB) ListCanonicalLinks(ctx context.Context) ([]CanonicalSongLink, error) {
	rows, err := db.QueryContext(ctx, `SELECT song_id, title, artist, album,
		chosen_provider_id, chosen_external_id, chosen_url, chosen_at, validation_status, last_validated_at
		FROM canonical_links ORDER BY song_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []CanonicalSongLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (CanonicalSongLink, error) {
	var link CanonicalSongLink
	var status string
	var validated sql.NullTime
	err := row.Scan(&link.SongID, &link.Title, &link.Artist, &link.Album,
		&link.ChosenProviderID, &link.ChosenExternalID, &link.ChosenURL,
		&link.ChosenAt, &status, &validated)
	if err != nil {
		return CanonicalSongLink{}, err
	}
	link.ValidationStatus = ValidationStatus(status)
	if validated.Valid {
		t := validated.Time
		link.LastValidatedAt = &t
	}
	return link, nil
}
