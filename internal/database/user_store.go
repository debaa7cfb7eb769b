package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// UserStore serves account records and the synced listening profile
// (top tracks, top artists, recent plays, playlists). A missing account
// surfaces as an error wrapping pgx.ErrNoRows.
type UserStore struct {
	db     pgPool
	logger *logrus.Logger
}

func NewUserStore(db pgPool, logger *logrus.Logger) *UserStore {
	return &UserStore{db: db, logger: logger}
}

func (s *UserStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.AccountProfile, error) {
	query := `
		SELECT user_id, display_name, country, avoid_explicit, created_at
		FROM users
		WHERE user_id = $1`

	var profile models.AccountProfile
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.DisplayName, &profile.Country,
		&profile.Preferences.AvoidExplicit, &profile.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, pgx.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	return &profile, nil
}

func (s *UserStore) GetTopTracks(ctx context.Context, userID uuid.UUID, limit int) ([]models.Track, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM user_top_tracks ut
		JOIN catalog_tracks ON id = ut.track_id
		WHERE ut.user_id = $1
		ORDER BY ut.rank ASC
		LIMIT $2`, trackColumns)

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top tracks: %w", err)
	}
	defer rows.Close()

	return scanUserTracks(rows)
}

func (s *UserStore) GetTopArtists(ctx context.Context, userID uuid.UUID, limit int) ([]models.Artist, error) {
	query := `
		SELECT a.id, a.name, a.genres, a.popularity
		FROM user_top_artists ua
		JOIN catalog_artists a ON a.id = ua.artist_id
		WHERE ua.user_id = $1
		ORDER BY ua.rank ASC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.Genres, &a.Popularity); err != nil {
			return nil, fmt.Errorf("failed to scan artist row: %w", err)
		}
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artist rows: %w", err)
	}
	return artists, nil
}

func (s *UserStore) GetRecentlyPlayed(ctx context.Context, userID uuid.UUID, limit int) ([]models.Track, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM listening_history lh
		JOIN catalog_tracks ON id = lh.track_id
		WHERE lh.user_id = $1
		ORDER BY lh.played_at DESC
		LIMIT $2`, trackColumns)

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recently played: %w", err)
	}
	defer rows.Close()

	return scanUserTracks(rows)
}

func (s *UserStore) GetPlaylists(ctx context.Context, userID uuid.UUID, limit int) ([]models.Playlist, error) {
	query := `
		SELECT id, name, track_count
		FROM user_playlists
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.TrackCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist row: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist rows: %w", err)
	}
	return playlists, nil
}

func (s *UserStore) GetPlaylistTracks(ctx context.Context, playlistID string, limit int) ([]models.Track, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM playlist_tracks pt
		JOIN catalog_tracks ON id = pt.track_id
		WHERE pt.playlist_id = $1
		ORDER BY pt.position ASC
		LIMIT $2`, trackColumns)

	rows, err := s.db.Query(ctx, query, playlistID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	defer rows.Close()

	return scanUserTracks(rows)
}

func scanUserTracks(rows pgx.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		var (
			t        models.Track
			features []byte
		)
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Artists, &t.Album, &t.Genres,
			&t.Popularity, &t.DurationMs, &t.Explicit,
			&t.PreviewURL, &t.ExternalURL, &features,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &t.Features); err != nil {
				return nil, fmt.Errorf("failed to decode track features: %w", err)
			}
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track rows: %w", err)
	}
	return tracks, nil
}
