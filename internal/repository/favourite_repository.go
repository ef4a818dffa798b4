package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/pkg/database"
)

// favouriteRepository implements FavouriteRepository interface
type favouriteRepository struct {
	db *database.Postgres
}

// NewFavouriteRepository creates a new favourite repository
func NewFavouriteRepository(db *database.Postgres) FavouriteRepository {
	return &favouriteRepository{db: db}
}

// Create inserts a favourite. The (user_id, media_id) unique constraint
// rejects a second insert of the same pair.
func (r *favouriteRepository) Create(ctx context.Context, favourite *domain.Favourite) error {
	query := `
		INSERT INTO favourites (id, user_id, media_id, media_url, media_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if favourite.ID == "" {
		favourite.ID = uuid.New().String()
	}
	if favourite.CreatedAt.IsZero() {
		favourite.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		favourite.ID,
		favourite.UserID,
		favourite.MediaID,
		favourite.MediaURL,
		favourite.MediaType,
		favourite.CreatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraintFavouriteUnique {
			return fmt.Errorf("media %d already favourited by user %s: %w", favourite.MediaID, favourite.UserID, ErrDuplicateFavourite)
		}
		return fmt.Errorf("failed to create favourite: %w", err)
	}

	return nil
}

// ListByUser returns the user's favourites, oldest first
func (r *favouriteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Favourite, error) {
	query := `
		SELECT id, user_id, media_id, media_url, media_type, created_at
		FROM favourites
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favourites by user id: %w", err)
	}
	defer rows.Close()

	favourites := make([]*domain.Favourite, 0)
	for rows.Next() {
		favourite := &domain.Favourite{}
		err := rows.Scan(
			&favourite.ID,
			&favourite.UserID,
			&favourite.MediaID,
			&favourite.MediaURL,
			&favourite.MediaType,
			&favourite.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favourite: %w", err)
		}
		favourites = append(favourites, favourite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favourites: %w", err)
	}

	return favourites, nil
}

// ListMediaIDs returns the media ids the user has favourited
func (r *favouriteRepository) ListMediaIDs(ctx context.Context, userID string) ([]int64, error) {
	query := `SELECT media_id FROM favourites WHERE user_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favourite ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favourite id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favourite ids: %w", err)
	}

	return ids, nil
}

// Delete removes the user's favourite for mediaID
func (r *favouriteRepository) Delete(ctx context.Context, userID string, mediaID int64) error {
	query := `DELETE FROM favourites WHERE user_id = $1 AND media_id = $2`

	result, err := r.db.DB.ExecContext(ctx, query, userID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to delete favourite: %w", err)
	}

	return requireRow(result, fmt.Sprintf("favourite %d for user %s", mediaID, userID))
}

// Top ranks media across all users by how often they were favourited
func (r *favouriteRepository) Top(ctx context.Context, limit int) ([]*domain.FavouriteCount, error) {
	query := `
		SELECT media_id, media_url, COUNT(*) AS count
		FROM favourites
		GROUP BY media_id, media_url
		ORDER BY count DESC, MIN(created_at) ASC
		LIMIT $1
	`

	rows, err := r.db.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top favourites: %w", err)
	}
	defer rows.Close()

	counts := make([]*domain.FavouriteCount, 0, limit)
	for rows.Next() {
		count := &domain.FavouriteCount{}
		if err := rows.Scan(&count.MediaID, &count.MediaURL, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan favourite count: %w", err)
		}
		counts = append(counts, count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favourite counts: %w", err)
	}

	return counts, nil
}
