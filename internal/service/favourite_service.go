package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/repository"
)

// Bounds for the top favourites ranking
const (
	DefaultTopLimit = 30
	MaxTopLimit     = 100
)

type favouriteService struct {
	favouriteRepo repository.FavouriteRepository
}

// NewFavouriteService creates a new favourite service
func NewFavouriteService(favouriteRepo repository.FavouriteRepository) FavouriteService {
	return &favouriteService{favouriteRepo: favouriteRepo}
}

func (s *favouriteService) List(ctx context.Context, userID string) ([]*domain.Favourite, error) {
	favourites, err := s.favouriteRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favourites: %w", err)
	}
	return favourites, nil
}

func (s *favouriteService) ListIDs(ctx context.Context, userID string) ([]int64, error) {
	ids, err := s.favouriteRepo.ListMediaIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favourite ids: %w", err)
	}
	return ids, nil
}

// Add favourites a media item. Adding the same media twice is a conflict.
func (s *favouriteService) Add(ctx context.Context, userID string, req *dto.AddFavouriteRequest) error {
	mediaType := domain.MediaType(req.MediaType)
	mediaURL := strings.TrimSpace(req.MediaURL)

	if req.MediaID <= 0 {
		return newError(ErrValidation, "Invalid media id")
	}
	if !mediaType.Valid() {
		return newError(ErrValidation, "Media type must be image or video")
	}
	if mediaURL == "" {
		return newError(ErrValidation, "Media url is required")
	}

	err := s.favouriteRepo.Create(ctx, &domain.Favourite{
		UserID:    userID,
		MediaID:   req.MediaID,
		MediaURL:  mediaURL,
		MediaType: mediaType,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateFavourite) {
			return newError(ErrConflict, "Already favorited")
		}
		return fmt.Errorf("failed to add favourite: %w", err)
	}

	return nil
}

func (s *favouriteService) Remove(ctx context.Context, userID string, mediaID int64) error {
	if mediaID <= 0 {
		return newError(ErrValidation, "Invalid media id")
	}

	if err := s.favouriteRepo.Delete(ctx, userID, mediaID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Favorite not found")
		}
		return fmt.Errorf("failed to remove favourite: %w", err)
	}

	return nil
}

// Top returns the most favourited media across all users. A zero limit means
// DefaultTopLimit.
func (s *favouriteService) Top(ctx context.Context, limit int) ([]*domain.FavouriteCount, error) {
	if limit == 0 {
		limit = DefaultTopLimit
	}
	if limit < 1 || limit > MaxTopLimit {
		return nil, newError(ErrValidation, fmt.Sprintf("Limit must be between 1 and %d", MaxTopLimit))
	}

	counts, err := s.favouriteRepo.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top favourites: %w", err)
	}
	return counts, nil
}
