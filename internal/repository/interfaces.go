package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/media-favourites/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// MarkVerified flips the user owning token to verified and clears the token.
	MarkVerified(ctx context.Context, token string) (*domain.User, error)
	SetRefreshToken(ctx context.Context, userID, tokenHash string) error
	SetPasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error
	// ConsumePasswordReset replaces the password only if tokenHash is the stored,
	// unexpired reset token, and spends it in the same statement.
	ConsumePasswordReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) error
}

// FavouriteRepository defines methods for favourite operations
type FavouriteRepository interface {
	Create(ctx context.Context, favourite *domain.Favourite) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Favourite, error)
	ListMediaIDs(ctx context.Context, userID string) ([]int64, error)
	Delete(ctx context.Context, userID string, mediaID int64) error
	Top(ctx context.Context, limit int) ([]*domain.FavouriteCount, error)
}
