package service

import (
	"context"

	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/internal/dto"
)

// AuthService defines methods for account and token operations
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) error
	CheckVerificationStatus(ctx context.Context, email string) (*dto.VerificationStatusResponse, error)
	InitiatePasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, req *dto.CompletePasswordResetRequest) error
	GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
}

// FavouriteService defines methods for favourite operations
type FavouriteService interface {
	List(ctx context.Context, userID string) ([]*domain.Favourite, error)
	ListIDs(ctx context.Context, userID string) ([]int64, error)
	Add(ctx context.Context, userID string, req *dto.AddFavouriteRequest) error
	Remove(ctx context.Context, userID string, mediaID int64) error
	Top(ctx context.Context, limit int) ([]*domain.FavouriteCount, error)
}

// Mailer delivers account emails out of band
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}
