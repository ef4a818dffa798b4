package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/repository"
	"github.com/prperemyshlev/media-favourites/internal/utils"
	"github.com/prperemyshlev/media-favourites/pkg/observability"
	"go.uber.org/zap"
)

const (
	verificationTokenBytes = 32
)

// authService implements AuthService interface
type authService struct {
	userRepo     repository.UserRepository
	tokenManager *utils.TokenManager
	mailer       Mailer
	metrics      *observability.Metrics
	logger       *zap.Logger
	bcryptCost   int
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	tokenManager *utils.TokenManager,
	mailer Mailer,
	metrics *observability.Metrics,
	logger *zap.Logger,
	bcryptCost int,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		mailer:       mailer,
		metrics:      metrics,
		logger:       logger,
		bcryptCost:   bcryptCost,
		now:          time.Now,
	}
}

// Signup creates an unverified account and sends the verification email
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := utils.SanitizeEmail(req.Email)

	if username == "" || email == "" || req.Password == "" {
		return nil, newError(ErrValidation, "All fields are required")
	}
	if !utils.ValidateEmail(email) {
		return nil, newError(ErrValidation, "Invalid email format")
	}
	if !utils.ValidateUsername(username) {
		return nil, newError(ErrValidation, fmt.Sprintf("Username must be at most %d printable characters", utils.MaxUsernameLength))
	}
	if reason := utils.ValidatePassword(req.Password); reason != "" {
		return nil, newError(ErrValidation, reason)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	verificationToken, err := utils.GenerateRandomToken(verificationTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	user := &domain.User{
		Username:          username,
		Email:             email,
		PasswordHash:      passwordHash,
		Verified:          false,
		VerificationToken: &verificationToken,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) || errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.AuthEvent(ctx, "signup", observability.ResultFailure)
			return nil, newError(ErrConflict, "Username or email already taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		return nil, fmt.Errorf("failed to send verification email: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent(ctx, "signup", observability.ResultSuccess)
	s.logger.Info("User signed up", zap.String("user_id", user.ID))

	return &dto.SignupResponse{
		Message:      "User created successfully",
		UserID:       user.ID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Login authenticates a verified user and rotates the refresh token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error) {
	email := utils.SanitizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, newError(ErrValidation, "Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthEvent(ctx, "login", observability.ResultFailure)
			return nil, newError(ErrUnauthorized, "Invalid email or password")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Unverified accounts are refused whatever the password
	if !user.Verified {
		s.metrics.AuthEvent(ctx, "login", observability.ResultFailure)
		return nil, newError(ErrForbidden, "Please verify your email before logging in")
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.metrics.AuthEvent(ctx, "login", observability.ResultFailure)
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent(ctx, "login", observability.ResultSuccess)
	return tokens, nil
}

// VerifyEmail marks the account holding token as verified. A token works once.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return newError(ErrValidation, "Verification token is required")
	}

	user, err := s.userRepo.MarkVerified(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthEvent(ctx, "verify_email", observability.ResultFailure)
			return newError(ErrInvalidToken, "Invalid or expired token")
		}
		return fmt.Errorf("failed to verify email: %w", err)
	}

	s.metrics.AuthEvent(ctx, "verify_email", observability.ResultSuccess)
	s.logger.Info("Email verified", zap.String("user_id", user.ID))
	return nil
}

// CheckVerificationStatus reports whether the account is verified and, once it
// is, issues a fresh token pair
func (s *authService) CheckVerificationStatus(ctx context.Context, email string) (*dto.VerificationStatusResponse, error) {
	email = utils.SanitizeEmail(email)
	if email == "" {
		return nil, newError(ErrValidation, "Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Verified {
		return &dto.VerificationStatusResponse{Verified: false}, nil
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.VerificationStatusResponse{
		Verified:     true,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// InitiatePasswordReset stores a reset token for the account and mails it
func (s *authService) InitiatePasswordReset(ctx context.Context, email string) error {
	email = utils.SanitizeEmail(email)
	if email == "" {
		return newError(ErrValidation, "Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthEvent(ctx, "password_reset_initiate", observability.ResultFailure)
			return newError(ErrNotFound, "User not found")
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.tokenManager.GeneratePasswordResetToken(user.ID)
	if err != nil {
		return err
	}

	expires := s.now().Add(s.tokenManager.Expiry(domain.TokenKindPasswordReset))
	if err := s.userRepo.SetPasswordReset(ctx, user.ID, utils.HashToken(token), expires); err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	s.metrics.AuthEvent(ctx, "password_reset_initiate", observability.ResultSuccess)
	s.logger.Info("Password reset initiated", zap.String("user_id", user.ID))
	return nil
}

// CompletePasswordReset sets a new password if the reset token is signed,
// stored and unexpired, and spends the token
func (s *authService) CompletePasswordReset(ctx context.Context, req *dto.CompletePasswordResetRequest) error {
	if req.Token == "" || req.NewPassword == "" {
		return newError(ErrValidation, "Token and new password are required")
	}
	if reason := utils.ValidatePassword(req.NewPassword); reason != "" {
		return newError(ErrValidation, reason)
	}

	userID, err := s.tokenManager.ValidatePasswordResetToken(req.Token)
	if err != nil {
		s.metrics.AuthEvent(ctx, "password_reset_complete", observability.ResultFailure)
		return newError(ErrInvalidToken, "Invalid or expired token")
	}

	passwordHash, err := utils.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	// expired and mismatched tokens are reported the same way
	err = s.userRepo.ConsumePasswordReset(ctx, userID, utils.HashToken(req.Token), passwordHash, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthEvent(ctx, "password_reset_complete", observability.ResultFailure)
			return newError(ErrInvalidToken, "Invalid or expired token")
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.metrics.AuthEvent(ctx, "password_reset_complete", observability.ResultSuccess)
	s.logger.Info("Password reset completed", zap.String("user_id", userID))
	return nil
}

// GetProfile returns the public profile of a user
func (s *authService) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &dto.ProfileResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// issueTokens creates an access and refresh token and stores the refresh token hash
func (s *authService) issueTokens(ctx context.Context, userID string) (*domain.TokenPair, error) {
	accessToken, err := s.tokenManager.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenManager.GenerateRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRefreshToken(ctx, userID, utils.HashToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
