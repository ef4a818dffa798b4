package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/pkg/database"
)

const userColumns = `id, username, email, password_hash, verified, verification_token,
		refresh_token_hash, password_reset_token_hash, password_reset_expires, created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, verified, verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// Generate UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Verified,
		user.VerificationToken,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case constraintUsersUsername:
				return fmt.Errorf("user with username %s already exists: %w", user.Username, ErrDuplicateUsername)
			case constraintUsersEmail:
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			default:
				return fmt.Errorf("unique constraint %s violated: %w", pqErr.Constraint, err)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// MarkVerified verifies the user holding token. The token is cleared in the
// same statement so a second call with it finds nothing.
func (r *userRepository) MarkVerified(ctx context.Context, token string) (*domain.User, error) {
	query := `
		UPDATE users
		SET verified = TRUE, verification_token = '', updated_at = $2
		WHERE verification_token = $1 AND verification_token <> ''
		RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, token, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	return user, nil
}

// SetRefreshToken stores the hash of the latest refresh token issued to the user
func (r *userRepository) SetRefreshToken(ctx context.Context, userID, tokenHash string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, tokenHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return requireRow(result, "user with id "+userID)
}

// SetPasswordReset stores a reset token hash and its expiry
func (r *userRepository) SetPasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = $2, password_reset_expires = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, tokenHash, expires, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set password reset: %w", err)
	}

	return requireRow(result, "user with id "+userID)
}

// ConsumePasswordReset sets a new password hash if the reset token is stored and unexpired
func (r *userRepository) ConsumePasswordReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $3,
			password_reset_token_hash = '',
			password_reset_expires = to_timestamp(0),
			updated_at = $4
		WHERE id = $1
			AND password_reset_token_hash = $2
			AND password_reset_token_hash <> ''
			AND password_reset_expires > $4
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, tokenHash, passwordHash, now)
	if err != nil {
		return fmt.Errorf("failed to consume password reset: %w", err)
	}

	return requireRow(result, "password reset for user "+userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var verificationToken, refreshTokenHash, resetTokenHash sql.NullString
	var resetExpires sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&verificationToken,
		&refreshTokenHash,
		&resetTokenHash,
		&resetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if verificationToken.Valid {
		user.VerificationToken = &verificationToken.String
	}
	if refreshTokenHash.Valid {
		user.RefreshTokenHash = &refreshTokenHash.String
	}
	if resetTokenHash.Valid {
		user.PasswordResetTokenHash = &resetTokenHash.String
	}
	if resetExpires.Valid {
		user.PasswordResetExpires = &resetExpires.Time
	}

	return user, nil
}

func requireRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}

	return nil
}
