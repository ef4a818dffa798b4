package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateUsername is returned when trying to create a user with a taken username
	ErrDuplicateUsername = errors.New("user with this username already exists")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateFavourite is returned when the user already favourited the media item
	ErrDuplicateFavourite = errors.New("favourite already exists")
)

// Unique constraint names from the schema migrations
const (
	constraintUsersUsername   = "users_username_key"
	constraintUsersEmail      = "users_email_key"
	constraintFavouriteUnique = "favourites_user_media_key"
)

const uniqueViolation = "23505"
