package repository

import (
	"github.com/prperemyshlev/media-favourites/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User      UserRepository
	Favourite FavouriteRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Favourite: NewFavouriteRepository(db),
	}
}
