package dto

// SignupResponse is returned after a successful signup
type SignupResponse struct {
	Message      string `json:"message"`
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// VerificationStatusResponse reports whether an account is verified. Tokens
// are only present once it is.
type VerificationStatusResponse struct {
	Verified     bool   `json:"verified"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// ProfileResponse represents the authenticated user's profile
type ProfileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// FavouriteIDsResponse lists the media ids a user has favourited
type FavouriteIDsResponse struct {
	FavouriteIDs []int64 `json:"favouriteIds"`
}

// FavouriteItem is a favourite as the client sees it
type FavouriteItem struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	MediaType string `json:"mediaType"`
}

// FavouritesResponse lists a user's favourites
type FavouritesResponse struct {
	Favourites []FavouriteItem `json:"favourites"`
}

// TopFavourite is one entry of the popularity ranking
type TopFavourite struct {
	MediaID  int64  `json:"mediaId"`
	MediaURL string `json:"mediaUrl"`
	Count    int64  `json:"count"`
}

// TopFavouritesResponse is the global popularity ranking
type TopFavouritesResponse struct {
	TopFavorites []TopFavourite `json:"topFavorites"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
