package dto

// SignupRequest represents a signup request
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// EmailRequest carries just an email address, used by the verification status
// check and by password reset initiation
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// CompletePasswordResetRequest represents a request to set a new password
type CompletePasswordResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,max=72"`
}

// AddFavouriteRequest represents a request to favourite a media item
type AddFavouriteRequest struct {
	MediaID   int64  `json:"mediaId" binding:"required,gt=0"`
	MediaType string `json:"mediaType" binding:"required,oneof=image video"`
	MediaURL  string `json:"mediaUrl" binding:"required,url"`
}
