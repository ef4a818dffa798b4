package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthService struct {
	signup        func(req *dto.SignupRequest) (*dto.SignupResponse, error)
	login         func(req *dto.LoginRequest) (*domain.TokenPair, error)
	verifyEmail   func(token string) error
	checkStatus   func(email string) (*dto.VerificationStatusResponse, error)
	initiateReset func(email string) error
	completeReset func(req *dto.CompletePasswordResetRequest) error
	profile       func(userID string) (*dto.ProfileResponse, error)
}

func (s *stubAuthService) Signup(_ context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	return s.signup(req)
}

func (s *stubAuthService) Login(_ context.Context, req *dto.LoginRequest) (*domain.TokenPair, error) {
	return s.login(req)
}

func (s *stubAuthService) VerifyEmail(_ context.Context, token string) error {
	return s.verifyEmail(token)
}

func (s *stubAuthService) CheckVerificationStatus(_ context.Context, email string) (*dto.VerificationStatusResponse, error) {
	return s.checkStatus(email)
}

func (s *stubAuthService) InitiatePasswordReset(_ context.Context, email string) error {
	return s.initiateReset(email)
}

func (s *stubAuthService) CompletePasswordReset(_ context.Context, req *dto.CompletePasswordResetRequest) error {
	return s.completeReset(req)
}

func (s *stubAuthService) GetProfile(_ context.Context, userID string) (*dto.ProfileResponse, error) {
	return s.profile(userID)
}

type stubFavouriteService struct {
	list    func(userID string) ([]*domain.Favourite, error)
	listIDs func(userID string) ([]int64, error)
	add     func(userID string, req *dto.AddFavouriteRequest) error
	remove  func(userID string, mediaID int64) error
	top     func(limit int) ([]*domain.FavouriteCount, error)
}

func (s *stubFavouriteService) List(_ context.Context, userID string) ([]*domain.Favourite, error) {
	return s.list(userID)
}

func (s *stubFavouriteService) ListIDs(_ context.Context, userID string) ([]int64, error) {
	return s.listIDs(userID)
}

func (s *stubFavouriteService) Add(_ context.Context, userID string, req *dto.AddFavouriteRequest) error {
	return s.add(userID, req)
}

func (s *stubFavouriteService) Remove(_ context.Context, userID string, mediaID int64) error {
	return s.remove(userID, mediaID)
}

func (s *stubFavouriteService) Top(_ context.Context, limit int) ([]*domain.FavouriteCount, error) {
	return s.top(limit)
}

// stubValidator accepts "good-token" as user u1
type stubValidator struct{}

func (stubValidator) ValidateAccessToken(token string) (string, error) {
	if token == "good-token" {
		return "u1", nil
	}
	return "", errors.New("invalid")
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	remaining  int
	err        error
	keys       []string
}

func (l *stubLimiter) Remaining(context.Context, string, int, time.Duration) (int, error) {
	return l.remaining, l.err
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.retryAfter, l.err
}

func newTestRouter(auth service.AuthService, favourites service.FavouriteService) *gin.Engine {
	logger := zap.NewNop()
	router := gin.New()

	authHandler := NewAuthHandler(auth, logger)
	userHandler := NewUserHandler(auth, logger)
	favouriteHandler := NewFavouriteHandler(favourites, logger)

	api := router.Group("/api")
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/verify-email", authHandler.VerifyEmail)
	api.POST("/auth/check-verification-status", authHandler.CheckVerificationStatus)
	api.POST("/auth/initiate-password-reset", authHandler.InitiatePasswordReset)
	api.POST("/auth/complete-password-reset", authHandler.CompletePasswordReset)

	protected := api.Group("", AuthMiddleware(stubValidator{}))
	protected.GET("/user/profile", userHandler.Profile)
	protected.GET("/favourite", favouriteHandler.List)
	protected.GET("/favourite/ids", favouriteHandler.ListIDs)
	protected.GET("/favourite/top", favouriteHandler.Top)
	protected.POST("/favourite", favouriteHandler.Add)
	protected.DELETE("/favourite/:mediaId", favouriteHandler.Remove)

	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func serviceError(kind error, message string) error {
	return &service.Error{Kind: kind, Message: message}
}
