package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/internal/repository"
	"github.com/prperemyshlev/media-favourites/internal/utils"
	"github.com/prperemyshlev/media-favourites/pkg/observability"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// memoryUserRepository mirrors the conditional updates of the SQL repository
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: map[string]*domain.User{}}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryUserRepository) MarkVerified(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.VerificationToken != nil && *u.VerificationToken != "" && *u.VerificationToken == token {
			empty := ""
			u.Verified = true
			u.VerificationToken = &empty
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepository) SetRefreshToken(_ context.Context, userID, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshTokenHash = &tokenHash
	return nil
}

func (r *memoryUserRepository) SetPasswordReset(_ context.Context, userID, tokenHash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetTokenHash = &tokenHash
	u.PasswordResetExpires = &expires
	return nil
}

func (r *memoryUserRepository) ConsumePasswordReset(_ context.Context, userID, tokenHash, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.PasswordResetTokenHash == nil || u.PasswordResetExpires == nil {
		return repository.ErrNotFound
	}
	if *u.PasswordResetTokenHash == "" || *u.PasswordResetTokenHash != tokenHash || !u.PasswordResetExpires.After(now) {
		return repository.ErrNotFound
	}

	empty := ""
	epoch := time.Unix(0, 0)
	u.PasswordHash = passwordHash
	u.PasswordResetTokenHash = &empty
	u.PasswordResetExpires = &epoch
	return nil
}

func (r *memoryUserRepository) get(id string) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[id]
}

type memoryFavouriteRepository struct {
	mu         sync.Mutex
	favourites []*domain.Favourite
	err        error
}

func (r *memoryFavouriteRepository) Create(_ context.Context, favourite *domain.Favourite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	for _, f := range r.favourites {
		if f.UserID == favourite.UserID && f.MediaID == favourite.MediaID {
			return repository.ErrDuplicateFavourite
		}
	}
	stored := *favourite
	stored.ID = uuid.New().String()
	r.favourites = append(r.favourites, &stored)
	return nil
}

func (r *memoryFavouriteRepository) ListByUser(_ context.Context, userID string) ([]*domain.Favourite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Favourite, 0)
	for _, f := range r.favourites {
		if f.UserID == userID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *memoryFavouriteRepository) ListMediaIDs(ctx context.Context, userID string) ([]int64, error) {
	favourites, _ := r.ListByUser(ctx, userID)
	ids := make([]int64, 0, len(favourites))
	for _, f := range favourites {
		ids = append(ids, f.MediaID)
	}
	return ids, nil
}

func (r *memoryFavouriteRepository) Delete(_ context.Context, userID string, mediaID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.favourites {
		if f.UserID == userID && f.MediaID == mediaID {
			r.favourites = append(r.favourites[:i], r.favourites[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memoryFavouriteRepository) Top(_ context.Context, limit int) ([]*domain.FavouriteCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts []*domain.FavouriteCount
	index := map[int64]*domain.FavouriteCount{}
	for _, f := range r.favourites {
		c, ok := index[f.MediaID]
		if !ok {
			c = &domain.FavouriteCount{MediaID: f.MediaID, MediaURL: f.MediaURL}
			index[f.MediaID] = c
			counts = append(counts, c)
		}
		c.Count++
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	return m.record("verification", to, token)
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	return m.record("password_reset", to, token)
}

func (m *fakeMailer) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, token: token})
	return nil
}

func (m *fakeMailer) last(t *testing.T, kind string) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s mail sent", kind)
	return sentMail{}
}

var errMailDown = errors.New("smtp unavailable")

func newTestTokenManager() *utils.TokenManager {
	return utils.NewTokenManager(
		utils.TokenSettings{Secret: "access-secret-access-secret-access-secret", Expiry: 15 * time.Minute},
		utils.TokenSettings{Secret: "refresh-secret-refresh-secret-refresh-secret", Expiry: 7 * 24 * time.Hour},
		utils.TokenSettings{Secret: "reset-secret-reset-secret-reset-secret", Expiry: time.Hour},
	)
}

func newTestMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	m, err := observability.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

type authFixture struct {
	service *authService
	users   *memoryUserRepository
	mailer  *fakeMailer
	tokens  *utils.TokenManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMemoryUserRepository()
	mailer := &fakeMailer{}
	tokens := newTestTokenManager()

	svc := NewAuthService(users, tokens, mailer, newTestMetrics(t), zap.NewNop(), bcrypt.MinCost).(*authService)

	return &authFixture{service: svc, users: users, mailer: mailer, tokens: tokens}
}
