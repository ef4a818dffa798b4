//go:build acceptance

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/media-favourites/internal/config"
	"github.com/prperemyshlev/media-favourites/internal/domain"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/mail"
	"github.com/stretchr/testify/suite"
)

// Run with a local Postgres and Redis on their default ports:
//
//	go test -tags acceptance ./internal/app/...

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9._-]+)`)

// outbox captures sent messages instead of talking SMTP
type outbox struct {
	mu       sync.Mutex
	messages []*mail.Message
}

func (o *outbox) Send(_ context.Context, msg *mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
}

// lastToken returns the link token from the newest message sent to addr
func (o *outbox) lastToken(addr string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To != addr {
			continue
		}
		m := tokenPattern.FindStringSubmatch(html.UnescapeString(o.messages[i].HTML))
		if m == nil {
			return "", false
		}
		return m[1], true
	}
	return "", false
}

type AcceptanceSuite struct {
	suite.Suite
	infra   *infrastructure
	outbox  *outbox
	baseURL string
	cancel  context.CancelFunc
	done    chan struct{}
}

func TestAcceptance(t *testing.T) {
	suite.Run(t, new(AcceptanceSuite))
}

func (s *AcceptanceSuite) SetupSuite() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		cfg = testConfig(config.MailDeliverySync)
		cfg.Postgres = config.PostgresConfig{
			Host: "localhost", Port: "5432", User: "postgres", Password: "postgres",
			DBName: "media_favourites", SSLMode: "disable", AutoMigrate: true,
		}
		cfg.Redis = config.RedisConfig{Host: "localhost", Port: "6379"}
	}
	cfg.Mail.Delivery = config.MailDeliverySync
	cfg.Security.BCryptCost = 4
	cfg.Security.RateLimitRequests = 1000

	infra, err := NewInfrastructure(ctx, *cfg)
	s.Require().NoError(err, "Postgres and Redis must be reachable")
	s.infra = infra

	listener, err := net.Listen("tcp", "localhost:0")
	s.Require().NoError(err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg.Server.Host = "localhost"
	cfg.Server.Port = fmt.Sprintf("%d", port)
	s.baseURL = fmt.Sprintf("http://localhost:%d", port)

	s.outbox = &outbox{}
	application, err := NewApp(infra, cfg, WithMailSender(s.outbox))
	s.Require().NoError(err)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = application.Run(runCtx)
	}()

	s.Require().Eventually(func() bool {
		resp, err := http.Get(s.baseURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

func (s *AcceptanceSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *AcceptanceSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.infra.Postgres().DB.ExecContext(ctx, "TRUNCATE users CASCADE")
	s.Require().NoError(err)
	s.Require().NoError(s.infra.Redis().Client.FlushDB(ctx).Err())
	s.outbox.reset()
}

func (s *AcceptanceSuite) do(method, path string, body any, token string, out any) int {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.baseURL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signupVerified creates an account, follows its verification link and logs in
func (s *AcceptanceSuite) signupVerified(username, email string) string {
	status := s.do(http.MethodPost, "/api/auth/signup",
		dto.SignupRequest{Username: username, Email: email, Password: "password123"}, "", nil)
	s.Require().Equal(http.StatusCreated, status)

	token, ok := s.outbox.lastToken(email)
	s.Require().True(ok)
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/api/auth/verify-email?token="+token, nil, "", nil))

	var tokens domain.TokenPair
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Email: email, Password: "password123"}, "", &tokens))
	return tokens.AccessToken
}

func (s *AcceptanceSuite) TestSignupVerifyLogin() {
	var signup dto.SignupResponse
	status := s.do(http.MethodPost, "/api/auth/signup",
		dto.SignupRequest{Username: "alice", Email: "Alice@Example.com", Password: "password123"}, "", &signup)
	s.Require().Equal(http.StatusCreated, status)
	s.NotEmpty(signup.UserID)
	s.NotEmpty(signup.AccessToken)

	login := dto.LoginRequest{Email: "alice@example.com", Password: "password123"}
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/api/auth/login", login, "", nil))

	var pending dto.VerificationStatusResponse
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/check-verification-status",
		dto.EmailRequest{Email: "alice@example.com"}, "", &pending))
	s.False(pending.Verified)

	token, ok := s.outbox.lastToken("alice@example.com")
	s.Require().True(ok)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/auth/verify-email?token="+token, nil, "", nil))
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/auth/verify-email?token="+token, nil, "", nil))

	var verified dto.VerificationStatusResponse
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/check-verification-status",
		dto.EmailRequest{Email: "alice@example.com"}, "", &verified))
	s.True(verified.Verified)
	s.NotEmpty(verified.AccessToken)

	var tokens domain.TokenPair
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/login", login, "", &tokens))

	var profile dto.ProfileResponse
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/user/profile", nil, tokens.AccessToken, &profile))
	s.Equal(signup.UserID, profile.ID)
	s.Equal("alice", profile.Username)

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/user/profile", nil, tokens.RefreshToken, nil))
}

func (s *AcceptanceSuite) TestSignupDuplicate() {
	s.signupVerified("alice", "alice@example.com")

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/auth/signup",
		dto.SignupRequest{Username: "alice", Email: "other@example.com", Password: "password123"}, "", nil))
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/auth/signup",
		dto.SignupRequest{Username: "bob", Email: "alice@example.com", Password: "password123"}, "", nil))
}

func (s *AcceptanceSuite) TestPasswordReset() {
	s.signupVerified("alice", "alice@example.com")

	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/auth/initiate-password-reset",
		dto.EmailRequest{Email: "nobody@example.com"}, "", nil))
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/initiate-password-reset",
		dto.EmailRequest{Email: "alice@example.com"}, "", nil))

	token, ok := s.outbox.lastToken("alice@example.com")
	s.Require().True(ok)

	complete := dto.CompletePasswordResetRequest{Token: token, NewPassword: "new-password"}
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/complete-password-reset", complete, "", nil))
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/auth/complete-password-reset", complete, "", nil))

	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Email: "alice@example.com", Password: "password123"}, "", nil))
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Email: "alice@example.com", Password: "new-password"}, "", nil))
}

func (s *AcceptanceSuite) TestFavourites() {
	alice := s.signupVerified("alice", "alice@example.com")
	bob := s.signupVerified("bob", "bob@example.com")

	add := func(token string, id int64) int {
		return s.do(http.MethodPost, "/api/favourite", dto.AddFavouriteRequest{
			MediaID:   id,
			MediaType: "image",
			MediaURL:  fmt.Sprintf("https://cdn.example.com/%d.jpg", id),
		}, token, nil)
	}

	s.Equal(http.StatusCreated, add(alice, 1))
	s.Equal(http.StatusCreated, add(alice, 2))
	s.Equal(http.StatusBadRequest, add(alice, 1))
	s.Equal(http.StatusCreated, add(bob, 2))

	var ids dto.FavouriteIDsResponse
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/favourite/ids", nil, alice, &ids))
	s.ElementsMatch([]int64{1, 2}, ids.FavouriteIDs)

	var list dto.FavouritesResponse
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/favourite", nil, bob, &list))
	s.Require().Len(list.Favourites, 1)
	s.Equal(int64(2), list.Favourites[0].ID)

	var top dto.TopFavouritesResponse
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/favourite/top?limit=1", nil, alice, &top))
	s.Require().Len(top.TopFavorites, 1)
	s.Equal(int64(2), top.TopFavorites[0].MediaID)
	s.Equal(int64(2), top.TopFavorites[0].Count)

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/api/favourite/2", nil, alice, nil))
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/api/favourite/2", nil, alice, nil))
	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, "/api/favourite/abc", nil, alice, nil))
}
