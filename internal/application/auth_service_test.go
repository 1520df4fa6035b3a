package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/internal/infrastructure/oauth"
	"github.com/oksasatya/student-store/internal/testutil"
	"github.com/oksasatya/student-store/pkg/helpers"
	tpl "github.com/oksasatya/student-store/pkg/mailer/templates"
)

// MockProvider is a mock implementation of IdentityProvider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) AuthorizationURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*oauth.TokenSet, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.TokenSet), args.Error(1)
}

func (m *MockProvider) FetchUserInfo(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.Profile), args.Error(1)
}

var authNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newAuthService(users *testutil.Users, p IdentityProvider, pub *testutil.Publisher) *AuthService {
	jwt := helpers.NewJWTManager("test-secret", time.Hour).WithClock(func() time.Time { return authNow })
	s := NewAuthService(users, p, jwt, nil, nil, nil)
	if pub != nil {
		s.Pub = pub
	}
	s.now = func() time.Time { return authNow }
	s.AppName = "Student Store"
	s.FrontendURL = "http://front.test"
	s.MailEnabled = true
	return s
}

func TestResolveOrCreateIdentity_CreatesNew(t *testing.T) {
	users := testutil.NewUsers()
	s := newAuthService(users, nil, nil)

	res, err := s.ResolveOrCreateIdentity(t.Context(), &oauth.Profile{ID: "g-1", Email: "a@x.com", Name: "Ada", Picture: "pic"})
	require.NoError(t, err)

	assert.Equal(t, Created, res.Kind)
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "g-1", res.User.OAuthID)
	assert.Equal(t, entity.ProviderGoogle, res.User.OAuthProvider)
	assert.True(t, res.User.IsActive)
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, 1, users.Len())
}

func TestResolveOrCreateIdentity_ReusesAndBackfills(t *testing.T) {
	users := testutil.NewUsers(entity.User{ID: "u-1", Email: "a@x.com", Name: "Ada", IsActive: true})
	s := newAuthService(users, nil, nil)

	res, err := s.ResolveOrCreateIdentity(t.Context(), &oauth.Profile{ID: "g-1", Email: "a@x.com"})
	require.NoError(t, err)

	assert.Equal(t, Found, res.Kind)
	assert.Equal(t, "u-1", res.User.ID)
	assert.Equal(t, "g-1", res.User.OAuthID)
	assert.Equal(t, authNow, res.User.UpdatedAt)
	assert.Equal(t, 1, users.Saves)

	stored, _ := users.GetByID(t.Context(), "u-1")
	assert.Equal(t, "g-1", stored.OAuthID)
}

func TestResolveOrCreateIdentity_NeverOverwritesSubject(t *testing.T) {
	users := testutil.NewUsers(entity.User{ID: "u-1", Email: "a@x.com", OAuthProvider: "google", OAuthID: "g-old"})
	s := newAuthService(users, nil, nil)

	res, err := s.ResolveOrCreateIdentity(t.Context(), &oauth.Profile{ID: "g-new", Email: "a@x.com"})
	require.NoError(t, err)

	assert.Equal(t, Found, res.Kind)
	assert.Equal(t, "g-old", res.User.OAuthID)
	assert.Equal(t, 0, users.Saves)
}

func TestResolveOrCreateIdentity_RepeatedLoginsKeepOneIdentity(t *testing.T) {
	users := testutil.NewUsers()
	s := newAuthService(users, nil, nil)
	prof := &oauth.Profile{ID: "g-1", Email: "a@x.com"}

	first, err := s.ResolveOrCreateIdentity(t.Context(), prof)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := s.ResolveOrCreateIdentity(t.Context(), prof)
		require.NoError(t, err)
		assert.Equal(t, Found, again.Kind)
		assert.Equal(t, first.User.ID, again.User.ID)
	}
	assert.Equal(t, 1, users.Len())
}

func TestResolveOrCreateIdentity_LosesInsertRace(t *testing.T) {
	users := testutil.NewUsers()
	users.BeforeCreate = func() {
		users.Put(entity.User{ID: "winner", Email: "a@x.com", IsActive: true})
	}
	s := newAuthService(users, nil, nil)

	res, err := s.ResolveOrCreateIdentity(t.Context(), &oauth.Profile{ID: "g-1", Email: "a@x.com"})
	require.NoError(t, err)

	assert.Equal(t, Found, res.Kind)
	assert.Equal(t, "winner", res.User.ID)
	assert.Equal(t, "g-1", res.User.OAuthID)
	assert.Equal(t, 1, users.Len())
}

func TestResolveOrCreateIdentity_InvalidProviderData(t *testing.T) {
	s := newAuthService(testutil.NewUsers(), nil, nil)
	for _, p := range []*oauth.Profile{nil, {ID: "g-1"}, {Email: "a@x.com"}} {
		_, err := s.ResolveOrCreateIdentity(t.Context(), p)
		assert.ErrorIs(t, err, errs.ErrInvalidProviderData)
	}
}

func TestCompleteLogin_NewIdentity(t *testing.T) {
	p := new(MockProvider)
	p.On("ExchangeCode", mock.Anything, "code-1").Return(&oauth.TokenSet{AccessToken: "at-1"}, nil)
	p.On("FetchUserInfo", mock.Anything, "at-1").Return(&oauth.Profile{ID: "g-1", Email: "a@x.com", Name: "Ada"}, nil)
	pub := &testutil.Publisher{}
	s := newAuthService(testutil.NewUsers(), p, pub)

	res, err := s.CompleteLogin(t.Context(), "code-1")
	require.NoError(t, err)

	assert.Equal(t, Created, res.Kind)
	assert.Equal(t, authNow.Add(time.Hour), res.ExpiresAt)
	claims := s.VerifySessionToken(res.Token)
	require.NotNil(t, claims)
	assert.Equal(t, res.User.ID, claims.UserID())
	assert.Equal(t, "a@x.com", claims.Email)

	jobs := pub.Published()
	require.Len(t, jobs, 1)
	assert.Equal(t, tpl.Welcome, jobs[0].Template)
	assert.Equal(t, "a@x.com", jobs[0].To)
	p.AssertExpectations(t)
}

func TestCompleteLogin_ExistingIdentitySendsNoWelcome(t *testing.T) {
	p := new(MockProvider)
	p.On("ExchangeCode", mock.Anything, "code-1").Return(&oauth.TokenSet{AccessToken: "at-1"}, nil)
	p.On("FetchUserInfo", mock.Anything, "at-1").Return(&oauth.Profile{ID: "g-1", Email: "a@x.com"}, nil)
	pub := &testutil.Publisher{}
	s := newAuthService(testutil.NewUsers(entity.User{ID: "u-1", Email: "a@x.com", OAuthID: "g-1"}), p, pub)

	res, err := s.CompleteLogin(t.Context(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, Found, res.Kind)
	assert.Empty(t, pub.Published())
}

func TestCompleteLogin_PublishFailureDoesNotFailLogin(t *testing.T) {
	p := new(MockProvider)
	p.On("ExchangeCode", mock.Anything, "code-1").Return(&oauth.TokenSet{AccessToken: "at-1"}, nil)
	p.On("FetchUserInfo", mock.Anything, "at-1").Return(&oauth.Profile{ID: "g-1", Email: "a@x.com"}, nil)
	s := newAuthService(testutil.NewUsers(), p, &testutil.Publisher{Err: errors.New("broker down")})

	_, err := s.CompleteLogin(t.Context(), "code-1")
	assert.NoError(t, err)
}

func TestCompleteLogin_ProviderFailures(t *testing.T) {
	t.Run("exchange", func(t *testing.T) {
		p := new(MockProvider)
		p.On("ExchangeCode", mock.Anything, "bad").Return(nil, errs.ErrExchange)
		s := newAuthService(testutil.NewUsers(), p, nil)

		_, err := s.CompleteLogin(t.Context(), "bad")
		assert.ErrorIs(t, err, errs.ErrExchange)
		p.AssertNotCalled(t, "FetchUserInfo", mock.Anything, mock.Anything)
	})
	t.Run("userinfo", func(t *testing.T) {
		p := new(MockProvider)
		p.On("ExchangeCode", mock.Anything, "code").Return(&oauth.TokenSet{AccessToken: "at"}, nil)
		p.On("FetchUserInfo", mock.Anything, "at").Return(nil, errs.ErrUserInfo)
		users := testutil.NewUsers()
		s := newAuthService(users, p, nil)

		_, err := s.CompleteLogin(t.Context(), "code")
		assert.ErrorIs(t, err, errs.ErrUserInfo)
		assert.Equal(t, 0, users.Len())
	})
	t.Run("missing email", func(t *testing.T) {
		p := new(MockProvider)
		p.On("ExchangeCode", mock.Anything, "code").Return(&oauth.TokenSet{AccessToken: "at"}, nil)
		p.On("FetchUserInfo", mock.Anything, "at").Return(&oauth.Profile{ID: "g-1"}, nil)
		s := newAuthService(testutil.NewUsers(), p, nil)

		_, err := s.CompleteLogin(t.Context(), "code")
		assert.ErrorIs(t, err, errs.ErrInvalidProviderData)
	})
}

func TestBuildAuthorizationURL_Delegates(t *testing.T) {
	p := new(MockProvider)
	p.On("AuthorizationURL", "st-1").Return("https://accounts.test/auth?x=1&state=st-1")
	s := newAuthService(testutil.NewUsers(), p, nil)

	assert.Equal(t, "https://accounts.test/auth?x=1&state=st-1", s.BuildAuthorizationURL("st-1"))
	p.AssertCalled(t, "AuthorizationURL", "st-1")
}

func TestIssueSessionToken_UsesUserIdentity(t *testing.T) {
	s := newAuthService(testutil.NewUsers(), nil, nil)
	tok, exp, err := s.IssueSessionToken(&entity.User{ID: "u-9", Email: "z@x.com"}, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, authNow.Add(2*time.Minute), exp)
	assert.Equal(t, "u-9", s.VerifySessionToken(tok).UserID())
	assert.Nil(t, s.VerifySessionToken(tok+"x"))
}
