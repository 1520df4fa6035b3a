package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	repo "github.com/oksasatya/student-store/internal/domain/repository"
	"github.com/oksasatya/student-store/internal/infrastructure/oauth"
	"github.com/oksasatya/student-store/internal/metrics"
	"github.com/oksasatya/student-store/pkg/helpers"
	"github.com/oksasatya/student-store/pkg/mailer"
	tpl "github.com/oksasatya/student-store/pkg/mailer/templates"
)

// IdentityProvider is the external OAuth provider.
type IdentityProvider interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth.TokenSet, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*oauth.Profile, error)
}

// ResolutionKind tells whether login reused or created an identity.
type ResolutionKind int

const (
	Found ResolutionKind = iota + 1
	Created
)

func (k ResolutionKind) String() string {
	switch k {
	case Found:
		return "found"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

type IdentityResolution struct {
	Kind ResolutionKind
	User *entity.User
}

// LoginResult is the outcome of a completed callback.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
	Kind      ResolutionKind
}

// Login flow states, logged on each transition.
const (
	stateAuthURLIssued   = "AUTH_URL_ISSUED"
	stateCodeReceived    = "CODE_RECEIVED"
	stateProviderToken   = "PROVIDER_TOKEN_OBTAINED"
	stateProviderProfile = "PROVIDER_PROFILE_FETCHED"
	stateIdentity        = "IDENTITY_RESOLVED"
	stateSessionIssued   = "SESSION_TOKEN_ISSUED"
)

type AuthService struct {
	Users    repo.UserRepository
	Provider IdentityProvider
	JWT      *helpers.JWTManager
	Pub      helpers.JSONPublisher
	Metrics  metrics.Recorder
	Logger   *logrus.Logger

	AppName     string
	FrontendURL string
	MailEnabled bool

	now func() time.Time
}

func NewAuthService(users repo.UserRepository, provider IdentityProvider, jwt *helpers.JWTManager, pub helpers.JSONPublisher, rec metrics.Recorder, logger *logrus.Logger) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &AuthService{
		Users:    users,
		Provider: provider,
		JWT:      jwt,
		Pub:      pub,
		Metrics:  rec,
		Logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// BuildAuthorizationURL returns the consent URL carrying the caller's
// anti-forgery state.
func (s *AuthService) BuildAuthorizationURL(state string) string {
	s.Logger.WithField("state", stateAuthURLIssued).Debug("login")
	return s.Provider.AuthorizationURL(state)
}

func (s *AuthService) ExchangeCodeForToken(ctx context.Context, code string) (*oauth.TokenSet, error) {
	return s.Provider.ExchangeCode(ctx, code)
}

func (s *AuthService) FetchProviderUserInfo(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	return s.Provider.FetchUserInfo(ctx, accessToken)
}

// ResolveOrCreateIdentity finds the identity for the profile's email or
// creates it. An existing identity only gains a provider subject id when it
// has none.
func (s *AuthService) ResolveOrCreateIdentity(ctx context.Context, p *oauth.Profile) (IdentityResolution, error) {
	if p == nil || p.Email == "" || p.ID == "" {
		return IdentityResolution{}, errs.ErrInvalidProviderData
	}

	existing, err := s.Users.GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return s.backfill(ctx, existing, p.ID)
	case !errors.Is(err, errs.ErrNotFound):
		return IdentityResolution{}, fmt.Errorf("lookup identity: %w", err)
	}

	u := &entity.User{
		Email:          p.Email,
		Name:           p.Name,
		ProfilePicture: p.Picture,
		OAuthProvider:  entity.ProviderGoogle,
		OAuthID:        p.ID,
		IsActive:       true,
		IsVerified:     true,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if !errors.Is(err, repo.ErrEmailTaken) {
			return IdentityResolution{}, fmt.Errorf("create identity: %w", err)
		}
		// lost the insert race; the winner's row is the identity
		winner, gErr := s.Users.GetByEmail(ctx, p.Email)
		if gErr != nil {
			return IdentityResolution{}, fmt.Errorf("reread identity: %w", gErr)
		}
		return s.backfill(ctx, winner, p.ID)
	}
	return IdentityResolution{Kind: Created, User: u}, nil
}

func (s *AuthService) backfill(ctx context.Context, u *entity.User, subject string) (IdentityResolution, error) {
	next, changed := u.WithProviderSubject(entity.ProviderGoogle, subject)
	if !changed {
		return IdentityResolution{Kind: Found, User: u}, nil
	}
	next.UpdatedAt = s.clock().UTC()
	if err := s.Users.Update(ctx, &next); err != nil {
		return IdentityResolution{}, fmt.Errorf("backfill provider id: %w", err)
	}
	return IdentityResolution{Kind: Found, User: &next}, nil
}

func (s *AuthService) IssueSessionToken(u *entity.User, ttl time.Duration) (string, time.Time, error) {
	return s.JWT.IssueSessionToken(u.ID, u.Email, ttl)
}

// VerifySessionToken returns nil for any token that is not currently valid.
func (s *AuthService) VerifySessionToken(token string) *helpers.SessionClaims {
	return s.JWT.VerifySessionToken(token)
}

// CompleteLogin runs the callback half of the login flow for an
// authorization code and returns a session token for the resolved identity.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*LoginResult, error) {
	log := s.Logger.WithField("flow", "google_login")
	res, err := s.completeLogin(ctx, code, log)
	if err != nil {
		s.Metrics.RecordLogin("failed")
		log.WithError(err).Warn("login failed")
		return nil, err
	}
	s.Metrics.RecordLogin(res.Kind.String())
	return res, nil
}

func (s *AuthService) completeLogin(ctx context.Context, code string, log *logrus.Entry) (*LoginResult, error) {
	log.WithField("state", stateCodeReceived).Debug("login")

	tokens, err := s.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, err
	}
	log.WithField("state", stateProviderToken).Debug("login")

	profile, err := s.FetchProviderUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"state": stateProviderProfile, "email": profile.Email}).Debug("login")

	res, err := s.ResolveOrCreateIdentity(ctx, profile)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"state": stateIdentity, "user_id": res.User.ID, "resolution": res.Kind.String()}).Info("login")

	token, exp, err := s.JWT.IssueDefault(res.User.ID, res.User.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	log.WithFields(logrus.Fields{"state": stateSessionIssued, "user_id": res.User.ID}).Info("login")

	if res.Kind == Created {
		s.sendWelcome(ctx, res.User)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: res.User, Kind: res.Kind}, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, u *entity.User) {
	if !s.MailEnabled || s.Pub == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(s.AppName, u.Name, u.Email, s.FrontendURL, s.clock()),
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("enqueue welcome email failed")
	}
}
