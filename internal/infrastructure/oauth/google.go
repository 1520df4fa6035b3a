// Package oauth talks to the Google OAuth2 identity provider: it builds the
// consent URL, exchanges authorization codes and fetches the user profile.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/oksasatya/student-store/internal/domain/errs"
)

const (
	GoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL    = "https://oauth2.googleapis.com/token"
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Scopes requested at consent time.
var Scopes = []string{"openid", "email", "profile"}

// Config configures a GoogleProvider. Empty endpoint URLs default to Google's.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// TokenSet is what the token endpoint returned.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Expiry       time.Time
}

// Profile is the subset of the userinfo v2 document the service uses.
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	VerifiedEmail bool   `json:"verified_email"`
}

type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
	client      *http.Client
}

func NewGoogleProvider(cfg Config) *GoogleProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = GoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = GoogleUserInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// AuthorizationURL is the consent page URL for the given state, with offline
// access and a forced consent prompt.
func (p *GoogleProvider) AuthorizationURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for provider tokens.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", errs.ErrExchange)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", errs.ErrExchange)
	}
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		Expiry:       tok.Expiry,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = id
	}
	return ts, nil
}

// FetchUserInfo reads the profile of the access token's owner.
func (p *GoogleProvider) FetchUserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUserInfo, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", errs.ErrUserInfo, res.StatusCode, body)
	}
	var prof Profile
	if err := json.NewDecoder(res.Body).Decode(&prof); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errs.ErrUserInfo, err)
	}
	return &prof, nil
}
