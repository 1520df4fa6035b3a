package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and verifies stateless session tokens (HS256).
type JWTManager struct {
	Secret []byte
	TTL    time.Duration

	now func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{Secret: []byte(secret), TTL: ttl, now: time.Now}
}

// WithClock returns a copy of the manager that reads time from now.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *JWTManager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// SessionClaims is the decoded payload of a session token. Subject holds the user id.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *SessionClaims) UserID() string { return c.Subject }

// IssueSessionToken signs sub/email with an absolute expiry of now+ttl.
// A non-positive ttl yields a token that is already expired.
func (m *JWTManager) IssueSessionToken(userID, email string, ttl time.Duration) (string, time.Time, error) {
	if len(m.Secret) == 0 {
		return "", time.Time{}, errors.New("session secret not configured")
	}
	now := m.clock()
	exp := now.Add(ttl)
	claims := &SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// IssueDefault issues a token with the manager's configured TTL.
func (m *JWTManager) IssueDefault(userID, email string) (string, time.Time, error) {
	return m.IssueSessionToken(userID, email, m.TTL)
}

// VerifySessionToken returns nil for anything that is not a valid, unexpired
// token signed with the manager's secret.
func (m *JWTManager) VerifySessionToken(tokenStr string) *SessionClaims {
	claims, err := m.ParseSessionToken(tokenStr)
	if err != nil {
		return nil
	}
	return claims
}

// ParseSessionToken is VerifySessionToken with the reason for rejection.
func (m *JWTManager) ParseSessionToken(tokenStr string) (*SessionClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.clock),
	)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
