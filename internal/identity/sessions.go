package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionClaims is the payload carried by a signed session token.
type SessionClaims struct {
	AccountID loppet.AccountID
	Email     string
}

type sessionTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionConfig configures session signing and verification.
type SessionConfig struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration
}

// Sessions mints and verifies HS256 session tokens.
type Sessions struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	nowFn      func() time.Time
}

// NewSessions returns a session minter for the given configuration.
func NewSessions(config SessionConfig) (*Sessions, error) {
	if len(config.SigningKey) == 0 {
		return nil, fmt.Errorf("session signing key is required")
	}
	if strings.TrimSpace(config.Issuer) == "" {
		return nil, fmt.Errorf("session issuer is required")
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{
		signingKey: config.SigningKey,
		issuer:     config.Issuer,
		ttl:        ttl,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a session token for the account.
func (sessions *Sessions) Issue(accountID loppet.AccountID, email string) (string, error) {
	now := sessions.nowFn()
	claims := sessionTokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessions.issuer,
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessions.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sessions.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token.
func (sessions *Sessions) Verify(tokenString string) (SessionClaims, error) {
	claims := &sessionTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return sessions.signingKey, nil
	},
		jwt.WithIssuer(sessions.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sessions.nowFn),
	)
	if err != nil || !token.Valid {
		return SessionClaims{}, ErrInvalidSession
	}
	accountID, err := loppet.NewAccountID(claims.Subject)
	if err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	return SessionClaims{AccountID: accountID, Email: claims.Email}, nil
}
