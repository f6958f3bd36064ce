package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"google.golang.org/api/idtoken"
)

// Verifier checks an external identity credential and extracts its claims.
type Verifier interface {
	Verify(ctx context.Context, credential string) (loppet.IdentityClaims, error)
}

type validateFunc func(ctx context.Context, credential string, audience string) (*idtoken.Payload, error)

// GoogleVerifier validates Google ID tokens against a configured OAuth client ID.
type GoogleVerifier struct {
	audience string
	validate validateFunc
}

// NewGoogleVerifier returns a verifier bound to the given OAuth client ID.
func NewGoogleVerifier(audience string) (*GoogleVerifier, error) {
	if strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	return &GoogleVerifier{audience: audience, validate: idtoken.Validate}, nil
}

func (verifier *GoogleVerifier) Verify(ctx context.Context, credential string) (loppet.IdentityClaims, error) {
	if strings.TrimSpace(credential) == "" {
		return loppet.IdentityClaims{}, ErrInvalidCredential
	}
	payload, err := verifier.validate(ctx, credential, verifier.audience)
	if err != nil {
		return loppet.IdentityClaims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	email := stringClaim(payload.Claims, "email")
	if email == "" {
		return loppet.IdentityClaims{}, ErrEmailRequired
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return loppet.IdentityClaims{}, ErrEmailRequired
	}
	return loppet.IdentityClaims{
		Subject:   payload.Subject,
		Email:     strings.ToLower(email),
		Name:      stringClaim(payload.Claims, "name"),
		AvatarURL: stringClaim(payload.Claims, "picture"),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}
