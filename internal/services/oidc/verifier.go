package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken wraps every verification failure
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks signature, expiry, issuer and (optionally) audience
type Verifier struct {
	jwks     *JWKSManager
	jwksURL  string
	issuer   string
	audience string
}

// NewVerifier creates a verifier. An empty audience skips the aud check.
func NewVerifier(jwks *JWKSManager, jwksURL, issuer, audience string) *Verifier {
	return &Verifier{jwks: jwks, jwksURL: jwksURL, issuer: issuer, audience: audience}
}

// Verify parses tokenString and returns the operator it identifies.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.Operator, error) {
	keys, err := v.jwks.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	op := &models.Operator{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
	}
	if email, ok := token.Get("email"); ok {
		op.Email, _ = email.(string)
	}
	if name, ok := token.Get("name"); ok {
		op.Name, _ = name.(string)
	}
	return op, nil
}
