package memory

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	auth "github.com/sandunudayakantha/saloon-auth"
)

// SessionClaims are the claims carried by issued access tokens
type SessionClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	SessionID    string         `json:"session_id"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type tokenIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func (ti tokenIssuer) issue(principal auth.Principal, sessionID string, now time.Time) (*auth.Session, error) {
	expiresAt := now.Add(ti.ttl)
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:        principal.Email,
		SessionID:    sessionID,
		UserMetadata: principal.Metadata,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.signingKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	return &auth.Session{
		ID:           sessionID,
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
		User:         principal,
	}, nil
}

func (ti tokenIssuer) parse(token string, now time.Time) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.signingKey, nil
	}, opts...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "malformed access token").
			WithTextCode(TextCodeBadToken)
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, goerrors.New("unable to decode access token", goerrors.CategoryAuth).
			WithTextCode(TextCodeBadToken)
	}
	return claims, nil
}
