package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens minted by the identity provider.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}
}

func (v *TokenVerifier) Verify(tokenStr string) (*Principal, error) {
	if len(v.secret) == 0 || strings.TrimSpace(tokenStr) == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	p := &Principal{
		UserID: claims.Subject,
		Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:   strings.TrimSpace(claims.Name),
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	return p, nil
}

// Sign mints a token for p. Used by tooling and tests.
func (v *TokenVerifier) Sign(p *Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: p.Email,
		Name:  p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
