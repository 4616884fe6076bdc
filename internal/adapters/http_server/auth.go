package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"hotel_reviews/internal/domain"
)

// Principal is the authenticated caller, taken from a verified bearer token.
type Principal struct {
	UserID          string
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// UpsertUser turns the token identity into a user upsert payload.
func (p Principal) UpsertUser() domain.UpsertUser {
	return domain.UpsertUser{
		ID:              p.UserID,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		ProfileImageURL: p.ProfileImageURL,
	}
}

// Claims issued by the identity provider; sub is the stable user id.
type Claims struct {
	jwt.RegisteredClaims
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

type principalKey struct{}

// PrincipalFrom returns the caller set by Authenticate.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// ParseToken verifies an HS256 token and extracts the principal.
func ParseToken(secret, raw string) (Principal, error) {
	if secret == "" {
		return Principal{}, errors.New("auth not configured")
	}
	var c Claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, err
	}
	if !tok.Valid || strings.TrimSpace(c.Subject) == "" {
		return Principal{}, errors.New("token has no subject")
	}
	return Principal{
		UserID:          c.Subject,
		Email:           optional(c.Email),
		FirstName:       optional(c.FirstName),
		LastName:        optional(c.LastName),
		ProfileImageURL: optional(c.ProfileImageURL),
	}, nil
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			p, err := ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}
