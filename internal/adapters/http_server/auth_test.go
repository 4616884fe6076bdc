package httpserver_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "hotel_reviews/internal/adapters/http_server"
)

func TestParseToken(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, []byte(testSecret), server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "auth0|42"},
		FirstName:        "Ada",
		ProfileImageURL:  " ",
	})
	p, err := server.ParseToken(testSecret, valid)
	require.NoError(t, err)
	assert.Equal(t, "auth0|42", p.UserID)
	require.NotNil(t, p.FirstName)
	assert.Equal(t, "Ada", *p.FirstName)
	assert.Nil(t, p.Email)
	assert.Nil(t, p.ProfileImageURL)

	up := p.UpsertUser()
	assert.Equal(t, "auth0|42", up.ID)
}

func TestParseToken_Rejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte(testSecret), server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	noSubject := sign(t, jwt.SigningMethodHS256, []byte(testSecret), server.Claims{})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	})
	wrongAlg := sign(t, jwt.SigningMethodHS512, []byte(testSecret), server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	})

	for name, raw := range map[string]string{
		"expired":    expired,
		"no subject": noSubject,
		"wrong key":  wrongKey,
		"wrong alg":  wrongAlg,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := server.ParseToken(testSecret, raw)
			assert.Error(t, err)
		})
	}

	_, err := server.ParseToken("", "anything")
	assert.Error(t, err)
}
