package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "hotel_reviews/internal/adapters/http_server"
	"hotel_reviews/internal/app"
	"hotel_reviews/internal/domain"
	"hotel_reviews/internal/storage/memory"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, c server.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return raw
}

func tokenFor(t *testing.T, sub string) string {
	return sign(t, jwt.SigningMethodHS256, []byte(testSecret), server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Email:            sub + "@example.com",
	})
}

type api struct {
	t   *testing.T
	h   http.Handler
	tok string
}

func newAPI(t *testing.T, rl server.RateLimitConfig) *api {
	t.Helper()
	return newAPIBehindProxy(t, rl, false)
}

func newAPIBehindProxy(t *testing.T, rl server.RateLimitConfig, trustProxy bool) *api {
	t.Helper()
	store := memory.New()
	repo := app.NewRepository(store, app.NewAggregator(store, ""))
	srv := server.New(5*time.Second, trustProxy)
	srv.MountHandlers(server.NewHandlers(repo, testSecret, rl))
	return &api{t: t, h: srv.Mux(), tok: tokenFor(t, "U1")}
}

func (a *api) do(method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

func (a *api) authed() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.tok}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})
	rr := a.do("GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestWritesRequireToken(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})
	rr := a.do("POST", "/api/hotels", map[string]any{"name": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = a.do("GET", "/api/auth/user", nil, map[string]string{"Authorization": "Bearer nonsense"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestReviewFlow(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})
	hotel := map[string]any{"name": "Grand", "location": "Paris", "latitude": "48.8", "longitude": "2.3"}

	rr := a.do("POST", "/api/hotels", hotel, a.authed())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	h := decode[domain.Hotel](t, rr)
	assert.Equal(t, int64(1), h.ID)

	rr = a.do("POST", "/api/hotels", map[string]any{"name": "GRAND", "location": "paris", "latitude": "1", "longitude": "1"}, a.authed())
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int64(1), decode[domain.Hotel](t, rr).ID)

	for _, rating := range []int{5, 3} {
		rr = a.do("POST", "/api/reviews", map[string]any{
			"hotelId": 1, "rating": rating, "comment": "great", "videoUrl": "https://videos.example/v1",
		}, a.authed())
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		rv := decode[domain.Review](t, rr)
		assert.Equal(t, "U1", rv.UserID)
	}

	rr = a.do("GET", "/api/hotels/1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	hw := decode[domain.HotelWithReviews](t, rr)
	assert.Equal(t, 4.0, hw.AverageRating)
	assert.Equal(t, 2, hw.ReviewCount)
	require.Len(t, hw.Reviews, 2)
	assert.Equal(t, "U1", hw.Reviews[0].User.ID)

	rr = a.do("GET", "/api/hotels/1/reviews", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.ReviewWithUser](t, rr), 2)

	rr = a.do("GET", "/api/destinations/top", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dests := decode[[]domain.Destination](t, rr)
	require.Len(t, dests, 1)
	assert.Equal(t, "Paris", dests[0].Name)
	assert.Equal(t, 2, dests[0].ReviewCount)

	rr = a.do("GET", "/api/reviews/top?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	top := decode[[]domain.ReviewWithUserAndHotel](t, rr)
	require.Len(t, top, 1)
	assert.Equal(t, 5, top[0].Rating)
	assert.Equal(t, "Grand", top[0].Hotel.Name)

	// the review author was created from the token
	rr = a.do("GET", "/api/auth/user", nil, a.authed())
	require.Equal(t, http.StatusOK, rr.Code)
	u := decode[domain.User](t, rr)
	assert.Equal(t, "U1", u.ID)
	require.NotNil(t, u.Email)
	assert.Equal(t, "U1@example.com", *u.Email)
}

func TestUpsertCurrentUser(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})

	rr := a.do("GET", "/api/auth/user", nil, a.authed())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do("POST", "/api/auth/user", nil, a.authed())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "U1", decode[domain.User](t, rr).ID)
}

func TestCreateReview_Rejections(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})

	rr := a.do("POST", "/api/reviews", map[string]any{"hotelId": 1, "rating": 6, "comment": "x", "videoUrl": "https://v.example"}, a.authed())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Rating")

	rr = a.do("POST", "/api/reviews", map[string]any{"hotelId": 99, "rating": 4, "comment": "x", "videoUrl": "https://v.example"}, a.authed())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest("POST", "/api/reviews", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+a.tok)
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateHotel_BlankNameRejected(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})
	rr := a.do("POST", "/api/hotels", map[string]any{"name": "   ", "location": "Paris", "latitude": "1", "longitude": "2"}, a.authed())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadErrors(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})

	cases := []struct {
		path string
		code int
	}{
		{"/api/hotels/abc", http.StatusBadRequest},
		{"/api/hotels/0", http.StatusBadRequest},
		{"/api/hotels/7", http.StatusNotFound},
		{"/api/hotels/7/reviews", http.StatusNotFound},
		{"/api/reviews/top?limit=0", http.StatusBadRequest},
		{"/api/reviews/top?limit=101", http.StatusBadRequest},
		{"/api/destinations/top?limit=x", http.StatusBadRequest},
		{"/api/destinations/top?limit=100", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rr := a.do("GET", tc.path, nil, nil)
			assert.Equal(t, tc.code, rr.Code, rr.Body.String())
		})
	}
}

func TestListHotels_ETag(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})
	a.do("POST", "/api/hotels", map[string]any{"name": "A", "location": "B", "latitude": "1", "longitude": "2"}, a.authed())

	rr := a.do("GET", "/api/hotels", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`), etag)
	assert.Len(t, decode[[]domain.HotelWithReviews](t, rr), 1)

	rr = a.do("GET", "/api/hotels", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.Bytes())
}

func TestWritesAreRateLimited(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{RPS: 0.001, Burst: 1})
	body := map[string]any{"name": "A", "location": "B", "latitude": "1", "longitude": "2"}

	rr := a.do("POST", "/api/hotels", body, a.authed())
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = a.do("POST", "/api/hotels", body, a.authed())
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are never throttled
	rr = a.do("GET", "/api/hotels", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWriteLimit_IgnoresForwardedForByDefault(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{RPS: 0.001, Burst: 1})
	body := map[string]any{"name": "A", "location": "B", "latitude": "1", "longitude": "2"}

	hdr := a.authed()
	hdr["X-Forwarded-For"] = "198.51.100.1"
	rr := a.do("POST", "/api/hotels", body, hdr)
	assert.Equal(t, http.StatusCreated, rr.Code)

	// a rotated header is still the same connection
	hdr["X-Forwarded-For"] = "198.51.100.2"
	rr = a.do("POST", "/api/hotels", body, hdr)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestWriteLimit_TrustedProxyKeysOnForwardedClient(t *testing.T) {
	a := newAPIBehindProxy(t, server.RateLimitConfig{RPS: 0.001, Burst: 1}, true)
	body := map[string]any{"name": "A", "location": "B", "latitude": "1", "longitude": "2"}

	hdr := a.authed()
	hdr["X-Forwarded-For"] = "198.51.100.1"
	assert.Equal(t, http.StatusCreated, a.do("POST", "/api/hotels", body, hdr).Code)
	assert.Equal(t, http.StatusTooManyRequests, a.do("POST", "/api/hotels", body, hdr).Code)

	hdr["X-Forwarded-For"] = "198.51.100.2"
	assert.Equal(t, http.StatusCreated, a.do("POST", "/api/hotels", body, hdr).Code)
}

func TestCreateReview_OversizedSubjectIsBadRequest(t *testing.T) {
	a := newAPI(t, server.RateLimitConfig{})
	a.do("POST", "/api/hotels", map[string]any{"name": "A", "location": "B", "latitude": "1", "longitude": "2"}, a.authed())

	long := tokenFor(t, strings.Repeat("x", 300))
	rr := a.do("POST", "/api/reviews", map[string]any{
		"hotelId": 1, "rating": 4, "comment": "c", "videoUrl": "https://v.example",
	}, map[string]string{"Authorization": "Bearer " + long})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = a.do("GET", "/api/reviews/top", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]domain.ReviewWithUserAndHotel](t, rr))
}
