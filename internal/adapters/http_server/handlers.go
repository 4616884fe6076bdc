// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"hotel_reviews/internal/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

type Handlers struct {
	S         domain.Storage
	JWTSecret string
	WriteRate RateLimitConfig

	validate *validator.Validate
}

func NewHandlers(s domain.Storage, jwtSecret string, writeRate RateLimitConfig) *Handlers {
	return &Handlers{S: s, JWTSecret: jwtSecret, WriteRate: writeRate, validate: validator.New()}
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.validate == nil {
		h.validate = validator.New()
	}
	writes := RateLimit(h.WriteRate)

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/hotels", h.listHotels)
		r.Get("/hotels/{id}", h.getHotel)
		r.Get("/hotels/{id}/reviews", h.hotelReviews)
		r.Get("/reviews/top", h.topReviews)
		r.Get("/destinations/top", h.topDestinations)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.JWTSecret))
			r.Get("/auth/user", h.currentUser)
			r.With(writes).Post("/auth/user", h.upsertCurrentUser)
			r.With(writes).Post("/hotels", h.createHotel)
			r.With(writes).Post("/reviews", h.createReview)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps repository errors to problem responses. Data-integrity
// violations surface as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v as JSON with a weak ETag, answering 304 when the
// client already holds the same representation.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeValid reads a JSON body into dst and runs struct validation.
func (h *Handlers) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be a JSON object")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			writeProblem(w, http.StatusBadRequest, "Validation failed", "invalid fields: "+strings.Join(fields, ", "))
			return false
		}
		writeProblem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return defaultLimit, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > maxLimit {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
		return 0, false
	}
	return l, true
}

// ---- public reads ----

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	out, err := h.S.AllHotelsWithReviews(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	out, err := h.S.HotelWithReviewsByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) hotelReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	hotel, err := h.S.GetHotel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hotel == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		return
	}
	out, err := h.S.ReviewsForHotel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) topReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	out, err := h.S.TopReviews(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) topDestinations(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	out, err := h.S.TopDestinations(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

// ---- authenticated ----

func (h *Handlers) currentUser(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	u, err := h.S.GetUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// identity validates the caller's token claims as a user upsert.
func (h *Handlers) identity(w http.ResponseWriter, r *http.Request) (domain.UpsertUser, bool) {
	p, _ := PrincipalFrom(r.Context())
	in := p.UpsertUser()
	if err := h.validate.Struct(in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid identity", "token claims failed validation")
		return domain.UpsertUser{}, false
	}
	return in, true
}

func (h *Handlers) upsertCurrentUser(w http.ResponseWriter, r *http.Request) {
	in, ok := h.identity(w, r)
	if !ok {
		return
	}
	u, err := h.S.UpsertUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var in domain.InsertHotel
	if !h.decodeValid(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Name == "" || in.Location == "" {
		writeProblem(w, http.StatusBadRequest, "Validation failed", "name and location must not be blank")
		return
	}
	hotel, err := h.S.CreateHotel(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hotel)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var in domain.InsertReview
	if !h.decodeValid(w, r, &in) {
		return
	}
	author, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	hotel, err := h.S.GetHotel(ctx, in.HotelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hotel == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		return
	}

	// the author must exist before the review references it
	u, err := h.S.GetUser(ctx, author.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u == nil {
		if _, err := h.S.UpsertUser(ctx, author); err != nil {
			writeError(w, r, err)
			return
		}
	}

	rv, err := h.S.CreateReview(ctx, in, author.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}
