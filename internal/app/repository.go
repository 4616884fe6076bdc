package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_reviews/internal/adapters/observability"
	"hotel_reviews/internal/domain"
)

// Repository implements domain.Storage on top of an EntityStore. Entity
// operations pass straight through; rollups go to the Aggregator.
type Repository struct {
	store domain.EntityStore
	agg   *Aggregator

	// serializes the find-then-create pair of CreateHotel
	createHotelMu sync.Mutex
}

var _ domain.Storage = (*Repository)(nil)

func NewRepository(store domain.EntityStore, agg *Aggregator) *Repository {
	if agg == nil {
		agg = NewAggregator(store, "")
	}
	return &Repository{store: store, agg: agg}
}

// observe records latency and outcome for one facade operation and logs
// data-integrity violations, which always indicate an out-of-band write.
func observe(op string, start time.Time, err error) {
	observability.ObserveStore(op, err, time.Since(start))
	if errors.Is(err, domain.ErrDataIntegrity) {
		log.Error().Err(err).Str("op", op).Msg("data integrity violation")
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("op", op).Str("type", observability.LabelErr(err)).Msg("store operation failed")
	}
}

func (r *Repository) GetUser(ctx context.Context, id string) (u *domain.User, err error) {
	defer func(start time.Time) { observe("GetUser", start, err) }(time.Now())
	return r.store.GetUser(ctx, id)
}

func (r *Repository) UpsertUser(ctx context.Context, in domain.UpsertUser) (u domain.User, err error) {
	defer func(start time.Time) { observe("UpsertUser", start, err) }(time.Now())
	u, err = r.store.UpsertUser(ctx, in)
	if err == nil {
		observability.ObserveCreated("user")
	}
	return u, err
}

func (r *Repository) ListHotels(ctx context.Context) (hs []domain.Hotel, err error) {
	defer func(start time.Time) { observe("ListHotels", start, err) }(time.Now())
	return r.store.ListHotels(ctx)
}

func (r *Repository) GetHotel(ctx context.Context, id int64) (h *domain.Hotel, err error) {
	defer func(start time.Time) { observe("GetHotel", start, err) }(time.Now())
	return r.store.GetHotel(ctx, id)
}

func (r *Repository) FindHotelByNameLocation(ctx context.Context, name, location string) (h *domain.Hotel, err error) {
	defer func(start time.Time) { observe("FindHotelByNameLocation", start, err) }(time.Now())
	return r.store.FindHotelByNameLocation(ctx, name, location)
}

// CreateHotel returns the existing hotel when one with the same name and
// location (case-insensitive) is already stored.
func (r *Repository) CreateHotel(ctx context.Context, in domain.InsertHotel) (h domain.Hotel, err error) {
	defer func(start time.Time) { observe("CreateHotel", start, err) }(time.Now())

	r.createHotelMu.Lock()
	defer r.createHotelMu.Unlock()

	existing, err := r.store.FindHotelByNameLocation(ctx, in.Name, in.Location)
	if err != nil {
		return domain.Hotel{}, fmt.Errorf("find hotel: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}
	h, err = r.store.CreateHotel(ctx, in)
	if err != nil {
		return domain.Hotel{}, fmt.Errorf("create hotel: %w", err)
	}
	observability.ObserveCreated("hotel")
	log.Info().Int64("hotel_id", h.ID).Str("location", h.Location).Msg("hotel created")
	return h, nil
}

func (r *Repository) ListReviews(ctx context.Context) (rs []domain.Review, err error) {
	defer func(start time.Time) { observe("ListReviews", start, err) }(time.Now())
	return r.store.ListReviews(ctx)
}

func (r *Repository) CreateReview(ctx context.Context, in domain.InsertReview, userID string) (rv domain.Review, err error) {
	defer func(start time.Time) { observe("CreateReview", start, err) }(time.Now())
	rv, err = r.store.CreateReview(ctx, in, userID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	observability.ObserveCreated("review")
	log.Info().Int64("review_id", rv.ID).Int64("hotel_id", rv.HotelID).Int("rating", rv.Rating).Msg("review created")
	return rv, nil
}

func (r *Repository) ReviewsForHotel(ctx context.Context, hotelID int64) (out []domain.ReviewWithUser, err error) {
	defer func(start time.Time) { observe("ReviewsForHotel", start, err) }(time.Now())
	return r.agg.ReviewsForHotel(ctx, hotelID)
}

func (r *Repository) HotelWithReviews(ctx context.Context, h domain.Hotel) (out domain.HotelWithReviews, err error) {
	defer func(start time.Time) { observe("HotelWithReviews", start, err) }(time.Now())
	return r.agg.HotelWithReviews(ctx, h)
}

// HotelWithReviewsByID is HotelWithReviews for a stored hotel; it returns
// domain.ErrNotFound when the id is unknown.
func (r *Repository) HotelWithReviewsByID(ctx context.Context, id int64) (out domain.HotelWithReviews, err error) {
	defer func(start time.Time) { observe("HotelWithReviewsByID", start, err) }(time.Now())
	h, err := r.store.GetHotel(ctx, id)
	if err != nil {
		return domain.HotelWithReviews{}, err
	}
	if h == nil {
		return domain.HotelWithReviews{}, fmt.Errorf("hotel %d: %w", id, domain.ErrNotFound)
	}
	return r.agg.HotelWithReviews(ctx, *h)
}

func (r *Repository) AllHotelsWithReviews(ctx context.Context) (out []domain.HotelWithReviews, err error) {
	defer func(start time.Time) { observe("AllHotelsWithReviews", start, err) }(time.Now())
	return r.agg.AllHotelsWithReviews(ctx)
}

func (r *Repository) TopReviews(ctx context.Context, limit int) (out []domain.ReviewWithUserAndHotel, err error) {
	defer func(start time.Time) { observe("TopReviews", start, err) }(time.Now())
	return r.agg.TopReviews(ctx, limit)
}

func (r *Repository) TopDestinations(ctx context.Context, limit int) (out []domain.Destination, err error) {
	defer func(start time.Time) { observe("TopDestinations", start, err) }(time.Now())
	return r.agg.TopDestinations(ctx, limit)
}
