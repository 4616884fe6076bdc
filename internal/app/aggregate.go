package app

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"hotel_reviews/internal/domain"
)

const (
	// DefaultLimit applies to TopReviews/TopDestinations when limit <= 0.
	DefaultLimit = 10

	// topHotelsPerDestination caps Destination.TopHotels.
	topHotelsPerDestination = 3

	DefaultImageURLTemplate = "https://source.unsplash.com/800x600/?%s,city"
)

// Aggregator computes read models over the current contents of an
// EntityStore. It never writes.
type Aggregator struct {
	store         domain.EntityStore
	imageTemplate string
}

func NewAggregator(store domain.EntityStore, imageTemplate string) *Aggregator {
	if imageTemplate == "" || !strings.Contains(imageTemplate, "%s") {
		imageTemplate = DefaultImageURLTemplate
	}
	return &Aggregator{store: store, imageTemplate: imageTemplate}
}

// AverageRating is the arithmetic mean of the ratings, or 0 for no reviews.
func AverageRating[R domain.Rated](reviews []R) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Score()
	}
	return float64(sum) / float64(len(reviews))
}

// DestinationImageURL renders the template with the query-escaped location.
func (a *Aggregator) DestinationImageURL(location string) string {
	return fmt.Sprintf(a.imageTemplate, url.QueryEscape(location))
}

func (a *Aggregator) ReviewsForHotel(ctx context.Context, hotelID int64) ([]domain.ReviewWithUser, error) {
	snap, err := a.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.reviewsForHotel(hotelID)
}

func (a *Aggregator) HotelWithReviews(ctx context.Context, h domain.Hotel) (domain.HotelWithReviews, error) {
	snap, err := a.load(ctx, false)
	if err != nil {
		return domain.HotelWithReviews{}, err
	}
	return snap.hotelWithReviews(h)
}

func (a *Aggregator) AllHotelsWithReviews(ctx context.Context) ([]domain.HotelWithReviews, error) {
	snap, err := a.load(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HotelWithReviews, 0, len(snap.hotels))
	for _, h := range snap.hotels {
		hw, err := snap.hotelWithReviews(h)
		if err != nil {
			return nil, err
		}
		out = append(out, hw)
	}
	return out, nil
}

// TopReviews returns the highest rated reviews across all hotels, hydrated
// with their author and hotel. Equal ratings keep insertion order.
func (a *Aggregator) TopReviews(ctx context.Context, limit int) ([]domain.ReviewWithUserAndHotel, error) {
	limit = normalizeLimit(limit)
	snap, err := a.load(ctx, true)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.Review, len(snap.reviews))
	copy(ranked, snap.reviews)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rating > ranked[j].Rating })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]domain.ReviewWithUserAndHotel, 0, len(ranked))
	for _, r := range ranked {
		u, err := snap.user(r)
		if err != nil {
			return nil, err
		}
		h, ok := snap.hotelByID[r.HotelID]
		if !ok {
			return nil, fmt.Errorf("%w: review %d references missing hotel %d", domain.ErrDataIntegrity, r.ID, r.HotelID)
		}
		out = append(out, domain.ReviewWithUserAndHotel{Review: r, User: u, Hotel: h})
	}
	return out, nil
}

// TopDestinations groups hotels by location and ranks the locations by total
// review count. Locations without any review are left out.
func (a *Aggregator) TopDestinations(ctx context.Context, limit int) ([]domain.Destination, error) {
	limit = normalizeLimit(limit)
	snap, err := a.load(ctx, true)
	if err != nil {
		return nil, err
	}

	var locations []string
	byLocation := make(map[string][]domain.Hotel)
	for _, h := range snap.hotels {
		if _, seen := byLocation[h.Location]; !seen {
			locations = append(locations, h.Location)
		}
		byLocation[h.Location] = append(byLocation[h.Location], h)
	}

	dests := make([]domain.Destination, 0, len(locations))
	for _, loc := range locations {
		hotels := byLocation[loc]
		withReviews := make([]domain.HotelWithReviews, 0, len(hotels))
		total := 0
		for _, h := range hotels {
			hw, err := snap.hotelWithReviews(h)
			if err != nil {
				return nil, err
			}
			total += hw.ReviewCount
			withReviews = append(withReviews, hw)
		}
		if total == 0 {
			continue
		}

		sort.SliceStable(withReviews, func(i, j int) bool {
			return withReviews[i].AverageRating > withReviews[j].AverageRating
		})
		if len(withReviews) > topHotelsPerDestination {
			withReviews = withReviews[:topHotelsPerDestination]
		}

		dests = append(dests, domain.Destination{
			Name:        loc,
			ReviewCount: total,
			TopHotels:   withReviews,
			ImageURL:    a.DestinationImageURL(loc),
		})
	}

	sort.SliceStable(dests, func(i, j int) bool { return dests[i].ReviewCount > dests[j].ReviewCount })
	if len(dests) > limit {
		dests = dests[:limit]
	}
	return dests, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// ---- snapshot ----

// snapshot is one read of the store shared by a single aggregation call, so
// every projection in that call sees the same hotels and reviews. Hotels
// created after the review read may appear without reviews; a review never
// appears without its hotel.
type snapshot struct {
	ctx   context.Context
	store domain.EntityStore

	hotels    []domain.Hotel
	hotelByID map[int64]domain.Hotel
	reviews   []domain.Review
	byHotel   map[int64][]domain.Review

	// memoized user lookups; nil marks a known-missing user
	users map[string]*domain.User
}

func (a *Aggregator) load(ctx context.Context, withHotels bool) (*snapshot, error) {
	snap := &snapshot{
		ctx:       ctx,
		store:     a.store,
		hotelByID: make(map[int64]domain.Hotel),
		byHotel:   make(map[int64][]domain.Review),
		users:     make(map[string]*domain.User),
	}

	// Reviews are read before hotels. Hotels and users are never deleted and
	// always exist before a review points at them, so every listed review
	// finds its hotel in the later read.
	rs, err := a.store.ListReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	snap.reviews = rs
	if withHotels {
		hs, err := a.store.ListHotels(ctx)
		if err != nil {
			return nil, fmt.Errorf("list hotels: %w", err)
		}
		snap.hotels = hs
	}

	for _, h := range snap.hotels {
		snap.hotelByID[h.ID] = h
	}
	for _, r := range snap.reviews {
		snap.byHotel[r.HotelID] = append(snap.byHotel[r.HotelID], r)
	}
	return snap, nil
}

func (s *snapshot) user(r domain.Review) (domain.User, error) {
	u, cached := s.users[r.UserID]
	if !cached {
		var err error
		u, err = s.store.GetUser(s.ctx, r.UserID)
		if err != nil {
			return domain.User{}, fmt.Errorf("get user %q: %w", r.UserID, err)
		}
		s.users[r.UserID] = u
	}
	if u == nil {
		return domain.User{}, fmt.Errorf("%w: review %d references missing user %q", domain.ErrDataIntegrity, r.ID, r.UserID)
	}
	return *u, nil
}

func (s *snapshot) reviewsForHotel(hotelID int64) ([]domain.ReviewWithUser, error) {
	src := s.byHotel[hotelID]
	ranked := make([]domain.Review, len(src))
	copy(ranked, src)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rating > ranked[j].Rating })

	out := make([]domain.ReviewWithUser, 0, len(ranked))
	for _, r := range ranked {
		u, err := s.user(r)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ReviewWithUser{Review: r, User: u})
	}
	return out, nil
}

func (s *snapshot) hotelWithReviews(h domain.Hotel) (domain.HotelWithReviews, error) {
	reviews, err := s.reviewsForHotel(h.ID)
	if err != nil {
		return domain.HotelWithReviews{}, err
	}
	return domain.HotelWithReviews{
		Hotel:         h,
		Reviews:       reviews,
		AverageRating: AverageRating(reviews),
		ReviewCount:   len(reviews),
	}, nil
}
