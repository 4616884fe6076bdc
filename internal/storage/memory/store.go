// Package memory is a process-local EntityStore for tests, prototyping and
// single-instance deployments. Nothing survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"hotel_reviews/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	users   map[string]domain.User
	hotels  map[int64]domain.Hotel
	reviews map[int64]domain.Review

	// creation order, used for listings
	hotelOrder  []int64
	reviewOrder []int64

	nextHotelID  int64
	nextReviewID int64

	nowFunc func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNowFunc overrides the clock used for createdAt/updatedAt.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) { s.nowFunc = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		users:        make(map[string]domain.User),
		hotels:       make(map[int64]domain.Hotel),
		reviews:      make(map[int64]domain.Review),
		nextHotelID:  1,
		nextReviewID: 1,
		nowFunc:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) UpsertUser(_ context.Context, in domain.UpsertUser) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	u := domain.User{
		ID:              in.ID,
		Email:           in.Email,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		ProfileImageURL: in.ProfileImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if prev, ok := s.users[in.ID]; ok {
		u.CreatedAt = prev.CreatedAt
	}
	s.users[in.ID] = u
	return u, nil
}

func (s *Store) ListHotels(_ context.Context) ([]domain.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Hotel, 0, len(s.hotelOrder))
	for _, id := range s.hotelOrder {
		out = append(out, s.hotels[id])
	}
	return out, nil
}

func (s *Store) GetHotel(_ context.Context, id int64) (*domain.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hotels[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *Store) FindHotelByNameLocation(_ context.Context, name, location string) (*domain.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.hotelOrder {
		h := s.hotels[id]
		if strings.EqualFold(h.Name, name) && strings.EqualFold(h.Location, location) {
			return &h, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateHotel(_ context.Context, in domain.InsertHotel) (domain.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := domain.Hotel{
		ID:        s.nextHotelID,
		Name:      in.Name,
		Location:  in.Location,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedAt: s.nowFunc(),
	}
	s.nextHotelID++
	s.hotels[h.ID] = h
	s.hotelOrder = append(s.hotelOrder, h.ID)
	return h, nil
}

func (s *Store) ListReviews(_ context.Context) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Review, 0, len(s.reviewOrder))
	for _, id := range s.reviewOrder {
		out = append(out, s.reviews[id])
	}
	return out, nil
}

func (s *Store) CreateReview(_ context.Context, in domain.InsertReview, userID string) (domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := domain.Review{
		ID:        s.nextReviewID,
		UserID:    userID,
		HotelID:   in.HotelID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		VideoURL:  in.VideoURL,
		CreatedAt: s.nowFunc(),
	}
	s.nextReviewID++
	s.reviews[r.ID] = r
	s.reviewOrder = append(s.reviewOrder, r.ID)
	return r, nil
}

// Reset drops all state and rewinds the id counters.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]domain.User)
	s.hotels = make(map[int64]domain.Hotel)
	s.reviews = make(map[int64]domain.Review)
	s.hotelOrder, s.reviewOrder = nil, nil
	s.nextHotelID, s.nextReviewID = 1, 1
}
