// Package redisstore keeps users, hotels and reviews in Redis as JSON values.
// Ids come from INCR counters. Listings read the RPUSH'd id lists and return
// entities in id order, matching the SQL store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"hotel_reviews/internal/domain"
)

const (
	keyHotelSeq   = "hotel:seq"
	keyReviewSeq  = "review:seq"
	keyHotelIDs   = "hotels"
	keyReviewIDs  = "reviews"
	keyHotelIndex = "hotels:by_name_location"

	// concurrent upserts of one user; each round lets at least one through
	upsertAttempts = 10
)

func userKey(id string) string  { return "user:" + id }
func hotelKey(id int64) string  { return fmt.Sprintf("hotel:%d", id) }
func reviewKey(id int64) string { return fmt.Sprintf("review:%d", id) }

func indexField(name, loc string) string {
	return strings.ToLower(name) + "\x00" + strings.ToLower(loc)
}

type Store struct {
	c       redis.UniversalClient
	nowFunc func() time.Time
}

type Option func(*Store)

// WithNowFunc overrides the clock used for createdAt/updatedAt.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) { s.nowFunc = now }
}

func New(c redis.UniversalClient, opts ...Option) *Store {
	s := &Store{c: c, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, pass string, db int, opts ...Option) (*Store, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(c, opts...), nil
}

func (s *Store) Close() error { return s.c.Close() }

// getJSON decodes key into dst; false means the key does not exist.
func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := s.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	ok, err := s.getJSON(ctx, userKey(id), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpsertUser(ctx context.Context, in domain.UpsertUser) (domain.User, error) {
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

	// WATCH keeps createdAt stable against a concurrent first insert.
	txf := func(tx *redis.Tx) error {
		u.CreatedAt = now
		var prev domain.User
		b, err := tx.Get(ctx, userKey(in.ID)).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(b, &prev); err != nil {
				return err
			}
			u.CreatedAt = prev.CreatedAt
		}
		raw, err := json.Marshal(u)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, userKey(in.ID), raw, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < upsertAttempts; i++ {
		err = s.c.Watch(ctx, txf, userKey(in.ID))
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user %q: %w", in.ID, err)
	}
	return u, nil
}

// listByIDs loads the JSON values for the id list at listKey in id order.
func listByIDs[T any](ctx context.Context, c redis.UniversalClient, listKey string, key func(int64) string) ([]T, error) {
	ids, err := c.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	nums := make([]int64, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q in %s: %w", raw, listKey, err)
		}
		nums = append(nums, id)
	}
	// INCR and RPUSH are separate round trips, so concurrent creates can
	// push out of id order.
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	keys := make([]string, 0, len(nums))
	for _, id := range nums {
		keys = append(keys, key(id))
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s listed in %s but missing", keys[i], listKey)
		}
		var item T
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) ListHotels(ctx context.Context) ([]domain.Hotel, error) {
	return listByIDs[domain.Hotel](ctx, s.c, keyHotelIDs, hotelKey)
}

func (s *Store) GetHotel(ctx context.Context, id int64) (*domain.Hotel, error) {
	var h domain.Hotel
	ok, err := s.getJSON(ctx, hotelKey(id), &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

func (s *Store) FindHotelByNameLocation(ctx context.Context, name, location string) (*domain.Hotel, error) {
	id, err := s.c.HGet(ctx, keyHotelIndex, indexField(name, location)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.GetHotel(ctx, id)
}

func (s *Store) CreateHotel(ctx context.Context, in domain.InsertHotel) (domain.Hotel, error) {
	id, err := s.c.Incr(ctx, keyHotelSeq).Result()
	if err != nil {
		return domain.Hotel{}, fmt.Errorf("next hotel id: %w", err)
	}
	h := domain.Hotel{
		ID:        id,
		Name:      in.Name,
		Location:  in.Location,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedAt: s.nowFunc(),
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return domain.Hotel{}, err
	}
	_, err = s.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, hotelKey(id), raw, 0)
		// first writer wins, matching the oldest-id lookup of the SQL store
		p.HSetNX(ctx, keyHotelIndex, indexField(in.Name, in.Location), id)
		p.RPush(ctx, keyHotelIDs, id)
		return nil
	})
	if err != nil {
		return domain.Hotel{}, fmt.Errorf("store hotel %d: %w", id, err)
	}
	return h, nil
}

func (s *Store) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return listByIDs[domain.Review](ctx, s.c, keyReviewIDs, reviewKey)
}

func (s *Store) CreateReview(ctx context.Context, in domain.InsertReview, userID string) (domain.Review, error) {
	id, err := s.c.Incr(ctx, keyReviewSeq).Result()
	if err != nil {
		return domain.Review{}, fmt.Errorf("next review id: %w", err)
	}
	r := domain.Review{
		ID:        id,
		UserID:    userID,
		HotelID:   in.HotelID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		VideoURL:  in.VideoURL,
		CreatedAt: s.nowFunc(),
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return domain.Review{}, err
	}
	_, err = s.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, reviewKey(id), raw, 0)
		p.RPush(ctx, keyReviewIDs, id)
		return nil
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("store review %d: %w", id, err)
	}
	return r, nil
}
