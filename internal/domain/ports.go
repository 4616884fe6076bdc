package domain

import "context"

// EntityStore owns users, hotels and reviews plus the hotel/review id
// counters. Lookups return nil when the entity does not exist; an error
// always means the backend failed.
type EntityStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, u UpsertUser) (User, error)

	// Hotels are listed in insertion order.
	ListHotels(ctx context.Context) ([]Hotel, error)
	GetHotel(ctx context.Context, id int64) (*Hotel, error)
	FindHotelByNameLocation(ctx context.Context, name, location string) (*Hotel, error)
	CreateHotel(ctx context.Context, h InsertHotel) (Hotel, error)

	// Reviews are listed in insertion order.
	ListReviews(ctx context.Context) ([]Review, error)
	CreateReview(ctx context.Context, r InsertReview, userID string) (Review, error)
}

// Storage is the contract the HTTP layer depends on: raw entity operations
// and computed rollups behind one interface.
type Storage interface {
	GetUser(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, u UpsertUser) (User, error)

	ListHotels(ctx context.Context) ([]Hotel, error)
	GetHotel(ctx context.Context, id int64) (*Hotel, error)
	FindHotelByNameLocation(ctx context.Context, name, location string) (*Hotel, error)
	CreateHotel(ctx context.Context, h InsertHotel) (Hotel, error)

	ListReviews(ctx context.Context) ([]Review, error)
	CreateReview(ctx context.Context, r InsertReview, userID string) (Review, error)

	ReviewsForHotel(ctx context.Context, hotelID int64) ([]ReviewWithUser, error)
	HotelWithReviews(ctx context.Context, h Hotel) (HotelWithReviews, error)
	HotelWithReviewsByID(ctx context.Context, id int64) (HotelWithReviews, error)
	AllHotelsWithReviews(ctx context.Context) ([]HotelWithReviews, error)
	TopReviews(ctx context.Context, limit int) ([]ReviewWithUserAndHotel, error)
	TopDestinations(ctx context.Context, limit int) ([]Destination, error)
}

// CatalogClient fetches hotel records from an external content API.
type CatalogClient interface {
	GetProperty(ctx context.Context, id int64) (map[string]any, error)
}
