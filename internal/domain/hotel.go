package domain

import "time"

type Hotel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Latitude  string    `json:"latitude"`
	Longitude string    `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

// InsertHotel is the client-supplied part of a Hotel.
type InsertHotel struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	Location  string `json:"location" validate:"required,min=1,max=255"`
	Latitude  string `json:"latitude" validate:"required,max=32"`
	Longitude string `json:"longitude" validate:"required,max=32"`
}

// HotelWithReviews is computed on demand and never stored.
type HotelWithReviews struct {
	Hotel
	Reviews       []ReviewWithUser `json:"reviews"`
	AverageRating float64          `json:"averageRating"`
	ReviewCount   int              `json:"reviewCount"`
}

// Destination is a location rollup, ranked by review volume.
type Destination struct {
	Name        string             `json:"name"`
	ReviewCount int                `json:"reviewCount"`
	TopHotels   []HotelWithReviews `json:"topHotels"`
	ImageURL    string             `json:"imageUrl"`
}
