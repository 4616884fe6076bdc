package domain

import "time"

type Review struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	HotelID   int64     `json:"hotelId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	VideoURL  string    `json:"videoUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
}

// Score satisfies Rated.
func (r Review) Score() int { return r.Rating }

// InsertReview is the client-supplied part of a Review; the author comes from
// the authenticated principal.
type InsertReview struct {
	HotelID  int64  `json:"hotelId" validate:"required,gt=0"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comment  string `json:"comment" validate:"required,max=2000"`
	VideoURL string `json:"videoUrl" validate:"required,url"`
}

type ReviewWithUser struct {
	Review
	User User `json:"user"`
}

type ReviewWithUserAndHotel struct {
	Review
	User  User  `json:"user"`
	Hotel Hotel `json:"hotel"`
}

// Rated is anything carrying a review rating.
type Rated interface {
	Score() int
}
