package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_reviews/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type Repo struct {
	db      *sql.DB
	nowFunc func() time.Time
}

type Option func(*Repo)

// WithNowFunc overrides the clock used for createdAt/updatedAt.
func WithNowFunc(now func() time.Time) Option {
	return func(r *Repo) { r.nowFunc = now }
}

// New expects a DSN with parseTime=true and loc=UTC.
func New(db *sql.DB, opts ...Option) *Repo {
	r := &Repo{
		db: db,
		// DATETIME(6) keeps microseconds
		nowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var email, first, last, img sql.NullString
	if err := row.Scan(&u.ID, &email, &first, &last, &img, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.Email = ptrNull(email)
	u.FirstName = ptrNull(first)
	u.LastName = ptrNull(last)
	u.ProfileImageURL = ptrNull(img)
	return u, nil
}

func scanHotel(row rowScanner) (domain.Hotel, error) {
	var h domain.Hotel
	err := row.Scan(&h.ID, &h.Name, &h.Location, &h.Latitude, &h.Longitude, &h.CreatedAt)
	return h, err
}

func (r *Repo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) UpsertUser(ctx context.Context, in domain.UpsertUser) (domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	now := r.nowFunc()
	if _, err := tx.ExecContext(ctx, upsertUserSQL,
		in.ID,
		valStr(in.Email),
		valStr(in.FirstName),
		valStr(in.LastName),
		valStr(in.ProfileImageURL),
		now, // created_at, ignored on duplicate
		now, // updated_at
	); err != nil {
		return domain.User{}, fmt.Errorf("upsert user %q: %w", in.ID, err)
	}
	u, err := scanUser(tx.QueryRowContext(ctx, getUserSQL, in.ID))
	if err != nil {
		return domain.User{}, err
	}
	return u, tx.Commit()
}

func (r *Repo) ListHotels(ctx context.Context) ([]domain.Hotel, error) {
	rows, err := r.db.QueryContext(ctx, listHotelsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Hotel{}
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) GetHotel(ctx context.Context, id int64) (*domain.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repo) FindHotelByNameLocation(ctx context.Context, name, location string) (*domain.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, findHotelSQL, name, location))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repo) CreateHotel(ctx context.Context, in domain.InsertHotel) (domain.Hotel, error) {
	h := domain.Hotel{
		Name:      in.Name,
		Location:  in.Location,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedAt: r.nowFunc(),
	}
	res, err := r.db.ExecContext(ctx, insertHotelSQL, h.Name, h.Location, h.Latitude, h.Longitude, h.CreatedAt)
	if err != nil {
		return domain.Hotel{}, err
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

func (r *Repo) ListReviews(ctx context.Context) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.UserID,
			&rv.HotelID,
			&rv.Rating,
			&rv.Comment,
			&rv.VideoURL,
			&rv.CreatedAt,
			&rv.Likes,
			&rv.Comments,
		); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CreateReview(ctx context.Context, in domain.InsertReview, userID string) (domain.Review, error) {
	rv := domain.Review{
		UserID:    userID,
		HotelID:   in.HotelID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		VideoURL:  in.VideoURL,
		CreatedAt: r.nowFunc(),
	}
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.UserID,
		rv.HotelID,
		rv.Rating,
		rv.Comment,
		rv.VideoURL,
		rv.CreatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}
