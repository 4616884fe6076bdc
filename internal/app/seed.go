package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_reviews/internal/domain"
)

// HotelCreator is the slice of domain.Storage the seeder writes through.
type HotelCreator interface {
	CreateHotel(ctx context.Context, h domain.InsertHotel) (domain.Hotel, error)
}

type SeedService struct {
	catalog  domain.CatalogClient
	hotels   HotelCreator
	validate *validator.Validate
}

func NewSeedService(c domain.CatalogClient, hotels HotelCreator) *SeedService {
	return &SeedService{catalog: c, hotels: hotels, validate: validator.New()}
}

// SeedStats summarizes one Seed run.
type SeedStats struct {
	Imported int64
	Missing  int64
	Failed   int64
}

// SeedHotel imports one catalog property. The second return is false when
// the catalog has no such property.
func (s *SeedService) SeedHotel(ctx context.Context, id int64) (domain.Hotel, bool, error) {
	p, err := s.catalog.GetProperty(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Hotel{}, false, nil
	}
	if err != nil {
		return domain.Hotel{}, false, err
	}

	in, err := MapProperty(p)
	if err != nil {
		return domain.Hotel{}, false, fmt.Errorf("property %d: %w", id, err)
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Hotel{}, false, fmt.Errorf("property %d: %w", id, err)
	}
	h, err := s.hotels.CreateHotel(ctx, in)
	if err != nil {
		return domain.Hotel{}, false, err
	}
	return h, true, nil
}

// Seed imports ids with at most workers concurrent fetches. Per-property
// failures are logged and counted; only a cancelled ctx aborts the run.
func (s *SeedService) Seed(ctx context.Context, ids []int64, workers int) (SeedStats, error) {
	if workers <= 0 {
		workers = 1
	}
	var (
		imported, missing, failed atomic.Int64
		wg                        sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(workers))
	stats := func() SeedStats {
		return SeedStats{Imported: imported.Load(), Missing: missing.Load(), Failed: failed.Load()}
	}

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return stats(), err
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer sem.Release(1)

			h, ok, err := s.SeedHotel(ctx, id)
			switch {
			case err != nil:
				failed.Add(1)
				log.Warn().Int64("property_id", id).Err(err).Msg("seed failed")
			case !ok:
				missing.Add(1)
				log.Warn().Int64("property_id", id).Msg("property not in catalog")
			default:
				imported.Add(1)
				log.Info().Int64("property_id", id).Int64("hotel_id", h.ID).Msg("seed ok")
			}
		}(id)
	}
	wg.Wait()
	return stats(), ctx.Err()
}

// ---- property mapping ----

var propertyAliases = map[string][]string{
	"name":      {"hotel_name", "name"},
	"city":      {"address.city", "city", "locality", "town"},
	"latitude":  {"latitude", "lat", "location.lat"},
	"longitude": {"longitude", "lon", "lng", "location.lon", "location.lng"},
}

// MapProperty turns a catalog property into a hotel insert. The city is the
// hotel's location; coordinates keep their decimal text form.
func MapProperty(p map[string]any) (domain.InsertHotel, error) {
	in := domain.InsertHotel{
		Name:      strings.TrimSpace(firstString(p, propertyAliases["name"]...)),
		Location:  strings.TrimSpace(firstString(p, propertyAliases["city"]...)),
		Latitude:  firstCoord(p, propertyAliases["latitude"]...),
		Longitude: firstCoord(p, propertyAliases["longitude"]...),
	}
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Location == "" {
		missing = append(missing, "city")
	}
	if in.Latitude == "" || in.Longitude == "" {
		missing = append(missing, "coordinates")
	}
	if len(missing) > 0 {
		return domain.InsertHotel{}, fmt.Errorf("property lacks %s", strings.Join(missing, ", "))
	}
	return in, nil
}

// lookupAny walks dot paths through nested maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// firstCoord accepts numbers or numeric strings (comma decimals too).
func firstCoord(m map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
	}
	return ""
}
