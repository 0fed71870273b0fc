package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
	"github.com/danielcmadeley/flex-living-sub001/internal/normalize"
)

// HostawayClient fetches raw booking-channel reviews for one listing.
type HostawayClient interface {
	FetchReviews(ctx context.Context, listingID int64, limit int) ([]normalize.HostawayReview, error)
}

// PlacesClient fetches a place's display name and its raw reviews.
type PlacesClient interface {
	FetchPlaceReviews(ctx context.Context, placeID string) (string, []normalize.PlaceReview, error)
}

type IngestionService struct {
	hostaway HostawayClient
	places   PlacesClient
	repo     domain.ReviewRepository
	cache    domain.Cache

	// samples feed the "never show nothing" fallback when the booking
	// channel is down; normalized through the same pipeline as live data.
	samples []normalize.HostawayReview
}

func NewIngestionService(h HostawayClient, p PlacesClient, r domain.ReviewRepository, cache domain.Cache, samples []normalize.HostawayReview) *IngestionService {
	return &IngestionService{hostaway: h, places: p, repo: r, cache: cache, samples: samples}
}

// Report summarizes one ingestion run for a single listing or place.
type Report struct {
	Ingested int
	Skipped  int
}

// IngestListing pulls one listing's reviews from Hostaway, normalizes them and
// upserts the survivors. Known upstream misses (404/401/403) are recorded and
// not fatal; any other upstream failure falls back to the sample set so the
// public pages never go empty.
func (s *IngestionService) IngestListing(ctx context.Context, listingID int64, limit int) (Report, error) {
	ref := fmt.Sprintf("listing:%d", listingID)

	raw, err := s.hostaway.FetchReviews(ctx, listingID, limit)
	switch {
	case err == nil:
		// fall through
	case errors.Is(err, domain.ErrUpstreamNotFound):
		_ = s.repo.LogMiss(ctx, domain.ChannelHostaway, ref, 404, "not found")
		s.invalidate(ctx)
		return Report{}, nil
	case errors.Is(err, domain.ErrUpstreamDenied):
		_ = s.repo.LogMiss(ctx, domain.ChannelHostaway, ref, 403, "denied")
		s.invalidate(ctx)
		return Report{}, nil
	case ctx.Err() != nil:
		return Report{}, ctx.Err()
	default:
		if len(s.samples) == 0 {
			return Report{}, err
		}
		log.Warn().Err(err).Int64("listing", listingID).Msg("hostaway unavailable, using sample reviews")
		_ = s.repo.LogMiss(ctx, domain.ChannelHostaway, ref, 0, "fallback:samples")
		raw = s.samples
	}

	res := normalize.HostawayBatch(raw)
	s.logSkipped(domain.ChannelHostaway, ref, res.Skipped)

	if len(res.Reviews) > 0 {
		if err := s.repo.UpsertReviews(ctx, res.Reviews); err != nil {
			return Report{}, fmt.Errorf("upsert hostaway reviews for %s: %w", ref, err)
		}
	}
	// invalidate even when zero reviews survived so stale pages drop out
	s.invalidate(ctx)
	return Report{Ingested: len(res.Reviews), Skipped: len(res.Skipped)}, nil
}

// IngestPlace pulls one Google place's reviews. Same miss handling as the
// booking channel, but no sample fallback: Places data only supplements the
// listing pages, it never carries them.
func (s *IngestionService) IngestPlace(ctx context.Context, placeID string) (Report, error) {
	ref := "place:" + placeID

	name, raw, err := s.places.FetchPlaceReviews(ctx, placeID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUpstreamNotFound):
		_ = s.repo.LogMiss(ctx, domain.ChannelGoogle, ref, 404, "not found")
		s.invalidate(ctx)
		return Report{}, nil
	case errors.Is(err, domain.ErrUpstreamDenied):
		_ = s.repo.LogMiss(ctx, domain.ChannelGoogle, ref, 403, "denied")
		s.invalidate(ctx)
		return Report{}, nil
	default:
		return Report{}, err
	}

	res := normalize.GoogleBatch(name, raw)
	s.logSkipped(domain.ChannelGoogle, ref, res.Skipped)

	if len(res.Reviews) > 0 {
		if err := s.repo.UpsertReviews(ctx, res.Reviews); err != nil {
			return Report{}, fmt.Errorf("upsert google reviews for %s: %w", ref, err)
		}
	}
	s.invalidate(ctx)
	return Report{Ingested: len(res.Reviews), Skipped: len(res.Skipped)}, nil
}

func (s *IngestionService) logSkipped(ch domain.Channel, ref string, skipped []normalize.Skipped) {
	for _, sk := range skipped {
		log.Warn().
			Str("channel", string(ch)).
			Str("ref", ref).
			Int("index", sk.Index).
			Str("reason", sk.Reason).
			Msg("review skipped")
	}
}

func (s *IngestionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	invalidateReviewCaches(ctx, s.cache)
}
