package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielcmadeley/flex-living-sub001/internal/aggregate"
	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
)

type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListReviews(ctx context.Context, q domain.ReviewsQuery) ([]domain.StoredReview, error) {
	key := reviewsCacheKey(q)
	var out []domain.StoredReview
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, q)
	if err != nil {
		return nil, err
	}

	// copy before caching so callers can't mutate the cached value
	cp := make([]domain.StoredReview, len(rs))
	copy(cp, rs)

	// size guard: don't cache pathological payloads
	if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	}
	return cp, nil
}

// Stats aggregates over the full filtered set (no page limit applied).
func (s *QueryService) Stats(ctx context.Context, q domain.ReviewsQuery) (domain.ReviewStats, error) {
	q.Limit = 0
	key := statsCacheKey(q)
	var st domain.ReviewStats
	if ok, _ := s.cache.Get(ctx, key, &st); ok {
		return st, nil
	}

	rs, err := s.repo.ListReviews(ctx, q)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	reviews := make([]domain.Review, len(rs))
	for i, r := range rs {
		reviews[i] = r.Review
	}
	st = aggregate.Stats(reviews)

	_ = s.cache.Set(ctx, key, st, int(s.cacheTTL.Seconds()))
	return st, nil
}

// ListingSummaries is the dashboard overview: per-listing stats over the full
// filtered set, listings ordered by their most recent review.
func (s *QueryService) ListingSummaries(ctx context.Context, q domain.ReviewsQuery) ([]aggregate.ListingStats, error) {
	q.Limit = 0
	key := "listings:" + queryHash(q)
	var out []aggregate.ListingStats
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, q)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, len(rs))
	for i, r := range rs {
		reviews[i] = r.Review
	}
	// newest-first before grouping so group order follows recent activity
	out = aggregate.StatsByListing(aggregate.SortByDate(reviews, true))

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// ListingReviews is the public listing-page view: published guest-to-host
// reviews for one listing, newest first.
func (s *QueryService) ListingReviews(ctx context.Context, listingName string, limit int) ([]domain.StoredReview, error) {
	status := domain.StatusPublished
	typ := domain.GuestToHost
	return s.ListReviews(ctx, domain.ReviewsQuery{
		Listing: &listingName,
		Status:  &status,
		Type:    &typ,
		Sort:    "-submitted_at",
		Limit:   limit,
	})
}

// SetStatus moderates one review row. Returns domain.ErrNotFound for an
// unknown id.
func (s *QueryService) SetStatus(ctx context.Context, rowID int64, status domain.ReviewStatus) error {
	if err := s.repo.UpdateStatus(ctx, rowID, status); err != nil {
		return err
	}
	invalidateReviewCaches(ctx, s.cache)
	return nil
}

// BulkSetStatus moderates many rows at once and reports how many changed.
func (s *QueryService) BulkSetStatus(ctx context.Context, rowIDs []int64, status domain.ReviewStatus) (int64, error) {
	n, err := s.repo.BulkUpdateStatus(ctx, rowIDs, status)
	if err != nil {
		return 0, err
	}
	invalidateReviewCaches(ctx, s.cache)
	return n, nil
}

/********** cache keys **********/

func reviewsCacheKey(q domain.ReviewsQuery) string {
	return "reviews:" + queryHash(q)
}

func statsCacheKey(q domain.ReviewsQuery) string {
	return "stats:" + queryHash(q)
}

// queryHash canonicalizes the filter set into a short stable key segment.
func queryHash(q domain.ReviewsQuery) string {
	parts := []string{
		strDeref(q.Listing),
		strDeref((*string)(q.Channel)),
		strDeref((*string)(q.Type)),
		strDeref((*string)(q.Status)),
	}
	if q.MinRating != nil {
		parts = append(parts, fmt.Sprintf("%.1f", *q.MinRating))
	} else {
		parts = append(parts, "")
	}
	parts = append(parts, q.Sort, fmt.Sprintf("%d", q.Limit))
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}

func strDeref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// invalidateReviewCaches clears the cache variants the dashboard and listing
// pages actually hit: the unfiltered defaults. Filtered variants are left to
// TTL out — the TTL is short enough that brief staleness is acceptable.
func invalidateReviewCaches(ctx context.Context, c domain.Cache) {
	if c == nil {
		return
	}
	def := domain.ReviewsQuery{Sort: "-submitted_at", Limit: 50}
	_ = c.Del(ctx, reviewsCacheKey(def))
	for _, lim := range []int{100, 200} {
		def.Limit = lim
		_ = c.Del(ctx, reviewsCacheKey(def))
	}
	_ = c.Del(ctx, statsCacheKey(domain.ReviewsQuery{Sort: "-submitted_at"}))
	_ = c.Del(ctx, "listings:"+queryHash(domain.ReviewsQuery{Sort: "-submitted_at"}))
}
