package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")

	// Upstream sentinels the source adapters translate their HTTP
	// statuses into, so ingestion can treat known misses as non-fatal.
	ErrUpstreamNotFound = errors.New("upstream: not found")
	ErrUpstreamDenied   = errors.New("upstream: denied")
)

type ReviewRepository interface {
	// Write paths
	UpsertReviews(ctx context.Context, rs []Review) error
	UpdateStatus(ctx context.Context, rowID int64, status ReviewStatus) error
	BulkUpdateStatus(ctx context.Context, rowIDs []int64, status ReviewStatus) (int64, error)
	LogMiss(ctx context.Context, channel Channel, ref string, status int, reason string) error

	// Read paths
	ListReviews(ctx context.Context, q ReviewsQuery) ([]StoredReview, error)
	GetReview(ctx context.Context, rowID int64) (StoredReview, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ReviewsQuery carries the dashboard filters. Nil pointers mean "no filter".
// Sort is "submitted_at" or "-submitted_at" (default newest first).
type ReviewsQuery struct {
	Listing   *string
	Channel   *Channel
	Type      *ReviewType
	Status    *ReviewStatus
	MinRating *float64
	Sort      string
	Limit     int
}
