package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/danielcmadeley/flex-living-sub001/internal/aggregate"
	"github.com/danielcmadeley/flex-living-sub001/internal/app"
	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	rows      []domain.StoredReview
	lastQuery domain.ReviewsQuery
	statusSet map[int64]domain.ReviewStatus
	upserted  [][]domain.Review
	misses    []string
}

func (f *fakeRepo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	f.upserted = append(f.upserted, rs)
	return nil
}
func (f *fakeRepo) UpdateStatus(ctx context.Context, rowID int64, status domain.ReviewStatus) error {
	for i := range f.rows {
		if f.rows[i].RowID == rowID {
			if f.statusSet == nil {
				f.statusSet = map[int64]domain.ReviewStatus{}
			}
			f.statusSet[rowID] = status
			return nil
		}
	}
	return domain.ErrNotFound
}
func (f *fakeRepo) BulkUpdateStatus(ctx context.Context, rowIDs []int64, status domain.ReviewStatus) (int64, error) {
	var n int64
	for _, id := range rowIDs {
		if f.UpdateStatus(ctx, id, status) == nil {
			n++
		}
	}
	return n, nil
}
func (f *fakeRepo) LogMiss(ctx context.Context, ch domain.Channel, ref string, status int, reason string) error {
	f.misses = append(f.misses, string(ch)+"/"+ref+"/"+reason)
	return nil
}
func (f *fakeRepo) ListReviews(ctx context.Context, q domain.ReviewsQuery) ([]domain.StoredReview, error) {
	f.lastQuery = q
	return f.rows, nil
}
func (f *fakeRepo) GetReview(ctx context.Context, rowID int64) (domain.StoredReview, error) {
	for _, r := range f.rows {
		if r.RowID == rowID {
			return r, nil
		}
	}
	return domain.StoredReview{}, domain.ErrNotFound
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]domain.StoredReview:
		*d = v.([]domain.StoredReview)
	case *domain.ReviewStats:
		*d = v.(domain.ReviewStats)
	case *[]aggregate.ListingStats:
		*d = v.([]aggregate.ListingStats)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

func pf(f float64) *float64 { return &f }

func stored(rowID int64, listing string, typ domain.ReviewType, rating *float64) domain.StoredReview {
	return domain.StoredReview{
		RowID: rowID,
		Review: domain.Review{
			ID:            "src",
			Channel:       domain.ChannelHostaway,
			Type:          typ,
			Status:        domain.StatusPublished,
			OverallRating: rating,
			ListingName:   listing,
			SubmittedAt:   time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// ---- tests ----

func TestListReviews_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{rows: []domain.StoredReview{
		stored(1, "Shoreditch", domain.GuestToHost, pf(9)),
	}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	out, err := q.ListReviews(context.Background(), domain.ReviewsQuery{Limit: 10})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 1 || out[0].ListingName != "Shoreditch" {
		t.Fatalf("unexpected reviews: %+v", out)
	}

	// change repo, call again -> should come from cache
	repo.rows[0].ListingName = "Changed"
	out2, _ := q.ListReviews(context.Background(), domain.ReviewsQuery{Limit: 10})
	if out2[0].ListingName != "Shoreditch" {
		t.Fatalf("expected cached listing, got %s", out2[0].ListingName)
	}
}

func TestStats_ExcludesNilRatings(t *testing.T) {
	repo := &fakeRepo{rows: []domain.StoredReview{
		stored(1, "A", domain.GuestToHost, pf(8)),
		stored(2, "A", domain.GuestToHost, nil),
		stored(3, "A", domain.HostToGuest, pf(6)),
	}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	st, err := q.Stats(context.Background(), domain.ReviewsQuery{Limit: 50})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st.Overall != 7.0 || st.TotalReviews != 3 {
		t.Fatalf("stats: %+v", st)
	}
	// stats always aggregate the full filtered set, never a page
	if repo.lastQuery.Limit != 0 {
		t.Fatalf("expected no limit on stats query, got %d", repo.lastQuery.Limit)
	}
}

func TestListingSummaries_GroupsNewestFirst(t *testing.T) {
	older := stored(1, "Hackney Road", domain.GuestToHost, pf(6))
	newer := stored(2, "Shoreditch", domain.GuestToHost, pf(9))
	newer.SubmittedAt = older.SubmittedAt.Add(48 * time.Hour)
	repo := &fakeRepo{rows: []domain.StoredReview{older, newer}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	out, err := q.ListingSummaries(context.Background(), domain.ReviewsQuery{Limit: 50})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[0].ListingName != "Shoreditch" {
		t.Fatalf("expected most recently reviewed listing first: %+v", out)
	}
	if out[0].Stats.Overall != 9.0 || out[1].Stats.Overall != 6.0 {
		t.Fatalf("per-listing stats: %+v", out)
	}
	if repo.lastQuery.Limit != 0 {
		t.Fatalf("summaries must cover the full filtered set, got limit %d", repo.lastQuery.Limit)
	}
}

func TestListingReviews_AppliesPublicFilters(t *testing.T) {
	repo := &fakeRepo{}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	_, err := q.ListingReviews(context.Background(), "Hackney Road", 20)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	got := repo.lastQuery
	if got.Listing == nil || *got.Listing != "Hackney Road" {
		t.Fatalf("listing filter: %+v", got)
	}
	if got.Status == nil || *got.Status != domain.StatusPublished {
		t.Fatalf("status filter: %+v", got)
	}
	if got.Type == nil || *got.Type != domain.GuestToHost {
		t.Fatalf("type filter: %+v", got)
	}
	if got.Limit != 20 || got.Sort != "-submitted_at" {
		t.Fatalf("page: %+v", got)
	}
}

func TestSetStatus_NotFoundPassesThrough(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute)
	if err := q.SetStatus(context.Background(), 99, domain.StatusDraft); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetStatus_InvalidatesDefaultCaches(t *testing.T) {
	repo := &fakeRepo{rows: []domain.StoredReview{stored(5, "A", domain.GuestToHost, pf(8))}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)

	if err := q.SetStatus(context.Background(), 5, domain.StatusPublished); err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.statusSet[5] != domain.StatusPublished {
		t.Fatalf("status not applied: %+v", repo.statusSet)
	}
	if len(cache.dels) == 0 {
		t.Fatalf("expected cache invalidation deletes")
	}
}

func TestBulkSetStatus_CountsUpdatedRows(t *testing.T) {
	repo := &fakeRepo{rows: []domain.StoredReview{
		stored(1, "A", domain.GuestToHost, nil),
		stored(2, "A", domain.GuestToHost, nil),
	}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	n, err := q.BulkSetStatus(context.Background(), []int64{1, 2, 404}, domain.StatusDraft)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updated, got %d", n)
	}
}
