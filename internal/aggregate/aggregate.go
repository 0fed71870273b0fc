// Package aggregate provides grouping, ordering and statistics over canonical
// reviews. Like normalize, it is pure: inputs are never mutated and every call
// allocates fresh output, so concurrent use needs no locking.
package aggregate

import (
	"math"
	"sort"

	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
)

// ListingGroup is one listing's reviews in their original relative order.
type ListingGroup struct {
	ListingName string          `json:"listingName"`
	Reviews     []domain.Review `json:"reviews"`
}

// ByListing partitions reviews by listing name, groups ordered by first
// appearance and records keeping their input order within each group. Listing
// names are compared exactly — no case or whitespace folding, two listings
// differing only in case stay distinct.
func ByListing(in []domain.Review) []ListingGroup {
	idx := make(map[string]int, len(in))
	var out []ListingGroup
	for _, r := range in {
		i, ok := idx[r.ListingName]
		if !ok {
			i = len(out)
			idx[r.ListingName] = i
			out = append(out, ListingGroup{ListingName: r.ListingName})
		}
		out[i].Reviews = append(out[i].Reviews, r)
	}
	return out
}

// ByType partitions by review direction (host-to-guest / guest-to-host),
// preserving input order within each bucket.
func ByType(in []domain.Review) map[domain.ReviewType][]domain.Review {
	out := make(map[domain.ReviewType][]domain.Review, 2)
	for _, r := range in {
		out[r.Type] = append(out[r.Type], r)
	}
	return out
}

// SortByDate returns a date-ordered copy, newest first when desc. The sort is
// stable: records sharing a timestamp keep their input order.
func SortByDate(in []domain.Review, desc bool) []domain.Review {
	out := make([]domain.Review, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// ListingStats pairs a listing with the stats over its reviews. The dashboard
// renders one card per entry.
type ListingStats struct {
	ListingName string             `json:"listingName"`
	Stats       domain.ReviewStats `json:"stats"`
}

// StatsByListing computes per-listing statistics, one entry per listing in
// first-appearance order.
func StatsByListing(in []domain.Review) []ListingStats {
	groups := ByListing(in)
	out := make([]ListingStats, len(groups))
	for i, g := range groups {
		out[i] = ListingStats{ListingName: g.ListingName, Stats: Stats(g.Reviews)}
	}
	return out
}

// Stats computes the aggregate payload. Means run over only the records that
// expose a value: nil overall ratings and absent category keys are excluded
// from numerator and denominator alike. An empty rated set yields an overall
// of 0 to keep the response shape stable for clients.
func Stats(in []domain.Review) domain.ReviewStats {
	st := domain.ReviewStats{
		Categories:   map[string]float64{},
		ReviewTypes:  map[string]int{},
		TotalReviews: len(in),
	}

	var ratedSum float64
	var rated int
	catSum := map[string]float64{}
	catN := map[string]int{}

	for _, r := range in {
		st.ReviewTypes[string(r.Type)]++
		if r.OverallRating != nil {
			ratedSum += *r.OverallRating
			rated++
		}
		for k, v := range r.Categories {
			catSum[string(k)] += v
			catN[string(k)]++
		}
	}

	if rated > 0 {
		st.Overall = round1(ratedSum / float64(rated))
	}
	for k, n := range catN {
		st.Categories[k] = round1(catSum[k] / float64(n))
	}
	return st
}

// round1 rounds half-up to one decimal, matching the normalizer's rounding.
func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
