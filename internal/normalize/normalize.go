// Package normalize turns raw source review payloads (Hostaway booking
// channel, Google Places) into the canonical domain.Review shape. Everything
// here is a pure function over in-memory slices: no I/O, no shared state,
// fresh output on every call.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
)

// Skipped records one raw input that could not be normalized. Data-quality
// problems never abort a batch; callers get the survivors plus this list.
type Skipped struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Result is a batch outcome: normalized reviews plus per-record skip
// diagnostics, in input order.
type Result struct {
	Reviews []domain.Review `json:"reviews"`
	Skipped []Skipped       `json:"skipped,omitempty"`
}

// round1 rounds half-up to one decimal place. All derived ratings and all
// aggregate statistics use this, never banker's rounding.
func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// syntheticID builds a stable id for sources that don't provide one.
func syntheticID(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

/********** Hostaway **********/

// hostawayTimeLayout is the channel's "2023-08-21 22:45:14" format.
const hostawayTimeLayout = "2006-01-02 15:04:05"

type HostawayCategory struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// HostawayReview is the raw booking-channel record as it arrives on the wire.
type HostawayReview struct {
	ID             int64              `json:"id"`
	Type           string             `json:"type"`
	Status         string             `json:"status"`
	Rating         *float64           `json:"rating"`
	PublicReview   string             `json:"publicReview"`
	ReviewCategory []HostawayCategory `json:"reviewCategory"`
	SubmittedAt    string             `json:"submittedAt"`
	GuestName      string             `json:"guestName"`
	ListingName    string             `json:"listingName"`
}

// MapCategories filters the raw category pairs down to the recognized key
// set. Unknown names are dropped silently; a repeated name is last-value-wins.
func MapCategories(pairs []HostawayCategory) map[domain.Category]float64 {
	known := make(map[domain.Category]struct{}, len(domain.KnownCategories))
	for _, c := range domain.KnownCategories {
		known[c] = struct{}{}
	}
	out := make(map[domain.Category]float64, len(pairs))
	for _, p := range pairs {
		k := domain.Category(p.Category)
		if _, ok := known[k]; !ok {
			continue
		}
		out[k] = p.Rating
	}
	return out
}

// ResolveRating picks the single overall rating for a review: an explicit
// source rating wins untouched; otherwise the mean of the raw category list,
// rounded to one decimal. Note the mean runs over the list BEFORE
// MapCategories filters it — an unrecognized category still counts here even
// though it never reaches the final map. That asymmetry is deliberate.
func ResolveRating(explicit *float64, pairs []HostawayCategory) *float64 {
	if explicit != nil {
		v := *explicit
		return &v
	}
	if len(pairs) == 0 {
		return nil
	}
	var sum float64
	for _, p := range pairs {
		sum += p.Rating
	}
	mean := round1(sum / float64(len(pairs)))
	return &mean
}

// Hostaway normalizes a single booking-channel record. Type and status pass
// through trusted; the channel owns its moderation vocabulary.
func Hostaway(r HostawayReview) (domain.Review, error) {
	if r.ID == 0 {
		return domain.Review{}, fmt.Errorf("missing id")
	}
	ts, err := parseHostawayTime(r.SubmittedAt)
	if err != nil {
		return domain.Review{}, fmt.Errorf("bad submittedAt %q: %w", r.SubmittedAt, err)
	}
	return domain.Review{
		ID:            strconv.FormatInt(r.ID, 10),
		Channel:       domain.ChannelHostaway,
		Type:          domain.ReviewType(r.Type),
		Status:        domain.ReviewStatus(r.Status),
		OverallRating: ResolveRating(r.Rating, r.ReviewCategory),
		Comment:       r.PublicReview,
		Categories:    MapCategories(r.ReviewCategory),
		SubmittedAt:   ts,
		GuestName:     r.GuestName,
		ListingName:   r.ListingName,
	}, nil
}

// HostawayBatch normalizes a whole payload with per-record isolation: a
// malformed record is skipped with a reason, the rest go through.
func HostawayBatch(in []HostawayReview) Result {
	res := Result{Reviews: make([]domain.Review, 0, len(in))}
	for i, raw := range in {
		rv, err := Hostaway(raw)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		res.Reviews = append(res.Reviews, rv)
	}
	return res
}

func parseHostawayTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty")
	}
	if t, err := time.Parse(hostawayTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	// some channel exports use full ISO-8601
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

/********** Google Places **********/

// PlaceReview is the raw Places API record. Only author_name, rating, text
// and time matter to normalization; the rest are optional and default-safe.
type PlaceReview struct {
	AuthorName              string  `json:"author_name"`
	Rating                  float64 `json:"rating"`
	Text                    string  `json:"text"`
	Time                    int64   `json:"time"`
	RelativeTimeDescription string  `json:"relative_time_description"`
	Language                string  `json:"language"`
	ProfilePhotoURL         string  `json:"profile_photo_url,omitempty"`
	AuthorURL               string  `json:"author_url,omitempty"`
	OriginalLanguage        string  `json:"original_language,omitempty"`
	Translated              bool    `json:"translated,omitempty"`
}

// Google normalizes a single Places review for the given listing. Places
// reviews are inherently guest-authored and carry no moderation state, so
// type and status are fixed. The 1-5 star rating is doubled onto the 1-10
// canonical scale with full precision — no rounding on top.
//
// The resulting Categories map is fabricated: Places exposes no per-category
// breakdown, so the doubled overall rating is replicated into the synthetic
// keys purely for presentational symmetry with Hostaway reviews.
func Google(listingName string, r PlaceReview) (domain.Review, error) {
	if r.Time == 0 {
		return domain.Review{}, fmt.Errorf("missing time")
	}
	rv := domain.Review{
		ID:          syntheticID("google", r.AuthorName, strconv.FormatInt(r.Time, 10)),
		Channel:     domain.ChannelGoogle,
		Type:        domain.GuestToHost,
		Status:      domain.StatusPublished,
		Comment:     r.Text,
		SubmittedAt: time.Unix(r.Time, 0).UTC(),
		GuestName:   r.AuthorName,
		ListingName: listingName,
	}
	if r.Rating > 0 {
		doubled := r.Rating * 2
		rv.OverallRating = &doubled
		rv.Categories = map[domain.Category]float64{
			domain.SyntheticOverall:    doubled,
			domain.SyntheticExperience: doubled,
			domain.CategoryValue:       doubled,
		}
	}
	return rv, nil
}

// GoogleBatch normalizes a Places payload with the same per-record isolation
// as HostawayBatch.
func GoogleBatch(listingName string, in []PlaceReview) Result {
	res := Result{Reviews: make([]domain.Review, 0, len(in))}
	for i, raw := range in {
		rv, err := Google(listingName, raw)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		res.Reviews = append(res.Reviews, rv)
	}
	return res
}
