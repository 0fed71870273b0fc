package domain

import "time"

// Channel tags the external source a review originated from. Source ids are
// only unique within a channel, so any merge keys on (Channel, SourceID).
type Channel string

const (
	ChannelHostaway Channel = "hostaway"
	ChannelGoogle   Channel = "google"
)

type ReviewType string

const (
	HostToGuest ReviewType = "host-to-guest"
	GuestToHost ReviewType = "guest-to-host"
)

type ReviewStatus string

const (
	StatusPublished ReviewStatus = "published"
	StatusPending   ReviewStatus = "pending"
	StatusDraft     ReviewStatus = "draft"
)

// Category is a named sub-rating key. The seven Category* constants are the
// recognized Hostaway keys. The Synthetic* constants exist only for Google
// reviews, which carry no real per-category breakdown — those values are
// fabricated from the overall rating and must not be read as sourced data.
type Category string

const (
	CategoryCleanliness   Category = "cleanliness"
	CategoryCommunication Category = "communication"
	CategoryHouseRules    Category = "respect_house_rules"
	CategoryAccuracy      Category = "accuracy"
	CategoryLocation      Category = "location"
	CategoryCheckIn       Category = "check_in"
	CategoryValue         Category = "value"

	SyntheticOverall    Category = "overall"
	SyntheticExperience Category = "experience"
)

// KnownCategories is the fixed key set the category mapper accepts.
var KnownCategories = []Category{
	CategoryCleanliness,
	CategoryCommunication,
	CategoryHouseRules,
	CategoryAccuracy,
	CategoryLocation,
	CategoryCheckIn,
	CategoryValue,
}

// Review is the canonical cross-source shape every consumer sees.
// OverallRating is nil when the source supplied none and no category scores
// existed to derive one from; when set it is always on the 1-10 scale
// (Google's 1-5 ratings are doubled during normalization). Categories omits
// absent keys rather than zero-filling them.
type Review struct {
	ID            string               `json:"id"`
	Channel       Channel              `json:"channel"`
	Type          ReviewType           `json:"type"`
	Status        ReviewStatus         `json:"status"`
	OverallRating *float64             `json:"overallRating"`
	Comment       string               `json:"comment"`
	Categories    map[Category]float64 `json:"categories"`
	SubmittedAt   time.Time            `json:"submittedAt"`
	GuestName     string               `json:"guestName"`
	ListingName   string               `json:"listingName"`
}

// StoredReview is the persisted row: the canonical fields plus the surrogate
// key and row audit timestamps (when the row was written, not when the guest
// submitted the review).
type StoredReview struct {
	RowID     int64     `json:"rowId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Review
}
