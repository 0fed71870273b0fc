package shared

import "github.com/danielcmadeley/flex-living-sub001/internal/normalize"

func pf(f float64) *float64 { return &f }

// SampleHostawayReviews is the fixed fallback set used when the booking
// channel is unreachable, so the public listing pages never render empty.
// The records go through the same normalization pipeline as live data.
func SampleHostawayReviews() []normalize.HostawayReview {
	return []normalize.HostawayReview{
		{
			ID:           7453,
			Type:         "host-to-guest",
			Status:       "published",
			Rating:       nil,
			PublicReview: "Shane and family are wonderful! Would definitely host again :)",
			ReviewCategory: []normalize.HostawayCategory{
				{Category: "cleanliness", Rating: 10},
				{Category: "communication", Rating: 10},
				{Category: "respect_house_rules", Rating: 10},
			},
			SubmittedAt: "2020-08-21 22:45:14",
			GuestName:   "Shane Finkelstein",
			ListingName: "2B N1 A - 29 Shoreditch Heights",
		},
		{
			ID:           7454,
			Type:         "guest-to-host",
			Status:       "published",
			Rating:       pf(9),
			PublicReview: "Lovely apartment in a great location. Check-in was seamless.",
			ReviewCategory: []normalize.HostawayCategory{
				{Category: "cleanliness", Rating: 9},
				{Category: "communication", Rating: 10},
				{Category: "location", Rating: 10},
				{Category: "value", Rating: 8},
			},
			SubmittedAt: "2021-03-14 09:12:30",
			GuestName:   "Maria Kovacs",
			ListingName: "2B N1 A - 29 Shoreditch Heights",
		},
		{
			ID:           7455,
			Type:         "guest-to-host",
			Status:       "published",
			Rating:       nil,
			PublicReview: "Quiet street, comfy bed. The lift was out for a day but the host sorted it quickly.",
			ReviewCategory: []normalize.HostawayCategory{
				{Category: "cleanliness", Rating: 8},
				{Category: "communication", Rating: 9},
				{Category: "check_in", Rating: 7},
			},
			SubmittedAt: "2021-07-02 18:40:05",
			GuestName:   "Tom Albright",
			ListingName: "1B E2 B - 12 Hackney Road",
		},
		{
			ID:           7456,
			Type:         "guest-to-host",
			Status:       "pending",
			Rating:       pf(7),
			PublicReview: "",
			ReviewCategory: []normalize.HostawayCategory{
				{Category: "accuracy", Rating: 7},
				{Category: "location", Rating: 8},
			},
			SubmittedAt: "2022-01-19 11:05:49",
			GuestName:   "Yuki Tanaka",
			ListingName: "1B E2 B - 12 Hackney Road",
		},
	}
}
