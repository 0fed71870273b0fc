package mysql

// Reviews are keyed on (channel, source_id) so a Google and a Hostaway review
// sharing an id space never collide. `status` is deliberately NOT updated on
// duplicate: moderation decisions made in the dashboard survive re-ingestion.
const insertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (channel, source_id, review_type, status, overall_rating, comment, categories, submitted_at, guest_name, listing_name)\n" +
	"VALUES "

const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  review_type    = VALUES(review_type),\n" +
	"  overall_rating = VALUES(overall_rating),\n" +
	"  comment        = VALUES(comment),\n" +
	"  categories     = VALUES(categories),\n" +
	"  submitted_at   = VALUES(submitted_at),\n" +
	"  guest_name     = VALUES(guest_name),\n" +
	"  listing_name   = VALUES(listing_name),\n" +
	"  updated_at     = CURRENT_TIMESTAMP\n"

const insertMissSQL = `
INSERT INTO ingest_misses (channel, ref, http_status, reason)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

const updateStatusSQL = `
UPDATE reviews SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

const selectReviewColumns = `
SELECT
  id,
  channel,
  source_id,
  review_type,
  status,
  overall_rating,
  comment,
  categories,
  submitted_at,
  guest_name,
  listing_name,
  created_at,
  updated_at
FROM reviews
`
