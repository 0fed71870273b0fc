package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*10)
	for _, rv := range rs {
		cats, err := json.Marshal(rv.Categories)
		if err != nil {
			return fmt.Errorf("marshal categories for %s/%s: %w", rv.Channel, rv.ID, err)
		}
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			string(rv.Channel),
			rv.ID,
			string(rv.Type),
			string(rv.Status),
			valF64(rv.OverallRating),
			rv.Comment,
			string(cats),
			rv.SubmittedAt,
			rv.GuestName,
			rv.ListingName,
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) UpdateStatus(ctx context.Context, rowID int64, status domain.ReviewStatus) error {
	res, err := r.db.ExecContext(ctx, updateStatusSQL, string(status), rowID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// zero rows affected: either the id is unknown or the status already
	// matched — distinguish the two
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM reviews WHERE id = ?`, rowID).Scan(&one)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	return err
}

func (r *Repo) BulkUpdateStatus(ctx context.Context, rowIDs []int64, status domain.ReviewStatus) (int64, error) {
	if len(rowIDs) == 0 {
		return 0, nil
	}
	ph := make([]string, len(rowIDs))
	args := make([]any, 0, len(rowIDs)+1)
	args = append(args, string(status))
	for i, id := range rowIDs {
		ph[i] = "?"
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN (`+strings.Join(ph, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) LogMiss(ctx context.Context, channel domain.Channel, ref string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, string(channel), ref, status, reason)
	return err
}

func (r *Repo) GetReview(ctx context.Context, rowID int64) (domain.StoredReview, error) {
	row := r.db.QueryRowContext(ctx, selectReviewColumns+`WHERE id = ?`, rowID)
	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return domain.StoredReview{}, domain.ErrNotFound
	}
	return rv, err
}

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewsQuery) ([]domain.StoredReview, error) {
	var where []string
	var args []any
	if q.Listing != nil {
		where = append(where, "listing_name = ?")
		args = append(args, *q.Listing)
	}
	if q.Channel != nil {
		where = append(where, "channel = ?")
		args = append(args, string(*q.Channel))
	}
	if q.Type != nil {
		where = append(where, "review_type = ?")
		args = append(args, string(*q.Type))
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.MinRating != nil {
		where = append(where, "overall_rating >= ?")
		args = append(args, *q.MinRating)
	}

	sqlStr := selectReviewColumns
	if len(where) > 0 {
		sqlStr += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	// id as tiebreaker keeps ordering deterministic for equal timestamps
	if q.Sort == "submitted_at" {
		sqlStr += "ORDER BY submitted_at ASC, id ASC"
	} else {
		sqlStr += "ORDER BY submitted_at DESC, id DESC"
	}
	if q.Limit > 0 {
		sqlStr += "\nLIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoredReview
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanReview(row rowScanner) (domain.StoredReview, error) {
	var rv domain.StoredReview
	var (
		channel, typ, status string
		rating               sql.NullFloat64
		comment, guest, name sql.NullString
		catsRaw              []byte
	)
	if err := row.Scan(
		&rv.RowID,
		&channel,
		&rv.ID,
		&typ,
		&status,
		&rating,
		&comment,
		&catsRaw,
		&rv.SubmittedAt,
		&guest,
		&name,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	); err != nil {
		return domain.StoredReview{}, err
	}
	rv.Channel = domain.Channel(channel)
	rv.Type = domain.ReviewType(typ)
	rv.Status = domain.ReviewStatus(status)
	if rating.Valid {
		f := rating.Float64
		rv.OverallRating = &f
	}
	rv.Comment = comment.String
	rv.GuestName = guest.String
	rv.ListingName = name.String
	if len(catsRaw) > 0 {
		_ = json.Unmarshal(catsRaw, &rv.Categories)
	}
	return rv, nil
}
