package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/danielcmadeley/flex-living-sub001/internal/aggregate"
	"github.com/danielcmadeley/flex-living-sub001/internal/app"
	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reviews", h.listReviews)
	s.mux.Get("/v1/reviews/stats", h.reviewStats)
	s.mux.Get("/v1/listings", h.listingSummaries)
	s.mux.Get("/v1/listings/{name}/reviews", h.listingReviews)
	s.mux.Patch("/v1/reviews/{id}", h.setStatus)
	s.mux.Post("/v1/reviews/bulk-status", h.bulkStatus)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

var validStatuses = map[domain.ReviewStatus]bool{
	domain.StatusPublished: true,
	domain.StatusPending:   true,
	domain.StatusDraft:     true,
}

// parseReviewsQuery reads the dashboard filters off the URL. A bad value gets
// a non-nil problem written and ok=false.
func parseReviewsQuery(w http.ResponseWriter, r *http.Request) (domain.ReviewsQuery, bool) {
	q := domain.ReviewsQuery{Sort: "-submitted_at", Limit: 50}
	vals := r.URL.Query()

	if v := vals.Get("listing"); v != "" {
		q.Listing = &v
	}
	if v := vals.Get("channel"); v != "" {
		ch := domain.Channel(v)
		if ch != domain.ChannelHostaway && ch != domain.ChannelGoogle {
			writeProblem(w, http.StatusBadRequest, "Invalid channel", "channel must be hostaway or google")
			return q, false
		}
		q.Channel = &ch
	}
	if v := vals.Get("type"); v != "" {
		t := domain.ReviewType(v)
		if t != domain.HostToGuest && t != domain.GuestToHost {
			writeProblem(w, http.StatusBadRequest, "Invalid type", "type must be host-to-guest or guest-to-host")
			return q, false
		}
		q.Type = &t
	}
	if v := vals.Get("status"); v != "" {
		st := domain.ReviewStatus(v)
		if !validStatuses[st] {
			writeProblem(w, http.StatusBadRequest, "Invalid status", "status must be published, pending or draft")
			return q, false
		}
		q.Status = &st
	}
	if v := vals.Get("minRating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 10 {
			writeProblem(w, http.StatusBadRequest, "Invalid minRating", "minRating must be a number in [0,10]")
			return q, false
		}
		q.MinRating = &f
	}
	if v := vals.Get("sort"); v != "" {
		if v != "submitted_at" && v != "-submitted_at" {
			writeProblem(w, http.StatusBadRequest, "Invalid sort", "sort must be submitted_at or -submitted_at")
			return q, false
		}
		q.Sort = v
	}
	if v := vals.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return q, false
		}
		q.Limit = l
	}
	return q, true
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q, ok := parseReviewsQuery(w, r)
	if !ok {
		return
	}
	out, err := h.Q.ListReviews(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "listing reviews failed")
		return
	}
	if out == nil {
		out = []domain.StoredReview{}
	}
	writeCachedJSON(w, r, out)
}

func (h *Handlers) reviewStats(w http.ResponseWriter, r *http.Request) {
	q, ok := parseReviewsQuery(w, r)
	if !ok {
		return
	}
	st, err := h.Q.Stats(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "computing stats failed")
		return
	}
	writeCachedJSON(w, r, st)
}

func (h *Handlers) listingSummaries(w http.ResponseWriter, r *http.Request) {
	q, ok := parseReviewsQuery(w, r)
	if !ok {
		return
	}
	out, err := h.Q.ListingSummaries(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "listing summaries failed")
		return
	}
	if out == nil {
		out = []aggregate.ListingStats{}
	}
	writeCachedJSON(w, r, out)
}

func (h *Handlers) listingReviews(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid listing", "listing name is required")
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	out, err := h.Q.ListingReviews(r.Context(), name, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "listing reviews failed")
		return
	}
	if out == nil {
		out = []domain.StoredReview{}
	}
	writeCachedJSON(w, r, out)
}

type statusBody struct {
	Status domain.ReviewStatus `json:"status"`
}

func (h *Handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}

	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !validStatuses[body.Status] {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "status must be published, pending or draft")
		return
	}

	if err := h.Q.SetStatus(r.Context(), id, body.Status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "updating status failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "status": body.Status})
}

type bulkStatusBody struct {
	IDs    []int64             `json:"ids"`
	Status domain.ReviewStatus `json:"status"`
}

func (h *Handlers) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var body bulkStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !validStatuses[body.Status] {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "status must be published, pending or draft")
		return
	}
	if len(body.IDs) == 0 || len(body.IDs) > 500 {
		writeProblem(w, http.StatusBadRequest, "Invalid ids", "ids must contain between 1 and 500 entries")
		return
	}

	n, err := h.Q.BulkSetStatus(r.Context(), body.IDs, body.Status)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "bulk update failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"updated": n, "status": body.Status})
}
