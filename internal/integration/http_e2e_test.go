//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "github.com/danielcmadeley/flex-living-sub001/internal/adapters/http_server"
	"github.com/danielcmadeley/flex-living-sub001/internal/aggregate"
	"github.com/danielcmadeley/flex-living-sub001/internal/app"
	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
	mysqlrepo "github.com/danielcmadeley/flex-living-sub001/internal/storage/mysql"
)

// ---------- helpers ----------
func pfloat(f float64) *float64 { return &f }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// nopCache keeps the e2e test on the DB path only.
type nopCache struct{}

func (nopCache) Get(ctx context.Context, key string, dst any) (bool, error)   { return false, nil }
func (nopCache) Set(ctx context.Context, key string, v any, ttlSec int) error { return nil }
func (nopCache) Del(ctx context.Context, key string) error                    { return nil }

// ---------- the test ----------
func TestHTTP_EndToEnd_ReviewsAndModeration(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=flexliving",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "flexliving")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Seed canonical reviews straight through the repo
	at := time.Date(2023, 5, 10, 14, 0, 0, 0, time.UTC)
	seed := []domain.Review{
		{
			ID: "7453", Channel: domain.ChannelHostaway, Type: domain.GuestToHost,
			Status: domain.StatusPublished, OverallRating: pfloat(9.0),
			Comment: "Lovely flat", Categories: map[domain.Category]float64{domain.CategoryCleanliness: 9},
			SubmittedAt: at, GuestName: "Ana", ListingName: "Shoreditch Heights",
		},
		{
			ID: "g-1", Channel: domain.ChannelGoogle, Type: domain.GuestToHost,
			Status: domain.StatusPublished, OverallRating: pfloat(8.0),
			Comment: "Great area", Categories: map[domain.Category]float64{domain.SyntheticOverall: 8},
			SubmittedAt: at.Add(time.Hour), GuestName: "Bob", ListingName: "Shoreditch Heights",
		},
	}
	if err := repo.UpsertReviews(ctx, seed); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}

	// Real router and handlers over the repo
	q := app.NewQueryService(repo, nopCache{}, time.Minute)
	srv := server.New()
	srv.MountHandlers(&server.Handlers{Q: q})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// List, filtered by channel
	res, err := http.Get(ts.URL + "/v1/reviews?channel=google")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var listed []domain.StoredReview
	if err := json.NewDecoder(res.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK || len(listed) != 1 || listed[0].Channel != domain.ChannelGoogle {
		t.Fatalf("channel filter: status=%d body=%+v", res.StatusCode, listed)
	}

	// Stats
	res, err = http.Get(ts.URL + "/v1/reviews/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	var st domain.ReviewStats
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	res.Body.Close()
	if st.TotalReviews != 2 || st.Overall != 8.5 {
		t.Fatalf("stats: %+v", st)
	}

	// Dashboard overview
	res, err = http.Get(ts.URL + "/v1/listings")
	if err != nil {
		t.Fatalf("GET listings: %v", err)
	}
	var sums []aggregate.ListingStats
	if err := json.NewDecoder(res.Body).Decode(&sums); err != nil {
		t.Fatalf("decode listings: %v", err)
	}
	res.Body.Close()
	if len(sums) != 1 || sums[0].ListingName != "Shoreditch Heights" || sums[0].Stats.TotalReviews != 2 {
		t.Fatalf("listing summaries: %+v", sums)
	}

	// Moderate the google review to draft
	rowID := listed[0].RowID
	body, _ := json.Marshal(map[string]string{"status": "draft"})
	req, _ := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/v1/reviews/%d", ts.URL, rowID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("PATCH status %d", res.StatusCode)
	}

	// Public listing page must no longer show it
	res, err = http.Get(ts.URL + "/v1/listings/Shoreditch%20Heights/reviews")
	if err != nil {
		t.Fatalf("GET listing: %v", err)
	}
	var public []domain.StoredReview
	if err := json.NewDecoder(res.Body).Decode(&public); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	res.Body.Close()
	if len(public) != 1 || public[0].ID != "7453" {
		t.Fatalf("public page should only show the published review: %+v", public)
	}
}
