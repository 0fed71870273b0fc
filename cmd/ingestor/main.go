package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/danielcmadeley/flex-living-sub001/internal/adapters/google"
	"github.com/danielcmadeley/flex-living-sub001/internal/adapters/hostaway"
	"github.com/danielcmadeley/flex-living-sub001/internal/adapters/observability"
	redisad "github.com/danielcmadeley/flex-living-sub001/internal/adapters/redis"
	"github.com/danielcmadeley/flex-living-sub001/internal/app"
	"github.com/danielcmadeley/flex-living-sub001/internal/domain"
	"github.com/danielcmadeley/flex-living-sub001/internal/shared"
	mysqlrepo "github.com/danielcmadeley/flex-living-sub001/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.Workers).
		Int("listings", len(cfg.ListingIDs)).
		Int("places", len(cfg.PlaceIDs)).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	haClient, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayAPIKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
	}
	gClient, err := google.New(cfg.GoogleBase, cfg.GoogleAPIKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Places client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ing := app.NewIngestionService(haClient, gClient, repo, cache, shared.SampleHostawayReviews())

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	run := func(job func() (app.Report, error), channel, ref string) {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			rep, err := job()
			if err != nil {
				log.Warn().Str("ref", ref).Err(err).Msg("ingest failed")
				return
			}
			observability.ObserveIngest(channel, rep.Ingested, rep.Skipped)
			log.Info().
				Str("ref", ref).
				Int("ingested", rep.Ingested).
				Int("skipped", rep.Skipped).
				Msg("ingest ok")
		}()
	}

	for _, id := range cfg.ListingIDs {
		id := id
		run(func() (app.Report, error) {
			return ing.IngestListing(ctx, id, cfg.ReviewLimit)
		}, string(domain.ChannelHostaway), fmt.Sprintf("listing:%d", id))
	}
	for _, pid := range cfg.PlaceIDs {
		pid := pid
		run(func() (app.Report, error) {
			return ing.IngestPlace(ctx, pid)
		}, string(domain.ChannelGoogle), "place:"+pid)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
