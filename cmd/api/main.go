package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/inu9431/qna-archiver/internal/api"
	qna_module "github.com/inu9431/qna-archiver/internal/api/modules/qna"
	"github.com/inu9431/qna-archiver/internal/archive"
	"github.com/inu9431/qna-archiver/internal/generator"
	"github.com/inu9431/qna-archiver/internal/notifier"
	"github.com/inu9431/qna-archiver/internal/publisher"
	"github.com/inu9431/qna-archiver/internal/resolver"
	records "github.com/inu9431/qna-archiver/internal/stores/qna"
	"github.com/inu9431/qna-archiver/internal/worker"
	"github.com/inu9431/qna-archiver/pkg/qna"
	"github.com/inu9431/qna-archiver/pkg/utils"
)

const seedLimit = 500

// Start the API server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Load the category enum, falling back to the built-in set
	categories := qna.DefaultCategories()
	if path := cfg.Get("CATEGORY_FILE"); path != "" {
		loaded, err := qna.LoadCategorySet(path)
		if err != nil {
			log.Fatalf("[MAIN]: Failed to load category file: %v", err)
		}
		categories = loaded
	}

	// Initialize the record store
	store, err := records.NewStore(databaseURL(cfg), categories)
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize record store: %v", err)
	}
	defer store.Close()

	// Initialize the similarity resolver and seed it with existing records
	res, err := resolver.New(cfg.GetFloatWithDefault("SIMILARITY_THRESHOLD", resolver.DefaultThreshold))
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize resolver: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	seed, err := store.ListRecent(ctx, seedLimit, false)
	cancel()
	if err != nil {
		log.Fatalf("[MAIN]: Failed to load records for the resolver: %v", err)
	}
	if err := res.Seed(seed); err != nil {
		log.Fatalf("[MAIN]: Failed to seed resolver: %v", err)
	}
	log.Printf("[MAIN]: Resolver seeded with %d records", len(seed))

	// Initialize the answer generator
	gen, err := generator.New(cfg, categories)
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize generator: %v", err)
	}

	// Initialize the document board publisher
	pub, err := publisher.New(cfg)
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize publisher: %v", err)
	}

	// Assemble the pipeline
	opts := archive.Options{
		AutoPublish: cfg.GetBool("AUTO_PUBLISH"),
	}
	if webhookURL := cfg.Get("DISCORD_WEBHOOK_URL"); webhookURL != "" {
		opts.Notifier = notifier.New(webhookURL)
	}
	service := archive.NewService(store, res, gen, pub, opts)

	// Start the worker pool
	pool := worker.NewPool(service, cfg.GetIntWithDefault("WORKER_COUNT", worker.DefaultWorkerCount))
	defer pool.Stop()

	// Start the publish sweep
	sweeper, err := archive.NewSweeper(service, cfg.GetWithDefault("PUBLISH_SWEEP_CRON", archive.DefaultSweepSchedule))
	if err != nil {
		log.Fatalf("[MAIN]: Failed to initialize publish sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Start
	api.Start(cfg, qna_module.Dependencies{
		Submitter: pool,
		Archive:   service,
		Records:   store,
	})
}

// databaseURL returns DATABASE_URL when set, otherwise builds a DSN from the
// individual MYSQL_* variables
func databaseURL(cfg *utils.Config) string {
	if url := cfg.Get("DATABASE_URL"); url != "" {
		return url
	}

	dbConfig := mysql.Config{
		User:      cfg.Get("MYSQL_USER"),
		Passwd:    cfg.Get("MYSQL_ROOT_PASSWORD"),
		Net:       "tcp",
		Addr:      fmt.Sprintf("%s:%s", cfg.Get("MYSQL_HOST"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
		DBName:    cfg.Get("MYSQL_DATABASE"),
		ParseTime: true,
	}

	return dbConfig.FormatDSN()
}
