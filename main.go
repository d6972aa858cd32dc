package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"medscribe/agents"
	"medscribe/api"
	"medscribe/archive"
	"medscribe/config"
	"medscribe/llm"
	"medscribe/pipeline"
	"medscribe/publish"
	"medscribe/queue"
	"medscribe/store"
	"medscribe/telemetry"
	"medscribe/types"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	var (
		keywordFlag = flag.String("keyword", "", "run the pipeline once for this keyword and exit")
		drainFlag   = flag.Bool("drain", false, "run every queued keyword, then exit")
		serveFlag   = flag.Bool("serve", false, "start the HTTP API server")
	)
	flag.Parse()

	cfg := config.FromEnv()
	if cfg.CohereAPIKey == "" && !cfg.SecondaryOnly {
		log.Fatal("COHERE_API_KEY is required (or set LLM_SECONDARY_ONLY=true)")
	}

	app, cleanup, err := buildApp(cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *keywordFlag != "":
		runOne(ctx, app, types.Keyword{Text: *keywordFlag})
	case *drainFlag:
		drainQueue(ctx, app)
	case *serveFlag:
		serve(ctx, app)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// application bundles the wired collaborators for one process.
type application struct {
	cfg         config.Config
	coordinator *pipeline.Coordinator
	queue       *queue.Queue
	store       *store.Store
}

func buildApp(cfg config.Config) (*application, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("open store: %w", err)
	}
	cleanups = append(cleanups, func() { db.Close() })

	q, err := queue.New(queue.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		return nil, cleanup, fmt.Errorf("connect queue: %w", err)
	}
	cleanups = append(cleanups, func() { q.Close() })

	// Telemetry is optional; without brokers run logs stay local.
	var sink func(types.LogEntry)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := telemetry.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("Warning: telemetry disabled: %v", err)
		} else {
			sink = producer.Sink()
			cleanups = append(cleanups, func() { producer.Close() })
		}
	}

	// The archive is optional too.
	var arc *archive.Archive
	if cfg.S3Bucket != "" {
		arc, err = archive.New(context.Background(), archive.Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
			Prefix: cfg.S3Prefix,
		})
		if err != nil {
			log.Printf("Warning: archive disabled: %v", err)
			arc = nil
		}
	}

	cms := publish.New(cfg.CMSEndpoint, cfg.CMSToken)

	// LLM stack: Cohere primary, OpenAI-compatible fallback, plus a direct
	// alternate provider for one writer persona.
	primary := llm.NewClient(llm.NewCohereProvider(cfg.CohereAPIKey, cfg.CohereModel))
	secondary := llm.NewClient(llm.NewOpenAIProvider(cfg.FallbackEndpoint, cfg.FallbackModel, cfg.FallbackAPIKey))
	dispatcher := llm.NewDispatcher(primary, secondary, cfg.SecondaryOnly)

	var alternate llm.Invoker
	if cfg.AltWriterAPIKey != "" {
		alternate = llm.NewClient(llm.NewOpenAIProvider(cfg.AltWriterEndpoint, cfg.AltWriterModel, cfg.AltWriterAPIKey))
	}

	newDeps := func() pipeline.Deps {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		catalog, err := db.Catalog(ctx, 50)
		cancel()
		if err != nil {
			log.Printf("Warning: catalog unavailable for this run: %v", err)
		}

		writers := agents.NewWriterAgents(dispatcher, alternate, nil)
		deps := pipeline.Deps{
			Research:        agents.NewResearchAgents(dispatcher, nil),
			Synthesizer:     agents.NewSynthesizerAgent(dispatcher, nil),
			Judge:           agents.NewJudgeAgent(dispatcher, nil),
			MedicalCritic:   agents.NewMedicalCritic(dispatcher, nil),
			EditorialCritic: agents.NewEditorialCritic(dispatcher, nil),
			Reviser:         agents.NewRevisionAgent(dispatcher, nil),
			Finalizer:       agents.NewFinalizerAgent(dispatcher, nil),
			Catalog:         catalog,
			MaxRevisions:    cfg.MaxRevisions,
			LogSink:         sink,
		}
		for _, w := range writers {
			deps.Writers = append(deps.Writers, w)
		}
		return deps
	}

	hook := func(kw types.Keyword, result *types.RunResult) {
		handleResult(db, q, cms, arc, kw, result)
	}

	app := &application{
		cfg:         cfg,
		coordinator: pipeline.NewCoordinator(newDeps, hook),
		queue:       q,
		store:       db,
	}
	return app, cleanup, nil
}

// handleResult persists, publishes and archives a finished run, then
// reflects the outcome back onto the keyword's queue status.
func handleResult(db *store.Store, q *queue.Queue, cms *publish.Client, arc *archive.Archive, kw types.Keyword, result *types.RunResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if !result.Success || result.Article == nil {
		log.Printf("Run %s failed: %v", result.RunID, result.Errors)
		if kw.ID != "" {
			if err := q.SetStatus(ctx, kw.ID, types.KeywordError); err != nil {
				log.Printf("Warning: could not mark keyword errored: %v", err)
			}
		}
		return
	}
	article := *result.Article

	externalID := ""
	publishable := article.QualityScore >= config.QualityThreshold && !article.Degraded
	if publishable {
		id, err := cms.Publish(ctx, article)
		if err != nil {
			log.Printf("Publish failed for %s: %v", article.Slug, err)
			publishable = false
		} else {
			externalID = id
			log.Printf("Published %s as %s", article.Slug, id)
		}
	} else {
		log.Printf("Article %s held for review (score %.1f, degraded=%v)",
			article.Slug, article.QualityScore, article.Degraded)
	}

	if _, err := db.Save(ctx, kw.Text, article, externalID); err != nil {
		log.Printf("Warning: could not persist %s: %v", article.Slug, err)
	}

	if arc != nil {
		if key, err := arc.Store(ctx, article); err != nil {
			log.Printf("Warning: archive failed for %s: %v", article.Slug, err)
		} else {
			log.Printf("Archived %s", key)
		}
	}

	if kw.ID != "" {
		status := types.KeywordReview
		if publishable {
			status = types.KeywordPublished
		}
		if err := q.SetStatus(ctx, kw.ID, status); err != nil {
			log.Printf("Warning: could not update keyword status: %v", err)
		}
	}
}

func runOne(ctx context.Context, app *application, kw types.Keyword) {
	log.Printf("Running pipeline for keyword %q", kw.Text)
	result, err := app.coordinator.RunSync(ctx, kw)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	if !result.Success {
		log.Fatalf("run %s failed: %v", result.RunID, result.Errors)
	}
	log.Printf("✅ Run %s complete: %q (%d tokens, %d iterations)",
		result.RunID, result.Article.Title, result.TokensUsed, result.Article.Iterations)
}

// drainQueue runs queued keywords until the queue is empty or the context
// is cancelled.
func drainQueue(ctx context.Context, app *application) {
	for {
		if ctx.Err() != nil {
			log.Println("Shutdown requested, stopping drain")
			return
		}

		kw, ok, err := app.queue.Next(ctx)
		if err != nil {
			log.Fatalf("queue: %v", err)
		}
		if !ok {
			log.Println("Queue empty, done")
			return
		}

		log.Printf("Dequeued keyword %q (priority %.1f)", kw.Text, kw.Priority)
		result, err := app.coordinator.RunSync(ctx, kw)
		if err != nil {
			log.Printf("run skipped: %v", err)
			continue
		}
		log.Printf("Run %s finished (success=%v)", result.RunID, result.Success)
	}
}

func serve(ctx context.Context, app *application) {
	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	router := api.NewRouter(app.coordinator)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("Starting API server on %s", addr)
		log.Println("API endpoints available:")
		log.Println("  GET  /health")
		log.Println("  GET  /api/status")
		log.Println("  POST /api/start")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
