package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kira7dn/videoassembly/internal/aiagent"
	"github.com/kira7dn/videoassembly/internal/align"
	"github.com/kira7dn/videoassembly/internal/concat"
	"github.com/kira7dn/videoassembly/internal/config"
	"github.com/kira7dn/videoassembly/internal/fetch"
	"github.com/kira7dn/videoassembly/internal/httpapi"
	"github.com/kira7dn/videoassembly/internal/imagequal"
	"github.com/kira7dn/videoassembly/internal/imagesearch"
	"github.com/kira7dn/videoassembly/internal/jobstore"
	"github.com/kira7dn/videoassembly/internal/metrics"
	"github.com/kira7dn/videoassembly/internal/orchestrate"
	"github.com/kira7dn/videoassembly/internal/queue"
	"github.com/kira7dn/videoassembly/internal/render"
	"github.com/kira7dn/videoassembly/internal/tempdir"
	"github.com/kira7dn/videoassembly/internal/upload"
	"github.com/kira7dn/videoassembly/internal/validate"
)

func main() {
	log.Println("Starting video assembly API...")

	cfg := config.Load()

	jobs, err := jobstore.New(cfg.DatabaseURL, cfg.JobStorePath)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	if cfg.DatabaseURL != "" {
		log.Println("Job store: Postgres")
	} else {
		log.Printf("Job store: file (%s)", cfg.JobStorePath)
	}

	tempDirs, err := tempdir.New(cfg.TempDirRoot, "job-",
		tempdir.WithStaleAfter(time.Duration(cfg.TempDirStaleHours)*time.Hour))
	if err != nil {
		log.Fatalf("Failed to initialize temp directory manager: %v", err)
	}
	if err := tempDirs.Sweep(); err != nil {
		log.Printf("Startup temp directory sweep failed: %v", err)
	}

	uploader, err := upload.New(upload.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
		Endpoint:        cfg.S3Endpoint,
		PublicBaseURL:   cfg.PublicBaseURL,
		LocalOutputDir:  cfg.LocalOutputDir,
	})
	if err != nil {
		log.Fatalf("Failed to initialize uploader: %v", err)
	}

	agent := aiagent.NewOpenAIAgent(cfg.OpenAIKey, cfg.OpenAIModel)
	if agent.Enabled() {
		log.Printf("AI agent enabled (model: %s)", cfg.OpenAIModel)
	} else {
		log.Println("AI agent disabled — schema normalization, keyword extraction, and phrase segmentation fall back to deterministic rules")
	}

	validator, err := validate.NewSchemaValidator(nil, agent)
	if err != nil {
		log.Fatalf("Failed to compile specification schema: %v", err)
	}

	fetcher := fetch.New(cfg.FetchConcurrency, time.Duration(cfg.FetchTimeoutSeconds)*time.Second)

	qualifier := imagequal.New(cfg.MinImageWidth, cfg.MinImageHeight, cfg.MaxSubstituteKeywords, agent,
		imagesearch.NewPexelsSearch(cfg.ImageSearchAPIKey))

	var aligner *align.Aligner
	if cfg.ForcedAlignerURL != "" {
		aligner = align.New(align.NewHTTPForcedAligner(cfg.ForcedAlignerURL), agent)
		log.Println("Forced alignment enabled")
	} else {
		aligner = align.New(noopForcedAligner{}, agent)
		log.Println("Forced alignment disabled — every segment falls back to synthetic subtitle timing")
	}

	renderer := render.New(render.Options{
		Resolution: render.Resolution{
			Width:  cfg.OutputWidth,
			Height: cfg.OutputHeight,
			FPS:    cfg.OutputFPS,
		},
		Style: render.TextStyle{
			FontFile:     cfg.FontFile,
			FontSize:     48,
			FontColor:    "white",
			BoxColor:     "black@0.5",
			MarginBottom: 160,
		},
		Loudness:          render.DefaultLoudnessTarget,
		SilentClipSeconds: 4.0,
		SmartPadding:      true,
		AutoEnhance:       true,
		MaxConcurrent:     cfg.RenderConcurrency,
	})

	sink := metrics.NewPrometheusSink()

	var jobQueue *queue.Queue
	var workerCancel context.CancelFunc
	if cfg.RedisURL != "" {
		jobQueue, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer jobQueue.Close()
		log.Println("Job queue: redis — jobs run on a worker pool")
	} else {
		log.Println("Job queue: none — jobs run inline on submission")
	}

	var assemblerQueue orchestrate.JobQueue
	if jobQueue != nil {
		assemblerQueue = jobQueue
	}

	assembler := orchestrate.NewAssembler(
		validator,
		fetcher,
		qualifier,
		aligner,
		renderer,
		func(tempDir string) orchestrate.Concatenator { return concat.New(tempDir) },
		uploader,
		jobs,
		tempDirs,
		sink,
		sink,
		assemblerQueue,
	)

	if jobQueue != nil {
		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go assembler.StartWorkers(workerCtx, cfg.MaxConcurrentJobs)
	}

	handler := httpapi.NewHandler(jobs, assembler, cfg.LocalOutputDir)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if workerCancel != nil {
		workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// noopForcedAligner is wired in when no forced-alignment service is
// configured. It returns no word timings at all, so AlignSegment's matcher
// finds nothing to match against and every phrase falls back to synthetic,
// evenly-paced subtitle timing instead of a hard error.
type noopForcedAligner struct{}

func (noopForcedAligner) Align(ctx context.Context, audioPath, transcript string) ([]align.WordTiming, error) {
	return nil, nil
}
