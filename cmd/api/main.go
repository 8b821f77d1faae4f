package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wenqi/jobtailor/internal/api"
	"github.com/wenqi/jobtailor/internal/api/middleware"
	"github.com/wenqi/jobtailor/internal/config"
	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
	"github.com/wenqi/jobtailor/internal/pipeline"
	"github.com/wenqi/jobtailor/internal/progress"
	"github.com/wenqi/jobtailor/internal/repository"
	"github.com/wenqi/jobtailor/internal/scheduler"
	"github.com/wenqi/jobtailor/internal/service"
	"github.com/wenqi/jobtailor/internal/storage"
	"github.com/wenqi/jobtailor/internal/tailor"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	profileRepo := repository.NewProfileRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	// Artifact storage (MinIO, R2, or S3)
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize storage")
	}
	if s3, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3.EnsureBucket(context.Background()); err != nil {
			appLog.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	// Services
	profileService := service.NewProfileService(profileRepo)
	applicationService := service.NewApplicationService(applicationRepo)
	threadService := service.NewThreadService(threadRepo)
	portfolioService := service.NewPortfolioService(portfolioRepo)
	creditService := service.NewCreditService(creditRepo)
	artifactService := service.NewArtifactService(objectStorage)

	analyzerService := service.NewAnalyzerService(&cfg.Analyzer)
	generatorService := service.NewGeneratorService(&cfg.Generator, appLog)
	scoringService := service.NewScoringService(&cfg.Embedding)

	reconciler := tailor.NewReconciler(scoringService, generatorService, appLog)

	pipe := pipeline.New(
		profileService,
		analyzerService,
		applicationService,
		threadService,
		generatorService,
		reconciler,
		portfolioService,
		creditService,
		artifactService,
		pipeline.Config{
			PortfolioEnabled: cfg.Pipeline.PortfolioEnabled,
			PortfolioDelay:   cfg.Pipeline.PortfolioDelay(),
			Costs: pipeline.Costs{
				Analysis:    cfg.Pipeline.Costs.Analysis,
				CoverLetter: cfg.Pipeline.Costs.CoverLetter,
				TailoredCV:  cfg.Pipeline.Costs.TailoredCV,
				InterviewQA: cfg.Pipeline.Costs.InterviewQA,
				Portfolio:   cfg.Pipeline.Costs.Portfolio,
			},
		},
		appLog,
	)

	// Scheduler with the pipeline as its runner
	bus := progress.NewBus()
	runner := scheduler.RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report scheduler.StepReporter) error {
		return pipe.Run(ctx, sub, report)
	})
	sched := scheduler.New(
		runner,
		bus,
		appLog,
		scheduler.Options{CleanupDelay: cfg.Scheduler.CleanupDelay()},
	)

	router := api.SetupRouter(api.Deps{
		Scheduler:    sched,
		Bus:          bus,
		Profiles:     profileService,
		Applications: applicationService,
		Credits:      creditService,
		Log:          appLog,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLog.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	// Let any in-flight job settle before exit; queued work is in-memory
	// and lost on restart by design.
	sched.Wait()

	appLog.Info("Server exited")
}
