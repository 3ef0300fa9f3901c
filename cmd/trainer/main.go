package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/basel-ax/bagtrainer/internal/config"
	"github.com/basel-ax/bagtrainer/internal/domain"
	"github.com/basel-ax/bagtrainer/internal/repository"
	"github.com/basel-ax/bagtrainer/internal/service"
	"github.com/basel-ax/bagtrainer/internal/web"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", "", "Path to an env file (default: .env if present)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	serve := flag.Bool("serve", false, "Serve the web UI")
	addr := flag.String("addr", "", "Web UI listen address (overrides HTTP_ADDR)")
	train := flag.String("train", "", "Comma-separated image files or directories to train on")
	imageType := flag.String("image-type", "", "Image type: hero, detail/macro or lifestyle")
	modelName := flag.String("model-name", "", "LoRA model name (overrides DEFAULT_MODEL_NAME)")
	generate := flag.String("generate", "", "Prompt to generate an image from")
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()

	if !*serve && *train == "" && *generate == "" {
		logger.Fatal("Please specify at least one action: -serve, -train or -generate")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Debugw("Configuration loaded", "apiURL", cfg.APIURL, "encoding", cfg.Encoding, "timeout", cfg.RequestTimeout)

	svc, err := service.NewModelTrainingService(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize model training service: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Infof("Received signal: %v, initiating shutdown...", sig)
		cancel()
	}()

	if *serve {
		listenAddr := cfg.HTTPAddr
		if *addr != "" {
			listenAddr = *addr
		}
		if err := web.NewServer(cfg, svc, logger).ListenAndServe(ctx, listenAddr); err != nil {
			logger.Fatalf("Web UI failed: %v", err)
		}
		return
	}

	ok := true
	if *train != "" {
		ok = runTraining(ctx, svc, splitPaths(*train), *imageType, *modelName) && ok
	}
	if *generate != "" {
		ok = runGeneration(ctx, svc, *generate, *modelName) && ok
	}
	if !ok {
		logger.Sync()
		os.Exit(1)
	}
}

// splitPaths splits a comma-separated -train value, dropping blank entries
func splitPaths(s string) []string {
	var paths []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func newLogger(verbose bool) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

func runTraining(ctx context.Context, svc *service.ModelTrainingService, paths []string, imageTypeFlag, modelName string) bool {
	var imageType domain.ImageType
	if imageTypeFlag != "" {
		parsed, err := domain.ParseImageType(imageTypeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
			return false
		}
		imageType = parsed
	}

	images, err := repository.NewFileImageRepository().LoadImages(ctx, paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		return false
	}
	fmt.Printf("%d images loaded.\n", len(images))

	out := svc.SubmitTraining(ctx, domain.TrainingRequest{
		ImageType: imageType,
		ModelName: modelName,
		Images:    images,
	})
	return report("Training", out)
}

func runGeneration(ctx context.Context, svc *service.ModelTrainingService, prompt, modelName string) bool {
	out := svc.SubmitGeneration(ctx, domain.GenerationRequest{
		ModelName: modelName,
		Prompt:    prompt,
	})
	if !report("Generation", out) {
		return false
	}
	fmt.Println(out.ImageURL)
	return true
}

func report(action string, out domain.Outcome) bool {
	if !out.OK() {
		fmt.Fprintf(os.Stderr, "%s failed (%s): %s\n", action, out.Err.Kind, out.Message)
		return false
	}
	fmt.Printf("%s succeeded: %s\n", action, out.Message)
	return true
}
