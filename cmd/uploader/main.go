package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"picbed/internal/config"
	"picbed/internal/services"
	"picbed/pkg/logger"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	envFile := flag.String("env-file", "", "path to a .env file with credentials")
	skipExistCheck := flag.Bool("skip-exist-check", false, "upload even when the object already exists remotely")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	logLevel := flag.String("log-level", "", "override LOG_LEVEL")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		// A .env next to the binary is optional.
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.App.LogLevel = *logLevel
	} else if cfg.App.Debug {
		cfg.App.LogLevel = "debug"
	}

	format := "text"
	if config.IsProduction() {
		format = "json"
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: format,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: uploader [flags] <file> [file...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Settings may be edited between invocations of Upload, so the service
	// re-reads the environment per call.
	service := services.NewUploadService(func() *config.Config {
		fresh, _ := config.Load()
		return fresh
	}, log)

	exitCode := 0
	for _, file := range files {
		if err := uploadFile(service, file, *skipExistCheck, *quiet); err != nil {
			log.WithError(err).Errorf("upload failed for %s", file)
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}

func uploadFile(service services.UploadService, path string, skipExistCheck, quiet bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	opts := &services.UploadOptions{SkipExistCheck: skipExistCheck}
	if !quiet {
		name := filepath.Base(path)
		opts.Progress = func(percent float64) {
			fmt.Fprintf(os.Stderr, "\r%s: %3.0f%%", name, percent)
		}
	}

	result, err := service.Upload(context.Background(), data, filepath.Base(path), opts)
	if !quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if result.Deduplicated {
		fmt.Fprintf(os.Stderr, "%s already stored\n", filepath.Base(path))
	}
	fmt.Println(result.URL)

	return nil
}
