package main

import (
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/log"
	"CXRaide/pkg/s3"
	"context"
	"flag"
	"github.com/joho/godotenv"
	"os"
	"path"
	"path/filepath"
	"time"
)

// fetch-models downloads the detector weights from S3 into MODEL_DIR, skipping files already present.
func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	dir := flag.String("dir", envOr("MODEL_DIR", "."), "directory the weights are written to")
	prefix := flag.String("prefix", os.Getenv("MODEL_S3_PREFIX"), "key prefix of the weights in the bucket")
	force := flag.Bool("force", false, "download even if the file exists")
	flag.Parse()

	client, err := s3.New(s3.ConfigFromEnv())
	if err != nil {
		logger.Fatalf("Failed to create S3 client: %v", err)
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logger.Fatalf("Failed to create %v: %v", *dir, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	artifacts := []string{
		envOr("BROAD_MODEL_FILE", model.DefaultBroadArtifact),
		envOr("FOCUSED_MODEL_FILE", model.DefaultFocusedArtifact),
	}

	failed := false
	for _, artifact := range artifacts {
		dst := filepath.Join(*dir, artifact)
		fields := log.Fields{"artifact": artifact, "destination": dst}

		if _, err := os.Stat(dst); err == nil && !*force {
			log.Info(fields, "Model already present, skipping")
			continue
		}

		n, err := client.DownloadFile(ctx, path.Join(*prefix, artifact), dst)
		if err != nil {
			fields["error"] = err.Error()
			log.Error(fields, "Model download failed")
			failed = true
			continue
		}
		fields["bytes"] = n
		log.Info(fields, "Model downloaded")
	}

	if failed {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
