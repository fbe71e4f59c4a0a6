package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"CXRaide/internal/inference/model"
	"CXRaide/internal/middleware"
)

type InferenceConfig struct {
	SearchPaths     []string
	BroadArtifact   string
	FocusedArtifact string
	UseMockModels   bool
	ONNXRuntimeLib  string
	Threads         int
	CacheTTL        time.Duration
}

// LoadInferenceConfig reads the model settings from the environment.
// MODEL_SEARCH_PATHS, a comma separated list, replaces the default search order entirely.
func LoadInferenceConfig() InferenceConfig {
	cfg := InferenceConfig{
		BroadArtifact:   getEnv("BROAD_MODEL_FILE", model.DefaultBroadArtifact),
		FocusedArtifact: getEnv("FOCUSED_MODEL_FILE", model.DefaultFocusedArtifact),
		UseMockModels:   getEnvBool("USE_MOCK_MODELS", false),
		ONNXRuntimeLib:  getEnv("ONNXRUNTIME_LIB", ""),
		Threads:         getEnvInt("ONNX_THREADS", 0),
		CacheTTL:        getEnvDuration("PREDICTION_CACHE_TTL", 10*time.Minute),
	}

	if paths := getEnv("MODEL_SEARCH_PATHS", ""); paths != "" {
		for _, d := range strings.Split(paths, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.SearchPaths = append(cfg.SearchPaths, d)
			}
		}
	} else {
		cfg.SearchPaths = model.DefaultSearchPaths(getEnv("MODEL_DIR", ""))
	}
	return cfg
}

func LoadMiddlewareConfig() middleware.Config {
	return middleware.Config{
		RateLimit:   getEnvFloat("RATE_LIMIT", 50),
		RateBurst:   getEnvInt("RATE_BURST", 100),
		CORSOrigins: getEnv("CORS_ORIGINS", ""),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go durations ("90s") and plain seconds ("90")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
